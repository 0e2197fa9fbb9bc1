package models

import "go.mongodb.org/mongo-driver/v2/bson"

type SortKey string

const (
	SortPriceAsc      SortKey = "price-asc"
	SortPriceDesc     SortKey = "price-desc"
	SortRatingAsc     SortKey = "rating-asc"
	SortRatingDesc    SortKey = "rating-desc"
	SortCreatedAtAsc  SortKey = "createdAt_asc"
	SortCreatedAtDesc SortKey = "createdAt_desc"
)

// ParseSortKey falls back to newest first for unknown keys.
func ParseSortKey(raw string) SortKey {
	switch k := SortKey(raw); k {
	case SortPriceAsc, SortPriceDesc, SortRatingAsc, SortRatingDesc, SortCreatedAtAsc, SortCreatedAtDesc:
		return k
	}
	return SortCreatedAtDesc
}

type PriceRange struct {
	Min float64
	Max float64
}

// ProductFilter predicates are combined conjunctively; zero values are ignored.
type ProductFilter struct {
	Category *bson.ObjectID
	Brands   []string
	Sizes    []Size
	Price    *PriceRange
	Discount *float64
	Rating   *float64
	Keyword  string
	Audience Audience
}

type ProductQuery struct {
	Filter ProductFilter
	Sort   SortKey
	Skip   int64
	Limit  int64
}

type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPage"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
