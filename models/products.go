package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Audience is the target segment of a product or category ("for" on the wire).
type Audience string

const (
	AudienceMens   Audience = "mens"
	AudienceWomens Audience = "womens"
	AudienceKids   Audience = "kids"
)

// ParseAudience matches case-insensitively and returns the canonical lower-case value.
func ParseAudience(raw string) (Audience, bool) {
	switch a := Audience(strings.ToLower(strings.TrimSpace(raw))); a {
	case AudienceMens, AudienceWomens, AudienceKids:
		return a, true
	}
	return "", false
}

type Size string

const (
	SizeS   Size = "S"
	SizeM   Size = "M"
	SizeL   Size = "L"
	SizeXL  Size = "XL"
	SizeXXL Size = "XXL"
)

func ParseSize(raw string) (Size, bool) {
	switch s := Size(strings.ToUpper(strings.TrimSpace(raw))); s {
	case SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return s, true
	}
	return "", false
}

// Image is a stored object: PublicID is the bucket object name.
type Image struct {
	PublicID string `bson:"public_id" json:"public_id"`
	URL      string `bson:"url" json:"url"`
}

type Product struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name        string          `bson:"name" json:"name"`
	Slug        string          `bson:"slug" json:"slug"`
	Description string          `bson:"description" json:"description"`
	Images      []Image         `bson:"images" json:"images"`
	Category    bson.ObjectID   `bson:"category" json:"category"`
	Brand       string          `bson:"brand" json:"brand"`
	Rating      float64         `bson:"rating" json:"rating"`
	NumReviews  int             `bson:"numReviews" json:"numReviews"`
	Price       float64         `bson:"price" json:"price"`
	Discount    float64         `bson:"discount" json:"discount"`
	Stock       int             `bson:"stock" json:"stock"`
	Sold        int             `bson:"sold" json:"sold"`
	Sizes       []Size          `bson:"sizes" json:"sizes"`
	For         []Audience      `bson:"for" json:"for"`
	Reviews     []bson.ObjectID `bson:"reviews" json:"reviews"`
	Sale        bool            `bson:"sale" json:"sale"`
	CreatedAt   time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// ProductUpdate holds optional field changes; nil means unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Discount    *float64
	Brand       *string
	Stock       *int
	Category    *bson.ObjectID
	Sizes       *[]Size
	For         *[]Audience
	Sale        *bool
	Images      *[]Image
}

func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil && u.Discount == nil &&
		u.Brand == nil && u.Stock == nil && u.Category == nil && u.Sizes == nil &&
		u.For == nil && u.Sale == nil && u.Images == nil
}
