package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/fashalt/fashaltbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(col *mongo.Collection) *ProductRepository {
	return &ProductRepository{col: col}
}

// BuildProductFilter turns the catalog predicates into a conjunctive Mongo filter.
func BuildProductFilter(f models.ProductFilter) bson.M {
	filter := bson.M{}
	if f.Category != nil {
		filter["category"] = *f.Category
	}
	if len(f.Brands) > 0 {
		filter["brand"] = bson.M{"$in": f.Brands}
	}
	if len(f.Sizes) > 0 {
		filter["sizes"] = bson.M{"$all": f.Sizes}
	}
	if f.Price != nil {
		filter["price"] = bson.M{"$gte": f.Price.Min, "$lte": f.Price.Max}
	}
	if f.Discount != nil {
		filter["discount"] = *f.Discount
	}
	if f.Rating != nil {
		filter["rating"] = bson.M{"$gte": *f.Rating}
	}
	if f.Audience != "" {
		filter["for"] = f.Audience
	}
	if f.Keyword != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(f.Keyword), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}
	return filter
}

// SortDocument maps a sort key to a Mongo sort; _id breaks ties so pages are stable.
func SortDocument(k models.SortKey) bson.D {
	var primary bson.E
	switch k {
	case models.SortPriceAsc:
		primary = bson.E{Key: "price", Value: 1}
	case models.SortPriceDesc:
		primary = bson.E{Key: "price", Value: -1}
	case models.SortRatingAsc:
		primary = bson.E{Key: "rating", Value: 1}
	case models.SortRatingDesc:
		primary = bson.E{Key: "rating", Value: -1}
	case models.SortCreatedAtAsc:
		primary = bson.E{Key: "createdAt", Value: 1}
	default:
		primary = bson.E{Key: "createdAt", Value: -1}
	}
	return bson.D{primary, {Key: "_id", Value: 1}}
}

func (r *ProductRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProductRepository) FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Product](ctx, cur)
}

// Find returns one page of the query together with the total number of matches.
func (r *ProductRepository) Find(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error) {
	filter := BuildProductFilter(q.Filter)

	findOpts := options.Find().
		SetSkip(q.Skip).
		SetLimit(q.Limit).
		SetSort(SortDocument(q.Sort))

	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, err
	}
	products, err := decodeAll[models.Product](ctx, cur)
	if err != nil {
		return nil, 0, err
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) findSorted(ctx context.Context, filter bson.M, sort bson.D, n int64) ([]models.Product, error) {
	opts := options.Find().SetSort(sort)
	if n > 0 {
		opts.SetLimit(n)
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Product](ctx, cur)
}

func (r *ProductRepository) Search(ctx context.Context, keyword string, n int64) ([]models.Product, error) {
	filter := BuildProductFilter(models.ProductFilter{Keyword: keyword})
	return r.findSorted(ctx, filter, SortDocument(models.SortCreatedAtDesc), n)
}

func (r *ProductRepository) Latest(ctx context.Context, n int64) ([]models.Product, error) {
	return r.findSorted(ctx, bson.M{}, SortDocument(models.SortCreatedAtDesc), n)
}

func (r *ProductRepository) TopSelling(ctx context.Context, n int64) ([]models.Product, error) {
	return r.findSorted(ctx, bson.M{}, bson.D{{Key: "sold", Value: -1}, {Key: "_id", Value: 1}}, n)
}

func (r *ProductRepository) OnSale(ctx context.Context, n int64) ([]models.Product, error) {
	return r.findSorted(ctx, bson.M{"sale": true}, SortDocument(models.SortCreatedAtDesc), n)
}

func (r *ProductRepository) ByCategory(ctx context.Context, categoryID bson.ObjectID, n int64) ([]models.Product, error) {
	return r.findSorted(ctx, bson.M{"category": categoryID}, SortDocument(models.SortCreatedAtDesc), n)
}

func (r *ProductRepository) All(ctx context.Context) ([]models.Product, error) {
	return r.findSorted(ctx, bson.M{}, bson.D{{Key: "name", Value: 1}}, 0)
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Images == nil {
		p.Images = []models.Image{}
	}
	if p.Reviews == nil {
		p.Reviews = []bson.ObjectID{}
	}
	res, err := r.col.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	p.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func productUpdateSet(u models.ProductUpdate) bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Discount != nil {
		set["discount"] = *u.Discount
	}
	if u.Brand != nil {
		set["brand"] = *u.Brand
	}
	if u.Stock != nil {
		set["stock"] = *u.Stock
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Sizes != nil {
		set["sizes"] = *u.Sizes
	}
	if u.For != nil {
		set["for"] = *u.For
	}
	if u.Sale != nil {
		set["sale"] = *u.Sale
	}
	if u.Images != nil {
		set["images"] = *u.Images
	}
	return set
}

func (r *ProductRepository) Update(ctx context.Context, id bson.ObjectID, u models.ProductUpdate) (*models.Product, error) {
	set := productUpdateSet(u)
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Product
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock takes qty units out of stock only if that many are available, and
// adds them to sold. It returns the updated product. When stock is short it returns
// the current product along with ErrInsufficientStock.
func (r *ProductRepository) DecrementStock(ctx context.Context, id bson.ObjectID, qty int) (*models.Product, error) {
	filter := bson.M{"_id": id, "stock": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"stock": -qty, "sold": qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p models.Product
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, ErrInsufficientStock
}

func (r *ProductRepository) AddReview(ctx context.Context, productID, reviewID bson.ObjectID) error {
	res, err := r.col.UpdateByID(ctx, productID, bson.M{"$addToSet": bson.M{"reviews": reviewID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductRepository) RemoveReview(ctx context.Context, productID, reviewID bson.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, productID, bson.M{"$pull": bson.M{"reviews": reviewID}})
	return err
}

func (r *ProductRepository) SetRating(ctx context.Context, productID bson.ObjectID, rating float64, numReviews int) error {
	_, err := r.col.UpdateByID(ctx, productID, bson.M{"$set": bson.M{
		"rating":     rating,
		"numReviews": numReviews,
		"updatedAt":  time.Now().UTC(),
	}})
	return err
}

func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID bson.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"category": categoryID})
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *ProductRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return r.col.CountDocuments(ctx, createdBetween(from, to))
}

func createdBetween(from, to time.Time) bson.M {
	return bson.M{"createdAt": bson.M{"$gte": from, "$lt": to}}
}
