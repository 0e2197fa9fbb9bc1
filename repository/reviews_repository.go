package repository

import (
	"context"
	"time"

	"github.com/fashalt/fashaltbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type ReviewRepository struct {
	col *mongo.Collection
}

func NewReviewRepository(col *mongo.Collection) *ReviewRepository {
	return &ReviewRepository{col: col}
}

func (r *ReviewRepository) Insert(ctx context.Context, rv *models.Review) error {
	now := time.Now().UTC()
	rv.CreatedAt, rv.UpdatedAt = now, now
	if rv.Image == nil {
		rv.Image = []models.Image{}
	}
	res, err := r.col.InsertOne(ctx, rv)
	if err != nil {
		return err
	}
	rv.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func (r *ReviewRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Review, error) {
	var rv models.Review
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rv); err != nil {
		return nil, notFound(err)
	}
	return &rv, nil
}

func (r *ReviewRepository) Exists(ctx context.Context, userID, productID bson.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"user": userID, "product": productID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListWithAuthors returns the product's reviews newest first, each joined with the
// reviewer's public fields.
func (r *ReviewRepository) ListWithAuthors(ctx context.Context, productID bson.ObjectID) ([]models.ReviewWithAuthor, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"product": productID}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user",
			"foreignField": "_id",
			"pipeline":     bson.A{bson.M{"$project": bson.M{"name": 1, "avatar": 1}}},
			"as":           "author",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$author", "preserveNullAndEmptyArrays": true}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.ReviewWithAuthor](ctx, cur)
}

// Ratings returns the rating of every review of the product.
func (r *ReviewRepository) Ratings(ctx context.Context, productID bson.ObjectID) ([]float64, error) {
	opts := options.Find().SetProjection(bson.M{"rating": 1})
	cur, err := r.col.Find(ctx, bson.M{"product": productID}, opts)
	if err != nil {
		return nil, err
	}
	rows, err := decodeAll[struct {
		Rating float64 `bson:"rating"`
	}](ctx, cur)
	if err != nil {
		return nil, err
	}
	ratings := make([]float64, len(rows))
	for i, row := range rows {
		ratings[i] = row.Rating
	}
	return ratings, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByProduct removes every review of a product and returns their stored images.
func (r *ReviewRepository) DeleteByProduct(ctx context.Context, productID bson.ObjectID) ([]models.Image, error) {
	filter := bson.M{"product": productID}
	cur, err := r.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"image": 1}))
	if err != nil {
		return nil, err
	}
	reviews, err := decodeAll[models.Review](ctx, cur)
	if err != nil {
		return nil, err
	}
	if _, err := r.col.DeleteMany(ctx, filter); err != nil {
		return nil, err
	}
	images := []models.Image{}
	for _, rv := range reviews {
		images = append(images, rv.Image...)
	}
	return images, nil
}
