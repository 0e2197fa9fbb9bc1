package repository

import (
	"context"
	"time"

	"github.com/fashalt/fashaltbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type CategoryRepository struct {
	col *mongo.Collection
}

func NewCategoryRepository(col *mongo.Collection) *CategoryRepository {
	return &CategoryRepository{col: col}
}

func (r *CategoryRepository) Insert(ctx context.Context, cat *models.Category) error {
	now := time.Now().UTC()
	cat.CreatedAt, cat.UpdatedAt = now, now
	res, err := r.col.InsertOne(ctx, cat)
	if err != nil {
		return err
	}
	cat.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	var cat models.Category
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&cat); err != nil {
		return nil, notFound(err)
	}
	return &cat, nil
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	var cat models.Category
	if err := r.col.FindOne(ctx, bson.M{"name": name}).Decode(&cat); err != nil {
		return nil, notFound(err)
	}
	return &cat, nil
}

// List returns categories sorted by name. With an audience, a category matches when it
// is tagged with it or when any of its products are.
func (r *CategoryRepository) List(ctx context.Context, audience models.Audience) ([]models.Category, error) {
	pipeline := mongo.Pipeline{}
	if audience != "" {
		pipeline = append(pipeline,
			bson.D{{Key: "$lookup", Value: bson.M{
				"from":         "products",
				"localField":   "_id",
				"foreignField": "category",
				"pipeline":     bson.A{bson.M{"$project": bson.M{"for": 1}}},
				"as":           "products",
			}}},
			bson.D{{Key: "$match", Value: bson.M{"$or": bson.A{
				bson.M{"for": audience},
				bson.M{"products.for": audience},
			}}}},
			bson.D{{Key: "$project", Value: bson.M{"products": 0}}},
		)
	}
	pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.M{"name": 1}}})

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Category](ctx, cur)
}

func (r *CategoryRepository) Names(ctx context.Context) (map[bson.ObjectID]string, error) {
	cats, err := r.List(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make(map[bson.ObjectID]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
