package repository

import (
	"context"
	"time"

	"github.com/fashalt/fashaltbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(col *mongo.Collection) *OrderRepository {
	return &OrderRepository{col: col}
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	o.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Order, error) {
	var o models.Order
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	if err := r.col.FindOne(ctx, bson.M{"orderId": orderID}).Decode(&o); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrderRepository) page(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Order, int64, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	orders, err := decodeAll[models.Order](ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) FindByUser(ctx context.Context, userID bson.ObjectID, skip, limit int64) ([]models.Order, int64, error) {
	return r.page(ctx, bson.M{"userId": userID}, skip, limit)
}

func (r *OrderRepository) List(ctx context.Context, skip, limit int64) ([]models.Order, int64, error) {
	return r.page(ctx, bson.M{}, skip, limit)
}

func (r *OrderRepository) Latest(ctx context.Context, n int64) ([]models.Order, error) {
	orders, _, err := r.page(ctx, bson.M{}, 0, n)
	return orders, err
}

// UpdateStatus moves the order from one status to the next. It fails with
// ErrStaleStatus when the stored status is no longer from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id bson.ObjectID, from, to models.OrderStatus) (*models.Order, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var o models.Order
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&o); err != nil {
		if notFound(err) == ErrNotFound {
			return nil, ErrStaleStatus
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *OrderRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return r.col.CountDocuments(ctx, createdBetween(from, to))
}

// PointsSince returns the creation time, total and status of orders placed at or after since.
func (r *OrderRepository) PointsSince(ctx context.Context, since time.Time) ([]models.OrderPoint, error) {
	opts := options.Find().SetProjection(bson.M{"createdAt": 1, "total": 1, "status": 1})
	cur, err := r.col.Find(ctx, bson.M{"createdAt": bson.M{"$gte": since}}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.OrderPoint](ctx, cur)
}

func (r *OrderRepository) StatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	rows, err := decodeAll[struct {
		Status models.OrderStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}](ctx, cur)
	if err != nil {
		return nil, err
	}
	out := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
