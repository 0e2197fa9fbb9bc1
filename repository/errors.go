// Package repository holds the MongoDB-backed stores. Every method takes the caller's
// context, so a session-bound context from database.Mongo.WithTransaction makes the call
// part of that transaction.
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStaleStatus       = errors.New("order status changed")
)

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
