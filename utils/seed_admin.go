package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SeedAdminUser creates the configured admin account if it does not exist yet.
// Without credentials configured it is a no-op.
func SeedAdminUser(ctx context.Context, usersCol *mongo.Collection, email, pass string) error {
	if email == "" || pass == "" {
		logger.Warn(ctx, "ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	hash, err := HashPassword(pass)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now().UTC()

	// Only insert if it doesn't exist
	filter := bson.M{"email": email}
	update := bson.M{
		"$setOnInsert": bson.M{
			"name":         "Admin",
			"email":        email,
			"passwordHash": hash,
			"role":         models.RoleAdmin,
			"wishlist":     bson.A{},
			"createdAt":    now,
			"updatedAt":    now,
		},
	}

	opts := options.UpdateOne().SetUpsert(true)

	res, err := usersCol.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("seed admin upsert failed: %w", err)
	}

	if res.UpsertedCount == 1 {
		logger.Info(ctx, "admin user seeded", "email", email)
	} else {
		logger.Info(ctx, "admin user already exists", "email", email)
	}

	return nil
}
