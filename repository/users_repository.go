package repository

import (
	"context"
	"time"

	"github.com/fashalt/fashaltbackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(col *mongo.Collection) *UserRepository {
	return &UserRepository{col: col}
}

func (r *UserRepository) Insert(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Wishlist == nil {
		u.Wishlist = []bson.ObjectID{}
	}
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		return err
	}
	u.ID = res.InsertedID.(bson.ObjectID)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, id bson.ObjectID, upd models.UserUpdate) (*models.User, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.PasswordHash != nil {
		set["passwordHash"] = *upd.PasswordHash
	}
	if upd.Gender != nil {
		set["gender"] = *upd.Gender
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// AddToWishlist reports false when the product was already listed.
func (r *UserRepository) AddToWishlist(ctx context.Context, userID, productID bson.ObjectID) (bool, error) {
	res, err := r.col.UpdateByID(ctx, userID, bson.M{"$addToSet": bson.M{"wishlist": productID}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, ErrNotFound
	}
	return res.ModifiedCount == 1, nil
}

func (r *UserRepository) RemoveFromWishlist(ctx context.Context, userID, productID bson.ObjectID) error {
	res, err := r.col.UpdateByID(ctx, userID, bson.M{"$pull": bson.M{"wishlist": productID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, id bson.ObjectID, tokenHash string, expire time.Time) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"resetPasswordToken":  tokenHash,
		"resetPasswordExpire": expire,
	}})
	return err
}

func (r *UserRepository) ClearResetToken(ctx context.Context, id bson.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$unset": bson.M{
		"resetPasswordToken":  "",
		"resetPasswordExpire": "",
	}})
	return err
}

// FindByResetToken only matches tokens that have not expired at now.
func (r *UserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	var u models.User
	filter := bson.M{
		"resetPasswordToken":  tokenHash,
		"resetPasswordExpire": bson.M{"$gt": now},
	}
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ResetPassword stores the new hash and consumes the reset token in one write.
func (r *UserRepository) ResetPassword(ctx context.Context, id bson.ObjectID, passwordHash string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"passwordHash": passwordHash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"resetPasswordToken": "", "resetPasswordExpire": ""},
	})
	return err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}

func (r *UserRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return r.col.CountDocuments(ctx, createdBetween(from, to))
}
