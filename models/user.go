package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleSubAdmin Role = "subAdmin"
	RoleAdmin    Role = "admin"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipCode" json:"zipCode"`
	Country string `bson:"country" json:"country"`
}

type User struct {
	ID                  bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name                string          `bson:"name" json:"name"`
	Email               string          `bson:"email" json:"email"`
	PasswordHash        string          `bson:"passwordHash" json:"-"` // never expose
	Role                Role            `bson:"role" json:"role"`
	Avatar              *Image          `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Gender              Gender          `bson:"gender,omitempty" json:"gender,omitempty"`
	PhoneNo             string          `bson:"phoneNo,omitempty" json:"phoneNo,omitempty"`
	ShippingAddress     *Address        `bson:"shippingAddress,omitempty" json:"shippingAddress,omitempty"`
	Wishlist            []bson.ObjectID `bson:"wishlist" json:"wishlist"`
	ResetPasswordToken  string          `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpire *time.Time      `bson:"resetPasswordExpire,omitempty" json:"-"`
	CreatedAt           time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time       `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) InWishlist(productID bson.ObjectID) bool {
	return slices.Contains(u.Wishlist, productID)
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Gender       *Gender
	Avatar       *Image
}
