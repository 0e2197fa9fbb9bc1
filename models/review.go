package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	User      bson.ObjectID `bson:"user" json:"user"`
	Product   bson.ObjectID `bson:"product" json:"product"`
	Rating    float64       `bson:"rating" json:"rating"`
	Comment   string        `bson:"comment" json:"comment"`
	Image     []Image       `bson:"image" json:"image"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// ReviewAuthor is the public projection of a reviewer.
type ReviewAuthor struct {
	ID     bson.ObjectID `bson:"_id" json:"_id"`
	Name   string        `bson:"name" json:"name"`
	Avatar *Image        `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

type ReviewWithAuthor struct {
	Review `bson:",inline"`
	Author *ReviewAuthor `bson:"author,omitempty" json:"author,omitempty"`
}
