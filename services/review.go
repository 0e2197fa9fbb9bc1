package services

import (
	"context"
	"math"
	"mime/multipart"
	"strings"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const reviewImageFolder = "reviews"

type ReviewService struct {
	tx       Transactor
	reviews  ReviewStore
	products ProductStore
	images   ImageStore
}

func NewReviewService(tx Transactor, reviews ReviewStore, products ProductStore, images ImageStore) *ReviewService {
	return &ReviewService{tx: tx, reviews: reviews, products: products, images: images}
}

// averageRating is the arithmetic mean, 0 for no ratings.
func averageRating(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return math.Round(sum/float64(len(ratings))*100) / 100
}

// refreshRating recomputes the product's rating aggregate from its stored reviews.
func (s *ReviewService) refreshRating(ctx context.Context, productID bson.ObjectID) error {
	ratings, err := s.reviews.Ratings(ctx, productID)
	if err != nil {
		return err
	}
	return s.products.SetRating(ctx, productID, averageRating(ratings), len(ratings))
}

type ReviewInput struct {
	ProductID string
	Rating    float64
	Comment   string
}

func (s *ReviewService) Create(ctx context.Context, req Requester, in ReviewInput, image *multipart.FileHeader) (*models.Review, error) {
	pid, err := parseID(in.ProductID, "product")
	if err != nil {
		return nil, err
	}
	if math.IsNaN(in.Rating) || in.Rating < models.MinRating || in.Rating > models.MaxRating {
		return nil, apperr.Validation("Rating must be a number between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		return nil, apperr.Validation("Comment is required")
	}
	if _, err := s.products.FindByID(ctx, pid); err != nil {
		return nil, storeErr(err, "Product not found")
	}
	exists, err := s.reviews.Exists(ctx, req.ID, pid)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to check existing review")
	}
	if exists {
		return nil, apperr.Conflict("You have already reviewed this product")
	}

	img, err := uploadOne(ctx, s.images, reviewImageFolder, image)
	if err != nil {
		return nil, err
	}
	rv := &models.Review{User: req.ID, Product: pid, Rating: in.Rating, Comment: comment}
	if img != nil {
		rv.Image = []models.Image{*img}
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		rv.ID = bson.ObjectID{}
		if err := s.reviews.Insert(ctx, rv); err != nil {
			return err
		}
		if err := s.products.AddReview(ctx, pid, rv.ID); err != nil {
			return err
		}
		return s.refreshRating(ctx, pid)
	})
	if err != nil {
		dropImages(ctx, s.images, rv.Image)
		if utils.IsDuplicateKey(err) {
			return nil, apperr.Conflict("You have already reviewed this product")
		}
		return nil, storeErr(err, "Product not found")
	}
	logger.Info(ctx, "review created", "review_id", rv.ID.Hex(), "product_id", pid.Hex())
	return rv, nil
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID string) ([]models.ReviewWithAuthor, error) {
	pid, err := parseID(productID, "product")
	if err != nil {
		return nil, err
	}
	out, err := s.reviews.ListWithAuthors(ctx, pid)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load reviews")
	}
	return out, nil
}

// Delete is allowed to the review's author and to admins.
func (s *ReviewService) Delete(ctx context.Context, req Requester, id string) error {
	rid, err := parseID(id, "review")
	if err != nil {
		return err
	}
	rv, err := s.reviews.FindByID(ctx, rid)
	if err != nil {
		return storeErr(err, "Review not found")
	}
	if rv.User != req.ID && !req.IsAdmin() {
		return apperr.Forbidden("You can only delete your own reviews")
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.reviews.Delete(ctx, rid); err != nil {
			return err
		}
		if err := s.products.RemoveReview(ctx, rv.Product, rid); err != nil {
			return err
		}
		return s.refreshRating(ctx, rv.Product)
	})
	if err != nil {
		return storeErr(err, "Review not found")
	}
	dropImages(ctx, s.images, rv.Image)
	return nil
}
