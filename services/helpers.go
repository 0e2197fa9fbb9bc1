package services

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/repository"
	"github.com/fashalt/fashaltbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func parseID(raw, what string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, apperr.Validation("Invalid %s id", what)
	}
	return id, nil
}

// storeErr classifies a store failure. notFoundMsg is used for a missing document.
func storeErr(err error, notFoundMsg string) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("%s", notFoundMsg)
	default:
		return apperr.Internal(err, "Internal Server Error")
	}
}

// pageWindow validates 1-based paging and returns the number of documents to skip.
func pageWindow(page, limit int) (int64, error) {
	if page < 1 {
		return 0, apperr.Validation("Invalid page number")
	}
	if limit < 1 {
		return 0, apperr.Validation("Invalid limit")
	}
	return int64(page-1) * int64(limit), nil
}

func newPage[T any](items []T, total int64, page, limit int) *models.Page[T] {
	if items == nil {
		items = []T{}
	}
	return &models.Page[T]{
		Items:      items,
		Total:      total,
		TotalPages: models.TotalPages(total, limit),
		Page:       page,
		Limit:      limit,
	}
}

// dropImages removes stored images after the owning document is gone. Failures are
// logged only; the mutation they follow has already been committed.
func dropImages(ctx context.Context, store ImageStore, images []models.Image) {
	ids := utils.PublicIDs(images)
	if len(ids) == 0 {
		return
	}
	if err := store.Delete(ctx, ids); err != nil {
		logger.Warn(ctx, "failed to delete stored images", "count", len(ids), "error", err)
	}
}

func uploadOne(ctx context.Context, store ImageStore, folder string, fh *multipart.FileHeader) (*models.Image, error) {
	if fh == nil {
		return nil, nil
	}
	img, err := store.Upload(ctx, folder, fh)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to upload image")
	}
	return &img, nil
}

func uploadMany(ctx context.Context, store ImageStore, folder string, files []*multipart.FileHeader) ([]models.Image, error) {
	images, err := utils.UploadImages(ctx, store, folder, files)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to upload images")
	}
	return images, nil
}

// invalidateDashboard drops cached dashboard aggregates after a write that changes them.
func invalidateDashboard(ctx context.Context, c DashboardCache) {
	if err := c.Invalidate(ctx); err != nil {
		logger.Warn(ctx, "dashboard cache invalidation failed", "error", err)
	}
}
