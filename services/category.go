package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/repository"
	"github.com/fashalt/fashaltbackend/utils"
)

const categoryImageFolder = "categories"

type CategoryService struct {
	categories CategoryStore
	products   ProductStore
	images     ImageStore
}

func NewCategoryService(categories CategoryStore, products ProductStore, images ImageStore) *CategoryService {
	return &CategoryService{categories: categories, products: products, images: images}
}

func parseOptionalAudience(raw string) (models.Audience, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	a, ok := models.ParseAudience(raw)
	if !ok {
		return "", apperr.Validation("Invalid 'forWhat' value. It must be 'mens', 'womens', or 'kids'.")
	}
	return a, nil
}

func (s *CategoryService) Create(ctx context.Context, name, forWhat string, image *multipart.FileHeader) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("Category name is required")
	}
	audience, err := parseOptionalAudience(forWhat)
	if err != nil {
		return nil, err
	}

	if _, err := s.categories.FindByName(ctx, name); err == nil {
		return nil, apperr.Conflict("Category already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err, "Failed to check category")
	}

	img, err := uploadOne(ctx, s.images, categoryImageFolder, image)
	if err != nil {
		return nil, err
	}

	cat := &models.Category{Name: name, For: audience, Image: img}
	if err := s.categories.Insert(ctx, cat); err != nil {
		if img != nil {
			dropImages(ctx, s.images, []models.Image{*img})
		}
		if utils.IsDuplicateKey(err) {
			return nil, apperr.Conflict("Category already exists")
		}
		return nil, apperr.Internal(err, "Failed to create category")
	}
	logger.Info(ctx, "category created", "category_id", cat.ID.Hex(), "name", name)
	return cat, nil
}

// List returns every category, or only those serving the given audience.
func (s *CategoryService) List(ctx context.Context, forWhat string) ([]models.Category, error) {
	audience, err := parseOptionalAudience(forWhat)
	if err != nil {
		return nil, err
	}
	cats, err := s.categories.List(ctx, audience)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load categories")
	}
	return cats, nil
}

func (s *CategoryService) ListFor(ctx context.Context, forWhat string) ([]models.Category, error) {
	if strings.TrimSpace(forWhat) == "" {
		return nil, apperr.Validation("Invalid 'forWhat' value. It must be 'mens', 'womens', or 'kids'.")
	}
	return s.List(ctx, forWhat)
}

// Delete refuses while products still reference the category.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	cid, err := parseID(id, "category")
	if err != nil {
		return err
	}
	cat, err := s.categories.FindByID(ctx, cid)
	if err != nil {
		return storeErr(err, "Category not found")
	}
	n, err := s.products.CountByCategory(ctx, cid)
	if err != nil {
		return apperr.Internal(err, "Failed to check category usage")
	}
	if n > 0 {
		return apperr.Conflict("Category is used by %d product(s)", n)
	}
	if err := s.categories.Delete(ctx, cid); err != nil {
		return storeErr(err, "Category not found")
	}
	if cat.Image != nil {
		dropImages(ctx, s.images, []models.Image{*cat.Image})
	}
	logger.Info(ctx, "category deleted", "category_id", cid.Hex())
	return nil
}
