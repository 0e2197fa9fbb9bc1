package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/cache"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/repository"
	"github.com/fashalt/fashaltbackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	defaultCatalogLimit = 8
	maxCatalogLimit     = 100
	showcaseSize        = 4
	saleShowcaseSize    = 8
	searchLimit         = 50
	productImageFolder  = "products"
)

// CatalogParams are the raw catalog query-string values.
type CatalogParams struct {
	Category string
	Price    string
	Brand    string
	Sizes    string
	Discount string
	Rating   string
	ForWhat  string
	Keyword  string
	Sort     string
	Page     int
	Limit    int
}

type ProductDetail struct {
	*models.Product
	CategoryInfo *models.Category          `json:"categoryInfo,omitempty"`
	ReviewList   []models.ReviewWithAuthor `json:"reviewList"`
}

type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Discount    float64
	Brand       string
	Stock       int
	Category    string
	Sizes       []string
	For         []string
	Sale        bool
}

type ProductChanges struct {
	Name          *string
	Description   *string
	Price         *float64
	Discount      *float64
	Brand         *string
	Stock         *int
	Category      *string
	Sizes         *[]string
	For           *[]string
	Sale          *bool
	RemovedImages []string
}

type CatalogService struct {
	products   ProductStore
	categories CategoryStore
	reviews    ReviewStore
	images     ImageStore
	dashboard  DashboardCache
	maxImages  int
}

// NewCatalogService wires the catalog. dashboard may be nil.
func NewCatalogService(products ProductStore, categories CategoryStore, reviews ReviewStore, images ImageStore, dashboard DashboardCache, maxImages int) *CatalogService {
	if maxImages <= 0 {
		maxImages = 5
	}
	if dashboard == nil {
		dashboard = cache.Noop{}
	}
	return &CatalogService{products: products, categories: categories, reviews: reviews, images: images, dashboard: dashboard, maxImages: maxImages}
}

// ParsePriceRange accepts "min-max".
func ParsePriceRange(raw string) (*models.PriceRange, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return nil, apperr.Validation("Price must be in the form min-max")
	}
	lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lo < 0 || hi < lo {
		return nil, apperr.Validation("Price must be in the form min-max")
	}
	return &models.PriceRange{Min: lo, Max: hi}, nil
}

func parseSizes(raw []string) ([]models.Size, error) {
	sizes := make([]models.Size, 0, len(raw))
	for _, r := range raw {
		s, ok := models.ParseSize(r)
		if !ok {
			return nil, apperr.Validation("Invalid size %q", r)
		}
		sizes = append(sizes, s)
	}
	return sizes, nil
}

func parseAudiences(raw []string) ([]models.Audience, error) {
	out := make([]models.Audience, 0, len(raw))
	for _, r := range raw {
		a, ok := models.ParseAudience(r)
		if !ok {
			return nil, apperr.Validation("Invalid 'for' value %q. It must be 'mens', 'womens', or 'kids'.", r)
		}
		out = append(out, a)
	}
	return out, nil
}

// buildQuery turns raw params into a product query. ok is false when the named
// category does not exist, in which case nothing can match.
func (s *CatalogService) buildQuery(ctx context.Context, p CatalogParams) (q models.ProductQuery, ok bool, err error) {
	f := models.ProductFilter{
		Brands:  utils.SplitCSV(p.Brand),
		Keyword: strings.TrimSpace(p.Keyword),
	}

	if name := strings.TrimSpace(p.Category); name != "" {
		cat, err := s.categories.FindByName(ctx, name)
		if errors.Is(err, repository.ErrNotFound) {
			return q, false, nil
		}
		if err != nil {
			return q, false, apperr.Internal(err, "Failed to resolve category")
		}
		f.Category = &cat.ID
	}
	if raw := utils.SplitCSV(p.Sizes); len(raw) > 0 {
		if f.Sizes, err = parseSizes(raw); err != nil {
			return q, false, err
		}
	}
	if p.Price != "" {
		if f.Price, err = ParsePriceRange(p.Price); err != nil {
			return q, false, err
		}
	}
	if f.Discount, err = utils.ParseFloat(p.Discount); err != nil {
		return q, false, apperr.Validation("Invalid discount")
	}
	if f.Rating, err = utils.ParseFloat(p.Rating); err != nil {
		return q, false, apperr.Validation("Invalid rating")
	}
	if strings.TrimSpace(p.ForWhat) != "" {
		a, valid := models.ParseAudience(p.ForWhat)
		if !valid {
			return q, false, apperr.Validation("Invalid 'forwhat' value. It must be 'mens', 'womens', or 'kids'.")
		}
		f.Audience = a
	}

	page, limit := catalogWindow(p)
	return models.ProductQuery{
		Filter: f,
		Sort:   models.ParseSortKey(p.Sort),
		Skip:   int64(page-1) * int64(limit),
		Limit:  int64(limit),
	}, true, nil
}

func catalogWindow(p CatalogParams) (page, limit int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultCatalogLimit
	}
	return page, min(limit, maxCatalogLimit)
}

// Query runs a filtered, sorted and paginated catalog listing.
func (s *CatalogService) Query(ctx context.Context, p CatalogParams) (*models.Page[models.Product], error) {
	q, ok, err := s.buildQuery(ctx, p)
	if err != nil {
		return nil, err
	}
	page, limit := catalogWindow(p)
	if !ok {
		return newPage([]models.Product{}, 0, page, limit), nil
	}
	products, total, err := s.products.Find(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load products")
	}
	return newPage(products, total, page, limit), nil
}

func (s *CatalogService) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.Validation("Keyword is required for searching.")
	}
	products, err := s.products.Search(ctx, keyword, searchLimit)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to search products")
	}
	return products, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*ProductDetail, error) {
	pid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, pid)
	if err != nil {
		return nil, storeErr(err, "Product not found")
	}
	detail := &ProductDetail{Product: p}
	if cat, err := s.categories.FindByID(ctx, p.Category); err == nil {
		detail.CategoryInfo = cat
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Internal(err, "Failed to load category")
	}
	if detail.ReviewList, err = s.reviews.ListWithAuthors(ctx, pid); err != nil {
		return nil, apperr.Internal(err, "Failed to load reviews")
	}
	return detail, nil
}

func (s *CatalogService) NewArrivals(ctx context.Context) ([]models.Product, error) {
	out, err := s.products.Latest(ctx, showcaseSize)
	return out, storeErr(err, "")
}

func (s *CatalogService) TopSelling(ctx context.Context) ([]models.Product, error) {
	out, err := s.products.TopSelling(ctx, showcaseSize)
	return out, storeErr(err, "")
}

func (s *CatalogService) Sale(ctx context.Context) ([]models.Product, error) {
	out, err := s.products.OnSale(ctx, saleShowcaseSize)
	return out, storeErr(err, "")
}

func (s *CatalogService) Related(ctx context.Context, categoryID string) ([]models.Product, error) {
	cid, err := parseID(categoryID, "category")
	if err != nil {
		return nil, err
	}
	out, err := s.products.ByCategory(ctx, cid, showcaseSize)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load products")
	}
	if len(out) == 0 {
		return nil, apperr.NotFound("No products found for this category")
	}
	return out, nil
}

// resolveCategory accepts either a category id or its name.
func (s *CatalogService) resolveCategory(ctx context.Context, ref string) (bson.ObjectID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return bson.ObjectID{}, apperr.Validation("Category is required")
	}
	var (
		cat *models.Category
		err error
	)
	if id, perr := bson.ObjectIDFromHex(ref); perr == nil {
		cat, err = s.categories.FindByID(ctx, id)
	} else {
		cat, err = s.categories.FindByName(ctx, ref)
	}
	if err != nil {
		return bson.ObjectID{}, storeErr(err, "Category not found")
	}
	return cat.ID, nil
}

func (s *CatalogService) Create(ctx context.Context, in ProductInput, files []*multipart.FileHeader) (*models.Product, error) {
	in.Name, in.Description, in.Brand = strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), strings.TrimSpace(in.Brand)
	if in.Name == "" || in.Description == "" || in.Brand == "" || len(in.Sizes) == 0 || len(files) == 0 {
		return nil, apperr.Validation("All fields and at least one image are required")
	}
	if in.Price <= 0 {
		return nil, apperr.Validation("Price must be greater than 0")
	}
	if in.Stock < 0 {
		return nil, apperr.Validation("Stock must not be negative")
	}
	if in.Discount < 0 || in.Discount > 100 {
		return nil, apperr.Validation("Discount must be between 0 and 100")
	}
	if len(files) > s.maxImages {
		return nil, apperr.Validation("Max %d images", s.maxImages)
	}
	sizes, err := parseSizes(in.Sizes)
	if err != nil {
		return nil, err
	}
	audiences, err := parseAudiences(in.For)
	if err != nil {
		return nil, err
	}
	categoryID, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, err
	}

	images, err := uploadMany(ctx, s.images, productImageFolder, files)
	if err != nil {
		return nil, err
	}

	p := &models.Product{
		Name:        in.Name,
		Slug:        utils.GenerateSlug(in.Name),
		Description: in.Description,
		Images:      images,
		Category:    categoryID,
		Brand:       in.Brand,
		Price:       in.Price,
		Discount:    in.Discount,
		Stock:       in.Stock,
		Sizes:       sizes,
		For:         audiences,
		Sale:        in.Sale,
	}
	if err := s.products.Insert(ctx, p); err != nil {
		dropImages(ctx, s.images, images)
		if utils.IsDuplicateKey(err) {
			return nil, apperr.Conflict("Product %q already exists", in.Name)
		}
		return nil, apperr.Internal(err, "Failed to create product")
	}
	logger.Info(ctx, "product created", "product_id", p.ID.Hex(), "name", p.Name)
	invalidateDashboard(ctx, s.dashboard)
	return p, nil
}

func (s *CatalogService) toUpdate(ctx context.Context, ch ProductChanges) (models.ProductUpdate, error) {
	u := models.ProductUpdate{
		Name: ch.Name, Description: ch.Description, Price: ch.Price, Discount: ch.Discount,
		Brand: ch.Brand, Stock: ch.Stock, Sale: ch.Sale,
	}
	if u.Price != nil && *u.Price <= 0 {
		return u, apperr.Validation("Price must be greater than 0")
	}
	if u.Stock != nil && *u.Stock < 0 {
		return u, apperr.Validation("Stock must not be negative")
	}
	if u.Discount != nil && (*u.Discount < 0 || *u.Discount > 100) {
		return u, apperr.Validation("Discount must be between 0 and 100")
	}
	if ch.Category != nil {
		id, err := s.resolveCategory(ctx, *ch.Category)
		if err != nil {
			return u, err
		}
		u.Category = &id
	}
	if ch.Sizes != nil {
		sizes, err := parseSizes(*ch.Sizes)
		if err != nil {
			return u, err
		}
		u.Sizes = &sizes
	}
	if ch.For != nil {
		aud, err := parseAudiences(*ch.For)
		if err != nil {
			return u, err
		}
		u.For = &aud
	}
	return u, nil
}

// Update applies field changes, removes the listed images and adds new uploads. New
// uploads are rolled back if the write fails; removed images are deleted only after it
// succeeds.
func (s *CatalogService) Update(ctx context.Context, id string, ch ProductChanges, files []*multipart.FileHeader) (*models.Product, error) {
	pid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	current, err := s.products.FindByID(ctx, pid)
	if err != nil {
		return nil, storeErr(err, "Product not found")
	}

	upd, err := s.toUpdate(ctx, ch)
	if err != nil {
		return nil, err
	}

	removed := utils.IntersectStrings(ch.RemovedImages, utils.PublicIDs(current.Images))
	remaining := len(current.Images) - len(removed) + len(files)
	if remaining > s.maxImages {
		return nil, apperr.Validation("Max %d images", s.maxImages)
	}
	if remaining == 0 {
		return nil, apperr.Validation("A product needs at least one image")
	}

	var added []models.Image
	if len(files) > 0 {
		if added, err = uploadMany(ctx, s.images, productImageFolder, files); err != nil {
			return nil, err
		}
	}
	if len(removed) > 0 || len(added) > 0 {
		merged := mergeImages(current.Images, removed, added)
		upd.Images = &merged
	}
	if upd.Empty() {
		return nil, apperr.Validation("no updates provided")
	}

	updated, err := s.products.Update(ctx, pid, upd)
	if err != nil {
		dropImages(ctx, s.images, added)
		return nil, storeErr(err, "Product not found")
	}

	if len(removed) > 0 {
		gone := make([]models.Image, 0, len(removed))
		for _, publicID := range removed {
			gone = append(gone, models.Image{PublicID: publicID})
		}
		dropImages(ctx, s.images, gone)
	}
	return updated, nil
}

// mergeImages keeps current minus removed, then appends added.
func mergeImages(current []models.Image, removed []string, added []models.Image) []models.Image {
	drop := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		drop[id] = struct{}{}
	}
	out := make([]models.Image, 0, len(current)+len(added))
	for _, img := range current {
		if _, ok := drop[img.PublicID]; !ok {
			out = append(out, img)
		}
	}
	return append(out, added...)
}

// Delete removes the product, its reviews and every stored image belonging to either.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	pid, err := parseID(id, "product")
	if err != nil {
		return err
	}
	p, err := s.products.FindByID(ctx, pid)
	if err != nil {
		return storeErr(err, "Product not found")
	}
	reviewImages, err := s.reviews.DeleteByProduct(ctx, pid)
	if err != nil {
		return apperr.Internal(err, "Failed to delete product reviews")
	}
	if err := s.products.Delete(ctx, pid); err != nil {
		return storeErr(err, "Product not found")
	}
	dropImages(ctx, s.images, append(p.Images, reviewImages...))
	logger.Info(ctx, "product deleted", "product_id", pid.Hex())
	invalidateDashboard(ctx, s.dashboard)
	return nil
}

// ExportRow is one spreadsheet line of the product export.
type ExportRow struct {
	Product      models.Product
	CategoryName string
}

func (s *CatalogService) ExportRows(ctx context.Context) ([]ExportRow, error) {
	products, err := s.products.All(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to fetch products")
	}
	names, err := s.categories.Names(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to fetch categories")
	}
	rows := make([]ExportRow, len(products))
	for i, p := range products {
		name, ok := names[p.Category]
		if !ok {
			name = fmt.Sprintf("(missing %s)", p.Category.Hex())
		}
		rows[i] = ExportRow{Product: p, CategoryName: name}
	}
	return rows, nil
}
