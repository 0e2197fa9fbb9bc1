package controllers

import (
	"context"
	"mime/multipart"

	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/payment"
	"github.com/fashalt/fashaltbackend/services"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// The handlers depend on these narrow views of the services so they can be driven by
// stubs in tests. *services.XService satisfies each one.

type Catalog interface {
	Query(ctx context.Context, p services.CatalogParams) (*models.Page[models.Product], error)
	Search(ctx context.Context, keyword string) ([]models.Product, error)
	Get(ctx context.Context, id string) (*services.ProductDetail, error)
	NewArrivals(ctx context.Context) ([]models.Product, error)
	TopSelling(ctx context.Context) ([]models.Product, error)
	Sale(ctx context.Context) ([]models.Product, error)
	Related(ctx context.Context, categoryID string) ([]models.Product, error)
	Create(ctx context.Context, in services.ProductInput, files []*multipart.FileHeader) (*models.Product, error)
	Update(ctx context.Context, id string, ch services.ProductChanges, files []*multipart.FileHeader) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	ExportRows(ctx context.Context) ([]services.ExportRow, error)
}

type Categories interface {
	Create(ctx context.Context, name, forWhat string, image *multipart.FileHeader) (*models.Category, error)
	List(ctx context.Context, forWhat string) ([]models.Category, error)
	ListFor(ctx context.Context, forWhat string) ([]models.Category, error)
	Delete(ctx context.Context, id string) error
}

type Reviews interface {
	Create(ctx context.Context, req services.Requester, in services.ReviewInput, image *multipart.FileHeader) (*models.Review, error)
	ListForProduct(ctx context.Context, productID string) ([]models.ReviewWithAuthor, error)
	Delete(ctx context.Context, req services.Requester, id string) error
}

type Accounts interface {
	Register(ctx context.Context, in services.RegisterInput, avatar *multipart.FileHeader) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Profile(ctx context.Context, userID bson.ObjectID) (*services.Profile, error)
	UpdateProfile(ctx context.Context, userID bson.ObjectID, ch services.ProfileChanges, avatar *multipart.FileHeader) (*models.User, error)
	AddToWishlist(ctx context.Context, userID bson.ObjectID, productID string) error
	RemoveFromWishlist(ctx context.Context, userID bson.ObjectID, productID string) error
	Wishlist(ctx context.Context, userID bson.ObjectID) ([]models.Product, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, password string) error
}

type Orders interface {
	Create(ctx context.Context, req services.Requester, in services.CreateOrderInput) (*services.CreateOrderResult, error)
	CheckStock(ctx context.Context, in []services.OrderItemInput) ([]services.StockLine, bool, error)
	Get(ctx context.Context, req services.Requester, id string) (*models.Order, error)
	MyOrders(ctx context.Context, userID bson.ObjectID, page, limit int) (*models.Page[models.Order], error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

type Payments interface {
	CreatePaymentOrder(ctx context.Context, amount float64) (*payment.GatewayOrder, string, error)
	Verify(orderID, paymentID, signature string) error
}

type Dashboard interface {
	Counts(ctx context.Context) (*services.DashboardCounts, error)
	Week(ctx context.Context) (*services.Histogram, error)
	Months(ctx context.Context) (*services.Histogram, error)
	LatestTransactions(ctx context.Context) ([]services.Transaction, error)
	StatusBreakdown(ctx context.Context) ([]services.StatusSlice, error)
	Orders(ctx context.Context, page, limit int) (*models.Page[models.Order], error)
}
