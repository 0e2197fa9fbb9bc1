// Package services holds the storefront's business rules. Services depend on the narrow
// interfaces below; the Mongo repositories and external adapters satisfy them in main,
// in-memory fakes satisfy them in tests.
package services

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/fashalt/fashaltbackend/events"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/payment"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Transactor runs fn in one atomic unit of work. fn must use the ctx it is given.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []bson.ObjectID) ([]models.Product, error)
	Find(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error)
	Search(ctx context.Context, keyword string, n int64) ([]models.Product, error)
	Latest(ctx context.Context, n int64) ([]models.Product, error)
	TopSelling(ctx context.Context, n int64) ([]models.Product, error)
	OnSale(ctx context.Context, n int64) ([]models.Product, error)
	ByCategory(ctx context.Context, categoryID bson.ObjectID, n int64) ([]models.Product, error)
	All(ctx context.Context) ([]models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id bson.ObjectID, u models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	DecrementStock(ctx context.Context, id bson.ObjectID, qty int) (*models.Product, error)
	AddReview(ctx context.Context, productID, reviewID bson.ObjectID) error
	RemoveReview(ctx context.Context, productID, reviewID bson.ObjectID) error
	SetRating(ctx context.Context, productID bson.ObjectID, rating float64, numReviews int) error
	CountByCategory(ctx context.Context, categoryID bson.ObjectID) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type CategoryStore interface {
	Insert(ctx context.Context, c *models.Category) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context, audience models.Audience) ([]models.Category, error)
	Names(ctx context.Context) (map[bson.ObjectID]string, error)
	Delete(ctx context.Context, id bson.ObjectID) error
}

type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Order, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindByUser(ctx context.Context, userID bson.ObjectID, skip, limit int64) ([]models.Order, int64, error)
	List(ctx context.Context, skip, limit int64) ([]models.Order, int64, error)
	Latest(ctx context.Context, n int64) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id bson.ObjectID, from, to models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	Count(ctx context.Context) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	PointsSince(ctx context.Context, since time.Time) ([]models.OrderPoint, error)
	StatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error)
}

type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, id bson.ObjectID, upd models.UserUpdate) (*models.User, error)
	AddToWishlist(ctx context.Context, userID, productID bson.ObjectID) (bool, error)
	RemoveFromWishlist(ctx context.Context, userID, productID bson.ObjectID) error
	SetResetToken(ctx context.Context, id bson.ObjectID, tokenHash string, expire time.Time) error
	ClearResetToken(ctx context.Context, id bson.ObjectID) error
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	ResetPassword(ctx context.Context, id bson.ObjectID, passwordHash string) error
	Count(ctx context.Context) (int64, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type ReviewStore interface {
	Insert(ctx context.Context, rv *models.Review) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Review, error)
	Exists(ctx context.Context, userID, productID bson.ObjectID) (bool, error)
	ListWithAuthors(ctx context.Context, productID bson.ObjectID) ([]models.ReviewWithAuthor, error)
	Ratings(ctx context.Context, productID bson.ObjectID) ([]float64, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	DeleteByProduct(ctx context.Context, productID bson.ObjectID) ([]models.Image, error)
}

// ImageStore is satisfied by utils.Bucket.
type ImageStore interface {
	Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (models.Image, error)
	Delete(ctx context.Context, publicIDs []string) error
}

type Mailer interface {
	SendInvoice(ctx context.Context, to, orderID string, pdf []byte) error
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

type InvoiceRenderer interface {
	Render(order *models.Order, user *models.User) ([]byte, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev events.OrderEvent) error
}

type Broadcaster interface {
	Broadcast(msgType string, data any)
}

type DashboardCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Invalidate(ctx context.Context) error
}

type OrderMetrics interface {
	OrderCreated(paymentMethod string)
	CheckoutFailed(kind string)
	InvoiceFailed()
}

type PaymentGateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amount int64, receipt string) (*payment.GatewayOrder, error)
}

// PaymentLookup reads gateway orders back after checkout.
type PaymentLookup interface {
	FetchOrder(ctx context.Context, id string) (*payment.GatewayOrder, error)
}

type SignatureVerifier interface {
	Verify(orderID, paymentID, signature string) bool
}

// Requester is the authenticated caller.
type Requester struct {
	ID   bson.ObjectID
	Role models.Role
}

func (r Requester) IsAdmin() bool { return r.Role == models.RoleAdmin }

// IsStaff reports admin or subAdmin.
func (r Requester) IsStaff() bool {
	return r.Role == models.RoleAdmin || r.Role == models.RoleSubAdmin
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, any) {}

type noopMetrics struct{}

func (noopMetrics) OrderCreated(string)   {}
func (noopMetrics) CheckoutFailed(string) {}
func (noopMetrics) InvoiceFailed()        {}
