package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/cache"
	"github.com/fashalt/fashaltbackend/events"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/repository"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	deliveryDays = 5

	// DefaultOrderPageSize is used when the client sends no limit.
	DefaultOrderPageSize = 10
)

var totalTolerance = decimal.New(1, -2)

type OrderItemInput struct {
	ProductID string
	Quantity  int
	Size      string
}

type CreateOrderInput struct {
	// UserID is the buyer; empty means the requester.
	UserID          string
	Items           []OrderItemInput
	PaymentMethod   string
	ShippingAddress *models.Address

	Subtotal       *float64
	Total          *float64
	Discounts      float64
	Tax            float64
	ShippingCharge float64

	CustomerName        string
	CustomerPhoneNumber string

	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
}

type CreateOrderResult struct {
	Order          *models.Order
	InvoiceSent    bool
	InvoiceMessage string
}

// StockLine is the availability of one requested item.
type StockLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	InStock   bool   `json:"inStock"`
}

type OrderDeps struct {
	Tx       Transactor
	Orders   OrderStore
	Products ProductStore
	Users    UserStore
	Invoices InvoiceRenderer
	Mailer   Mailer
	Verifier SignatureVerifier
	Payments PaymentLookup
	Events   EventPublisher
	Live     Broadcaster
	Cache    DashboardCache
	Metrics  OrderMetrics
	Now      func() time.Time
}

type OrderService struct {
	tx       Transactor
	orders   OrderStore
	products ProductStore
	users    UserStore
	invoices InvoiceRenderer
	mailer   Mailer
	verifier SignatureVerifier
	payments PaymentLookup
	events   EventPublisher
	live     Broadcaster
	cache    DashboardCache
	metrics  OrderMetrics
	now      func() time.Time
}

func NewOrderService(d OrderDeps) *OrderService {
	s := &OrderService{
		tx: d.Tx, orders: d.Orders, products: d.Products, users: d.Users,
		invoices: d.Invoices, mailer: d.Mailer, verifier: d.Verifier, payments: d.Payments,
		events: d.Events, live: d.Live, cache: d.Cache, metrics: d.Metrics, now: d.Now,
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.live == nil {
		s.live = noopBroadcaster{}
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type lineItem struct {
	productID bson.ObjectID
	quantity  int
	size      models.Size
}

type checkout struct {
	buyer  bson.ObjectID
	items  []lineItem
	method models.PaymentMethod
}

func parseLineItems(in []OrderItemInput) ([]lineItem, error) {
	if len(in) == 0 {
		return nil, apperr.Validation("Missing required fields")
	}
	items := make([]lineItem, 0, len(in))
	for i, it := range in {
		pid, err := bson.ObjectIDFromHex(it.ProductID)
		if err != nil {
			return nil, apperr.Validation("Invalid product id for item %d", i+1)
		}
		if it.Quantity < 1 {
			return nil, apperr.Validation("Quantity must be at least 1 for item %d", i+1)
		}
		li := lineItem{productID: pid, quantity: it.Quantity}
		if it.Size != "" {
			size, ok := models.ParseSize(it.Size)
			if !ok {
				return nil, apperr.Validation("Invalid size %q for item %d", it.Size, i+1)
			}
			li.size = size
		}
		items = append(items, li)
	}
	return items, nil
}

func addressComplete(a *models.Address) bool {
	return a != nil && strings.TrimSpace(a.Street) != "" && strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.State) != "" && strings.TrimSpace(a.ZipCode) != "" && strings.TrimSpace(a.Country) != ""
}

// TotalsConsistent reports whether total = subtotal - discounts + tax + shipping, to the cent.
func TotalsConsistent(subtotal, discounts, tax, shipping, total float64) bool {
	want := decimal.NewFromFloat(subtotal).
		Sub(decimal.NewFromFloat(discounts)).
		Add(decimal.NewFromFloat(tax)).
		Add(decimal.NewFromFloat(shipping))
	return want.Sub(decimal.NewFromFloat(total)).Abs().LessThanOrEqual(totalTolerance)
}

func (s *OrderService) validate(req Requester, in CreateOrderInput) (*checkout, error) {
	if in.PaymentMethod == "" || in.ShippingAddress == nil || in.Subtotal == nil || in.Total == nil || len(in.Items) == 0 {
		return nil, apperr.Validation("Missing required fields")
	}

	buyer := req.ID
	if in.UserID != "" {
		id, err := parseID(in.UserID, "user")
		if err != nil {
			return nil, err
		}
		buyer = id
	}
	if buyer.IsZero() {
		return nil, apperr.Validation("Missing required fields")
	}
	if buyer != req.ID && !req.IsAdmin() {
		return nil, apperr.Forbidden("You cannot place an order for another user")
	}

	items, err := parseLineItems(in.Items)
	if err != nil {
		return nil, err
	}

	method := models.PaymentMethod(strings.ToLower(in.PaymentMethod))
	switch method {
	case models.PaymentMethodCOD:
	case models.PaymentMethodRazorpay:
		if in.RazorpayOrderID == "" || in.RazorpayPaymentID == "" || in.RazorpaySignature == "" {
			return nil, apperr.Validation("Razorpay order id, payment id and signature are required")
		}
		if s.verifier == nil || !s.verifier.Verify(in.RazorpayOrderID, in.RazorpayPaymentID, in.RazorpaySignature) {
			return nil, apperr.Validation("Payment verification failed. Invalid signature.")
		}
	default:
		return nil, apperr.Validation("Unsupported payment method %q", in.PaymentMethod)
	}

	if !addressComplete(in.ShippingAddress) {
		return nil, apperr.Validation("Shipping address must include street, city, state, zipCode and country")
	}

	for _, v := range []float64{*in.Subtotal, *in.Total, in.Discounts, in.Tax, in.ShippingCharge} {
		if v < 0 {
			return nil, apperr.Validation("Amounts must not be negative")
		}
	}
	if *in.Subtotal == 0 || *in.Total == 0 {
		return nil, apperr.Validation("Missing required fields")
	}
	if !TotalsConsistent(*in.Subtotal, in.Discounts, in.Tax, in.ShippingCharge, *in.Total) {
		return nil, apperr.Validation("Total must equal subtotal - discounts + tax + shipping charge")
	}

	return &checkout{buyer: buyer, items: items, method: method}, nil
}

// confirmCharge checks that the gateway order behind a signed payment was opened for
// the order total.
func (s *OrderService) confirmCharge(ctx context.Context, gatewayOrderID string, total float64) error {
	if s.payments == nil {
		return apperr.Internal(errors.New("no payment lookup configured"), "Payment gateway is not configured")
	}
	gw, err := s.payments.FetchOrder(ctx, gatewayOrderID)
	if err != nil {
		return apperr.Internal(err, "Failed to confirm payment")
	}
	if want := ToMinorUnits(total); gw.Amount != want {
		logger.Warn(ctx, "payment amount mismatch", "gateway_order_id", gatewayOrderID, "charged", gw.Amount, "expected", want)
		return apperr.Validation("Payment amount does not match the order total")
	}
	return nil
}

func snapshotItem(p *models.Product, li lineItem) models.OrderItem {
	item := models.OrderItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  li.quantity,
		Size:      li.size,
	}
	if len(p.Images) > 0 {
		item.Image = p.Images[0].URL
	}
	return item
}

// Create places an order. Stock for every line is taken with a conditional decrement in
// the same transaction that inserts the order, so either all of it lands or none does.
// The invoice is produced and mailed after commit; failing that is reported in the
// result without touching the order.
func (s *OrderService) Create(ctx context.Context, req Requester, in CreateOrderInput) (res *CreateOrderResult, err error) {
	defer func() {
		if err != nil {
			s.metrics.CheckoutFailed(string(apperr.KindOf(err)))
		}
	}()

	co, err := s.validate(req, in)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, co.buyer)
	if err != nil {
		return nil, storeErr(err, "User not found")
	}
	if co.method == models.PaymentMethodRazorpay {
		if err := s.confirmCharge(ctx, in.RazorpayOrderID, *in.Total); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	order := &models.Order{
		OrderID:             in.RazorpayOrderID,
		UserID:              co.buyer,
		PaymentMethod:       co.method,
		PaymentStatus:       models.PaymentStatusPending,
		ShippingAddress:     *in.ShippingAddress,
		CustomerName:        in.CustomerName,
		CustomerPhoneNumber: in.CustomerPhoneNumber,
		Subtotal:            *in.Subtotal,
		Discounts:           in.Discounts,
		Tax:                 in.Tax,
		ShippingCharge:      in.ShippingCharge,
		Total:               *in.Total,
		Status:              models.OrderStatusPending,
		EstimatedDelivery:   now.AddDate(0, 0, deliveryDays),
		CreatedAt:           now,
	}
	if order.OrderID == "" {
		order.OrderID = fmt.Sprintf("ORD-%d", now.UnixMilli())
	}
	if co.method == models.PaymentMethodRazorpay {
		order.PaymentStatus = models.PaymentStatusPaid
		order.RazorpayPaymentID = in.RazorpayPaymentID
	}
	if order.CustomerName == "" {
		order.CustomerName = user.Name
	}
	if order.CustomerPhoneNumber == "" {
		order.CustomerPhoneNumber = user.PhoneNo
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		items := make([]models.OrderItem, 0, len(co.items))
		for _, li := range co.items {
			p, err := s.products.DecrementStock(ctx, li.productID, li.quantity)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return apperr.NotFound("Product with ID %s not found", li.productID.Hex())
			case errors.Is(err, repository.ErrInsufficientStock):
				return apperr.InsufficientStock("Insufficient stock for %s", p.Name)
			case err != nil:
				return err
			}
			if li.size != "" && len(p.Sizes) > 0 && !slices.Contains(p.Sizes, li.size) {
				return apperr.Validation("Size %s is not available for %s", li.size, p.Name)
			}
			items = append(items, snapshotItem(p, li))
		}
		order.Items = items
		order.ID = bson.ObjectID{}
		if err := s.orders.Insert(ctx, order); err != nil {
			if utils.IsDuplicateKey(err) {
				return apperr.Conflict("Order %s already exists", order.OrderID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apperr.Internal(err, "Failed to create order")
	}

	logger.Info(ctx, "order created", "order_id", order.OrderID, "user_id", co.buyer.Hex(), "items", len(order.Items), "total", order.Total)

	res = &CreateOrderResult{Order: order}
	res.InvoiceSent, res.InvoiceMessage = s.deliverInvoice(context.WithoutCancel(ctx), order, user)

	s.metrics.OrderCreated(string(order.PaymentMethod))
	s.announce(ctx, events.OrderCreated, order)
	return res, nil
}

func (s *OrderService) deliverInvoice(ctx context.Context, order *models.Order, user *models.User) (bool, string) {
	pdf, err := s.invoices.Render(order, user)
	if err != nil {
		logger.Error(ctx, "invoice generation failed", "order_id", order.OrderID, "error", err)
		s.metrics.InvoiceFailed()
		return false, "Order placed, but the invoice could not be generated"
	}
	if err := s.mailer.SendInvoice(ctx, user.Email, order.OrderID, pdf); err != nil {
		logger.Error(ctx, "invoice email failed", "order_id", order.OrderID, "error", err)
		s.metrics.InvoiceFailed()
		return false, "Order placed, but the invoice email could not be sent"
	}
	return true, "Invoice sent to your email"
}

// announce fans a committed change out to the event stream, live dashboards and cache.
func (s *OrderService) announce(ctx context.Context, t events.EventType, order *models.Order) {
	ev := events.NewOrderEvent(t, order)
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.Warn(ctx, "order event not published", "type", t, "order_id", order.OrderID, "error", err)
	}
	s.live.Broadcast(string(t), ev)
	invalidateDashboard(ctx, s.cache)
}

// CheckStock previews availability without reserving anything.
func (s *OrderService) CheckStock(ctx context.Context, in []OrderItemInput) ([]StockLine, bool, error) {
	items, err := parseLineItems(in)
	if err != nil {
		return nil, false, err
	}
	lines := make([]StockLine, 0, len(items))
	all := true
	for _, li := range items {
		p, err := s.products.FindByID(ctx, li.productID)
		if err != nil {
			return nil, false, storeErr(err, fmt.Sprintf("Product with ID %s not found", li.productID.Hex()))
		}
		ok := p.Stock >= li.quantity
		all = all && ok
		lines = append(lines, StockLine{
			ProductID: p.ID.Hex(),
			Name:      p.Name,
			Requested: li.quantity,
			Available: p.Stock,
			InStock:   ok,
		})
	}
	return lines, all, nil
}

func (s *OrderService) find(ctx context.Context, id string) (*models.Order, error) {
	var (
		o   *models.Order
		err error
	)
	if oid, perr := bson.ObjectIDFromHex(id); perr == nil {
		o, err = s.orders.FindByID(ctx, oid)
	} else {
		o, err = s.orders.FindByOrderID(ctx, id)
	}
	if err != nil {
		return nil, storeErr(err, "Order not found")
	}
	return o, nil
}

// Get returns an order to its buyer or to staff.
func (s *OrderService) Get(ctx context.Context, req Requester, id string) (*models.Order, error) {
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != req.ID && !req.IsStaff() {
		return nil, apperr.Forbidden("You are not allowed to view this order")
	}
	return o, nil
}

func (s *OrderService) MyOrders(ctx context.Context, userID bson.ObjectID, page, limit int) (*models.Page[models.Order], error) {
	skip, err := pageWindow(page, limit)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.orders.FindByUser(ctx, userID, skip, int64(limit))
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load orders")
	}
	return newPage(orders, total, page, limit), nil
}

// UpdateStatus applies an admin status change. The target must be one of
// Shipped/Delivered/Canceled/Returned and reachable from the current status.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	target := models.OrderStatus(status)
	if !target.IsUpdateTarget() {
		return nil, apperr.Validation("Invalid status. Allowed: Shipped, Delivered, Canceled, Returned")
	}
	o, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(target) {
		return nil, apperr.Conflict("Cannot change order status from %s to %s", o.Status, target)
	}

	updated, err := s.orders.UpdateStatus(ctx, o.ID, o.Status, target)
	if errors.Is(err, repository.ErrStaleStatus) {
		return nil, apperr.Conflict("Order status was changed by another request, reload and retry")
	}
	if err != nil {
		return nil, apperr.Internal(err, "Failed to update order status")
	}

	logger.Info(ctx, "order status updated", "order_id", updated.OrderID, "from", o.Status, "to", target)
	s.announce(ctx, events.OrderStatusChanged, updated)
	return updated, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	o, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, o.ID); err != nil {
		return storeErr(err, "Order not found")
	}
	logger.Info(ctx, "order deleted", "order_id", o.OrderID)
	s.announce(ctx, events.OrderDeleted, o)
	return nil
}
