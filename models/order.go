package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCanceled  OrderStatus = "Canceled"
	OrderStatusReturned  OrderStatus = "Returned"
)

// orderTransitions lists the statuses an admin may move an order to.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusShipped, OrderStatusCanceled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCanceled, OrderStatusReturned},
	OrderStatusDelivered: {OrderStatusReturned},
}

// IsUpdateTarget reports whether s may be requested by a status update at all.
func (s OrderStatus) IsUpdateTarget() bool {
	switch s {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled, OrderStatusReturned:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCanceled, OrderStatusReturned,
	}
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"
)

type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodCOD      PaymentMethod = "cod"
)

// OrderItem is a snapshot taken at checkout; later product edits do not change it.
type OrderItem struct {
	ProductID bson.ObjectID `bson:"productId" json:"productId"`
	Name      string        `bson:"name" json:"name"`
	Image     string        `bson:"image,omitempty" json:"image,omitempty"`
	Price     float64       `bson:"price" json:"price"`
	Quantity  int           `bson:"quantity" json:"quantity"`
	Size      Size          `bson:"size,omitempty" json:"size,omitempty"`
}

type Order struct {
	ID                  bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	OrderID             string        `bson:"orderId" json:"orderId"`
	UserID              bson.ObjectID `bson:"userId" json:"userId"`
	Items               []OrderItem   `bson:"items" json:"items"`
	PaymentMethod       PaymentMethod `bson:"paymentMethod" json:"paymentMethod"`
	PaymentStatus       PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	RazorpayPaymentID   string        `bson:"razorpayPaymentId,omitempty" json:"razorpayPaymentId,omitempty"`
	ShippingAddress     Address       `bson:"shippingAddress" json:"shippingAddress"`
	CustomerName        string        `bson:"customerName,omitempty" json:"customerName,omitempty"`
	CustomerPhoneNumber string        `bson:"customerPhoneNumber,omitempty" json:"customerPhoneNumber,omitempty"`
	Subtotal            float64       `bson:"subtotal" json:"subtotal"`
	Discounts           float64       `bson:"discounts" json:"discounts"`
	Tax                 float64       `bson:"tax" json:"tax"`
	ShippingCharge      float64       `bson:"shippingCharge" json:"shippingCharge"`
	Total               float64       `bson:"total" json:"total"`
	Status              OrderStatus   `bson:"status" json:"status"`
	EstimatedDelivery   time.Time     `bson:"estimatedDelivery" json:"estimatedDelivery"`
	CreatedAt           time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// OrderPoint is the slice of an order the dashboard needs.
type OrderPoint struct {
	CreatedAt time.Time   `bson:"createdAt"`
	Total     float64     `bson:"total"`
	Status    OrderStatus `bson:"status"`
}
