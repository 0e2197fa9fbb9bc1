package dto

import "github.com/fashalt/fashaltbackend/models"

type OrderItemDTO struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Size      string `json:"size"`
}

// CreateOrderDTO keeps amounts as pointers so a missing subtotal or total can be told
// apart from zero.
type CreateOrderDTO struct {
	UserID              string          `json:"userId"`
	Items               []OrderItemDTO  `json:"items"`
	PaymentMethod       string          `json:"paymentMethod"`
	ShippingAddress     *models.Address `json:"shippingAddress"`
	Subtotal            *float64        `json:"subtotal"`
	Total               *float64        `json:"total"`
	Discounts           float64         `json:"discounts"`
	Tax                 float64         `json:"tax"`
	ShippingCharge      float64         `json:"shippingCharge"`
	CustomerName        string          `json:"customerName"`
	CustomerPhoneNumber string          `json:"customerPhoneNumber"`
	RazorpayOrderID     string          `json:"razorpayOrderId"`
	RazorpayPaymentID   string          `json:"razorpayPaymentId"`
	RazorpaySignature   string          `json:"razorpaySignature"`
}

type CheckStockDTO struct {
	Items []OrderItemDTO `json:"items" binding:"required,min=1,dive"`
}

type UpdateOrderStatusDTO struct {
	Status string `json:"status" binding:"required"`
}
