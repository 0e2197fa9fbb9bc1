package dto

type CreatePaymentDTO struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type VerifyPaymentDTO struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}
