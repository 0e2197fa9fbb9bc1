package services

import (
	"context"
	"errors"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentService struct {
	gateway  PaymentGateway
	verifier SignatureVerifier
}

func NewPaymentService(gateway PaymentGateway, verifier SignatureVerifier) *PaymentService {
	return &PaymentService{gateway: gateway, verifier: verifier}
}

// ToMinorUnits converts a rupee amount to paise, rounding half away from zero.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreatePaymentOrder opens a gateway order the client completes checkout against.
func (s *PaymentService) CreatePaymentOrder(ctx context.Context, amount float64) (*payment.GatewayOrder, string, error) {
	if amount <= 0 {
		return nil, "", apperr.Validation("Amount must be greater than 0")
	}
	receipt := "rcpt_" + uuid.NewString()[:8]
	order, err := s.gateway.CreateOrder(ctx, ToMinorUnits(amount), receipt)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, "", apperr.Internal(err, "Payment gateway is not configured")
		}
		return nil, "", apperr.Internal(err, "Failed to create payment order")
	}
	logger.Info(ctx, "payment order created", "gateway_order_id", order.ID, "amount", order.Amount)
	return order, s.gateway.KeyID(), nil
}

func (s *PaymentService) Verify(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return apperr.Validation("razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
	}
	if !s.verifier.Verify(orderID, paymentID, signature) {
		return apperr.Validation("Payment verification failed. Invalid signature.")
	}
	return nil
}
