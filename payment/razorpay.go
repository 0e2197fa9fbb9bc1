// Package payment talks to the Razorpay orders API and checks payment signatures.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fashalt/fashaltbackend/config"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

var ErrNotConfigured = errors.New("payment gateway is not configured")

// GatewayOrder is the subset of a Razorpay order returned to the storefront.
type GatewayOrder struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type Client struct {
	http     *resty.Client
	breaker  *gobreaker.CircuitBreaker
	keyID    string
	currency string
}

func NewClient(cfg config.RazorpayConfig) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{http: httpClient, breaker: breaker, keyID: cfg.KeyID, currency: cfg.Currency}
}

// KeyID is the public key the checkout widget needs.
func (c *Client) KeyID() string { return c.keyID }

// CreateOrder registers a payable order of amount minor units (paise for INR).
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string) (*GatewayOrder, error) {
	if c.keyID == "" {
		return nil, ErrNotConfigured
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		var out GatewayOrder
		var apiErr apiError
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]any{
				"amount":   amount,
				"currency": c.currency,
				"receipt":  receipt,
			}).
			SetResult(&out).
			SetError(&apiErr).
			Post("/orders")
		if err != nil {
			return nil, fmt.Errorf("razorpay create order: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("razorpay create order: status %d: %s", resp.StatusCode(), apiErr.Error.Description)
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*GatewayOrder), nil
}

// FetchOrder reads back a gateway order, used to confirm what was actually charged.
func (c *Client) FetchOrder(ctx context.Context, id string) (*GatewayOrder, error) {
	if c.keyID == "" {
		return nil, ErrNotConfigured
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		var out GatewayOrder
		var apiErr apiError
		resp, err := c.http.R().
			SetContext(ctx).
			SetPathParam("id", id).
			SetResult(&out).
			SetError(&apiErr).
			Get("/orders/{id}")
		if err != nil {
			return nil, fmt.Errorf("razorpay fetch order: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("razorpay fetch order: status %d: %s", resp.StatusCode(), apiErr.Error.Description)
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*GatewayOrder), nil
}

// Verifier checks the signature Razorpay hands to the browser after checkout.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns hex(HMAC-SHA256(orderID + "|" + paymentID)).
func (v *Verifier) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *Verifier) Verify(orderID, paymentID, signature string) bool {
	if len(v.secret) == 0 || orderID == "" || paymentID == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(orderID, paymentID)), []byte(signature))
}
