package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// OrderRequest describes a gateway order in minor currency units.
type OrderRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the gateway's acknowledgement of an order.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
}

// RazorpayClient creates orders through the Razorpay REST API.
type RazorpayClient struct {
	client *razorpay.Client
	keyID  string
}

// NewRazorpayClient builds a client for the given key pair.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{client: razorpay.NewClient(keyID, keySecret), keyID: keyID}
}

// KeyID is the public key handed to checkout clients.
func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

// CreateOrder registers an order and returns its gateway identifier.
func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}
	body, err := c.client.Order.Create(map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("create razorpay order: response missing id")
	}
	return &Order{ID: id, Amount: req.AmountMinor, Currency: req.Currency, Receipt: req.Receipt}, nil
}
