package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.razorpay.com"

// ErrGateway indicates the payment gateway rejected or failed an outbound
// request. It never reaches a settlement step.
var ErrGateway = errors.New("payments: gateway request failed")

// Client talks to the Razorpay orders API. Order creation happens outside any
// database transaction; no connection is held across this call.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// ClientOption configures the gateway client.
type ClientOption func(*Client)

// WithBaseURL overrides the gateway endpoint. Used by tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(keyID, keySecret string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// KeyID is returned to clients so they can open the checkout widget.
func (c *Client) KeyID() string { return c.keyID }

// Configured reports whether gateway credentials are present.
func (c *Client) Configured() bool { return c.keyID != "" && c.keySecret != "" }

type orderRequest struct {
	Amount   int64             `json:"amount"` // minor units
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

type orderResponse struct {
	ID string `json:"id"`
}

// CreateOrder registers an order with the gateway and returns the gateway
// order id. amountMinor is in the currency's minor units.
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error) {
	body, err := json.Marshal(orderRequest{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, detail)
	}

	var order orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrGateway, err)
	}
	if order.ID == "" {
		return "", fmt.Errorf("%w: response missing order id", ErrGateway)
	}
	return order.ID, nil
}
