package razorpay

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

const (
	// BaseURL is the Razorpay API base URL
	BaseURL = "https://api.razorpay.com"
	// DefaultTimeout is the HTTP client timeout for gateway calls. Order
	// creation sits on the checkout critical path, so it stays bounded.
	DefaultTimeout = 15 * time.Second
)

// ErrGatewayUnavailable wraps network and 5xx failures from the gateway.
// Nothing local is committed when order creation fails, so callers can
// discard the intent and offer a retry.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// Client handles Razorpay Orders API interactions
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the Razorpay client
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// NewClient creates a new Razorpay API client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		keyID:     config.KeyID,
		keySecret: config.KeySecret,
		baseURL:   config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// KeyID returns the public key id handed to the checkout widget.
func (c *Client) KeyID() string {
	return c.keyID
}

// Order is a gateway order as returned by the Orders API
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // paise
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// createOrderRequest is the Orders API request body
type createOrderRequest struct {
	Amount   int64  `json:"amount"` // paise
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// apiError is the error envelope Razorpay returns on non-2xx responses
type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates a gateway order for the given amount. The call is not
// idempotent on the gateway side; a retry after a timeout may create a
// duplicate remote order, which is harmless because no local state is
// committed until the payment is verified.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amountPaise,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("razorpay order creation failed: %s (%s)", apiErr.Error.Description, apiErr.Error.Code)
		}
		return nil, fmt.Errorf("razorpay order creation failed: status %d", resp.StatusCode)
	}

	var order Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	if order.ID == "" {
		return nil, errors.New("razorpay returned an order without an id")
	}

	return &order, nil
}
