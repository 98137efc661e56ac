package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_merch/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// OrdersPath is the single endpoint orders are posted to.
const OrdersPath = "/api/orders"

const maxErrorBody = 4 << 10

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fulfillment backend returned %d: %s", e.StatusCode, e.Body)
}

type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*domain.OrderReceipt]
}

func NewClient(baseURL string, httpClient *http.Client, bs BreakerSettings) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if bs.MaxFailures == 0 {
		bs.MaxFailures = 5
	}
	breaker := gobreaker.NewCircuitBreaker[*domain.OrderReceipt](gobreaker.Settings{
		Name:        "fulfillment",
		MaxRequests: 1,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.MaxFailures
		},
		// a rejected order says nothing about backend health
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
	})
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breaker:    breaker,
	}
}

// CreateOrder posts the order and returns the backend's order reference.
func (c *Client) CreateOrder(ctx context.Context, order *domain.FulfillmentOrder) (*domain.OrderReceipt, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	return c.breaker.Execute(func() (*domain.OrderReceipt, error) {
		return c.post(ctx, body)
	})
}

func (c *Client) post(ctx context.Context, body []byte) (*domain.OrderReceipt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+OrdersPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var parsed receiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &domain.OrderReceipt{
		OrderNumber: string(parsed.OrderNumber),
		OrderID:     string(parsed.OrderID),
	}, nil
}

type receiptResponse struct {
	OrderNumber flexString `json:"order_number"`
	OrderID     flexString `json:"order_id"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
