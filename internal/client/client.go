// Package client is a typed client for the order API, used by the order
// detail view and the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/01moynul/orderdesk/internal/paypal"
	"github.com/shopspring/decimal"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []apperr.FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return e.Message
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a client for the API rooted at baseURL (for example
// http://localhost:5000/api). token may be empty until Login is called.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Session is the result of a successful login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/users/login", body, &session); err != nil {
		return nil, err
	}
	c.token = session.Token
	return &session, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/my-orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateRemoteOrder asks the API to open a provider order for amount.
func (c *Client) CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, localOrderID string) (*paypal.Order, error) {
	body := map[string]any{"amount": amount.InexactFloat64()}
	if localOrderID != "" {
		body["localOrderId"] = localOrderID
	}
	return c.doRemote(ctx, "/orders/paypal/create-order", body)
}

// CaptureRemoteOrder captures an approved provider order. With a
// localOrderID the server links the capture to that order.
func (c *Client) CaptureRemoteOrder(ctx context.Context, remoteOrderID, localOrderID string) (*paypal.Order, error) {
	body := map[string]any{"orderID": remoteOrderID}
	if localOrderID != "" {
		body["localOrderId"] = localOrderID
	}
	return c.doRemote(ctx, "/orders/paypal/capture-order", body)
}

// MarkPaid records capture as the payment of order id.
func (c *Client) MarkPaid(ctx context.Context, id string, capture json.RawMessage) (*models.Order, error) {
	var order models.Order
	var body any
	if len(capture) > 0 {
		body = capture
	}
	if err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id)+"/pay", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) MarkDelivered(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPut, "/orders/"+url.PathEscape(id)+"/deliver", nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) doRemote(ctx context.Context, path string, body any) (*paypal.Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, body, &raw); err != nil {
		return nil, err
	}
	var order paypal.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode provider order: %w", err)
	}
	order.Raw = raw
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb struct {
			Error  string              `json:"error"`
			Fields []apperr.FieldError `json:"fields"`
		}
		if json.NewDecoder(resp.Body).Decode(&eb) == nil {
			apiErr.Message = eb.Error
			apiErr.Fields = eb.Fields
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
