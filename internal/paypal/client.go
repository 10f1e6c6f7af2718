// Package paypal talks to the PayPal Orders v2 REST API: it obtains an
// OAuth2 client-credentials token, creates orders, captures them and
// looks them up again for reconciliation.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxBody caps how much of a provider response is read.
const maxBody = 1 << 20

// Client is the payment gateway adapter. It is safe for concurrent use.
type Client struct {
	baseURL    string
	currency   string
	configured bool
	httpClient *http.Client
	tokens     tokenSource
	logger     *zap.Logger
}

// NewClient builds a Client from the PayPal settings. When httpClient is
// nil a client with cfg.Timeout is used.
func NewClient(cfg config.PayPal, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var src tokenSource = newFreshTokens(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, httpClient)
	if cfg.CacheToken {
		src = newCachedTokens(src)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		currency:   cfg.Currency,
		configured: cfg.ClientID != "" && cfg.ClientSecret != "",
		httpClient: httpClient,
		tokens:     src,
		logger:     logger.Named("paypal"),
	}
}

// CreateOrder opens a provider order for amount in the configured
// currency. customID, when set, is stored on the purchase unit so the
// provider order can be traced back to a local order.
func (c *Client) CreateOrder(ctx context.Context, amt decimal.Decimal, customID string) (*Order, error) {
	if !amt.IsPositive() {
		return nil, apperr.Validation("Invalid amount", apperr.FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if !amt.Equal(amt.Truncate(2)) {
		return nil, apperr.Validation("Invalid amount", apperr.FieldError{Field: "amount", Message: "must have at most 2 decimal places"})
	}

	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitRequest{{
			Amount: amount{
				CurrencyCode: c.currency,
				Value:        amt.StringFixed(2),
			},
			CustomID: customID,
		}},
	}
	return c.do(ctx, "create_order", http.MethodPost, "/v2/checkout/orders", body)
}

// CaptureOrder captures a buyer-approved provider order.
func (c *Client) CaptureOrder(ctx context.Context, remoteOrderID string) (*Order, error) {
	if remoteOrderID == "" {
		return nil, apperr.Validation("Invalid order ID", apperr.FieldError{Field: "orderID", Message: "is required"})
	}
	path := "/v2/checkout/orders/" + url.PathEscape(remoteOrderID) + "/capture"
	return c.do(ctx, "capture_order", http.MethodPost, path, nil)
}

// GetOrder fetches the current state of a provider order.
func (c *Client) GetOrder(ctx context.Context, remoteOrderID string) (*Order, error) {
	if remoteOrderID == "" {
		return nil, apperr.Validation("Invalid order ID", apperr.FieldError{Field: "orderID", Message: "is required"})
	}
	return c.do(ctx, "get_order", http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(remoteOrderID), nil)
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	if !c.configured {
		return "", apperr.GatewayAuth("Payment provider is not configured", nil)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			status := 0
			if rerr.Response != nil {
				status = rerr.Response.StatusCode
			}
			c.logger.Warn("token request rejected",
				zap.Int("status", status),
				zap.ByteString("body", rerr.Body),
			)
			return "", apperr.GatewayAuth("Payment provider rejected credentials", err)
		}
		return "", apperr.Gateway("Payment provider unavailable", err)
	}
	return tok.AccessToken, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) (*Order, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, apperr.Internal("encode provider request", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, apperr.Internal("build provider request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("provider request failed", zap.String("op", op), zap.Error(err))
		return nil, apperr.Gateway("Payment provider unavailable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, apperr.Gateway("Payment provider unavailable", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("provider rejected access token", zap.String("op", op), zap.ByteString("body", raw))
		return nil, apperr.GatewayAuth("Payment provider rejected credentials", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var perr apiError
		_ = json.Unmarshal(raw, &perr)
		c.logger.Warn("provider returned an error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("name", perr.Name),
			zap.String("debug_id", perr.DebugID),
			zap.ByteString("body", raw),
		)
		return nil, apperr.Gateway("Payment provider error", fmt.Errorf("%s: status %d", op, resp.StatusCode))
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		c.logger.Warn("provider returned malformed JSON", zap.String("op", op), zap.ByteString("body", raw))
		return nil, apperr.Gateway("Payment provider error", err)
	}
	order.Raw = json.RawMessage(raw)

	c.logger.Debug("provider call", zap.String("op", op), zap.String("id", order.ID), zap.String("status", order.Status))
	return &order, nil
}
