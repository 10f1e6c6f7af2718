package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	tokenCalls   atomic.Int32
	rejectToken  bool
	captureCode  int
	lastCreate   createOrderRequest
	lastAuthUser string
	mu           sync.Mutex
}

func (f *fakeProvider) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		user, _, _ := r.BasicAuth()
		f.mu.Lock()
		f.lastAuthUser = user
		f.mu.Unlock()
		if f.rejectToken {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body createOrderRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastCreate = body
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"5O190127TN364715T","status":"CREATED","links":[{"rel":"approve"}]}`))
	})
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		if f.captureCode != 0 {
			w.WriteHeader(f.captureCode)
			_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","debug_id":"abc","details":[{"issue":"ORDER_NOT_APPROVED"}]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"` + r.PathValue("id") + `","status":"COMPLETED","payer":{"email_address":"buyer@example.com"},` +
			`"purchase_units":[{"payments":{"captures":[{"id":"CAP1","status":"COMPLETED","update_time":"2024-05-01T10:00:00Z"}]}}]}`))
	})
	mux.HandleFunc("GET /v2/checkout/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + r.PathValue("id") + `","status":"APPROVED"}`))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeProvider, cache bool) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewClient(config.PayPal{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Currency:     "USD",
		CacheToken:   cache,
		Timeout:      5 * time.Second,
	}, srv.Client(), nil)
}

func TestCreateOrder(t *testing.T) {
	f := &fakeProvider{}
	c := newTestClient(t, f, false)

	order, err := c.CreateOrder(context.Background(), decimal.RequireFromString("100"), "local-1")
	require.NoError(t, err)

	assert.Equal(t, "5O190127TN364715T", order.ID)
	assert.Equal(t, StatusCreated, order.Status)
	assert.JSONEq(t, `{"id":"5O190127TN364715T","status":"CREATED","links":[{"rel":"approve"}]}`, string(order.Raw))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "client-id", f.lastAuthUser)
	assert.Equal(t, "CAPTURE", f.lastCreate.Intent)
	require.Len(t, f.lastCreate.PurchaseUnits, 1)
	assert.Equal(t, "100.00", f.lastCreate.PurchaseUnits[0].Amount.Value)
	assert.Equal(t, "USD", f.lastCreate.PurchaseUnits[0].Amount.CurrencyCode)
	assert.Equal(t, "local-1", f.lastCreate.PurchaseUnits[0].CustomID)
}

func TestCreateOrderRejectsInvalidAmount(t *testing.T) {
	f := &fakeProvider{}
	c := newTestClient(t, f, false)

	for _, amt := range []string{"0", "-5", "0.001", "10.005"} {
		_, err := c.CreateOrder(context.Background(), decimal.RequireFromString(amt), "")
		assert.True(t, apperr.Is(err, apperr.KindValidation), amt)
	}
	assert.Zero(t, f.tokenCalls.Load())
}

func TestCaptureOrder(t *testing.T) {
	f := &fakeProvider{}
	c := newTestClient(t, f, false)

	order, err := c.CaptureOrder(context.Background(), "5O190127TN364715T")
	require.NoError(t, err)
	assert.True(t, order.Completed())

	res := order.PaymentResult()
	assert.Equal(t, "5O190127TN364715T", res.ID)
	assert.Equal(t, "COMPLETED", res.Status)
	assert.Equal(t, "buyer@example.com", res.EmailAddress)
	assert.Equal(t, "2024-05-01T10:00:00Z", res.UpdateTime)
}

func TestCaptureOrderProviderError(t *testing.T) {
	f := &fakeProvider{captureCode: http.StatusUnprocessableEntity}
	c := newTestClient(t, f, false)

	_, err := c.CaptureOrder(context.Background(), "NOTAPPROVED")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindGateway))
	assert.Equal(t, http.StatusBadGateway, apperr.Status(err))
	assert.NotContains(t, apperr.PublicMessage(err), "ORDER_NOT_APPROVED")
}

func TestTokenRejected(t *testing.T) {
	f := &fakeProvider{rejectToken: true}
	c := newTestClient(t, f, false)

	_, err := c.CreateOrder(context.Background(), decimal.NewFromInt(10), "")
	assert.True(t, apperr.Is(err, apperr.KindGatewayAuth))
}

func TestMissingCredentials(t *testing.T) {
	c := NewClient(config.PayPal{BaseURL: "http://127.0.0.1:1", Currency: "USD", Timeout: time.Second}, nil, nil)

	_, err := c.CaptureOrder(context.Background(), "X")
	assert.True(t, apperr.Is(err, apperr.KindGatewayAuth))
}

func TestGetOrder(t *testing.T) {
	f := &fakeProvider{}
	c := newTestClient(t, f, false)

	order, err := c.GetOrder(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, "ABC", order.ID)
	assert.False(t, order.Completed())
}

func TestTokenPerCallByDefault(t *testing.T) {
	f := &fakeProvider{}
	c := newTestClient(t, f, false)

	for range 3 {
		_, err := c.GetOrder(context.Background(), "ABC")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, f.tokenCalls.Load())
}

func TestCachedTokenSharedAcrossCalls(t *testing.T) {
	f := &fakeProvider{}
	c := newTestClient(t, f, true)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrder(context.Background(), "ABC")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, err := c.GetOrder(context.Background(), "ABC")
	require.NoError(t, err)
	assert.LessOrEqual(t, f.tokenCalls.Load(), int32(8))
	before := f.tokenCalls.Load()
	_, err = c.GetOrder(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, before, f.tokenCalls.Load())
}
