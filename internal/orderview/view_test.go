package orderview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/01moynul/orderdesk/internal/client"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/01moynul/orderdesk/internal/paypal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAPI struct {
	order      models.Order
	calls      []string
	captureErr error
	gotAmount  decimal.Decimal
	gotCapture json.RawMessage
}

func (f *fakeAPI) GetOrder(_ context.Context, id string) (*models.Order, error) {
	f.calls = append(f.calls, "get")
	if id != f.order.ID.Hex() {
		return nil, &client.APIError{StatusCode: 404, Message: "Order not found"}
	}
	o := f.order
	return &o, nil
}

func (f *fakeAPI) CreateRemoteOrder(_ context.Context, amount decimal.Decimal, _ string) (*paypal.Order, error) {
	f.calls = append(f.calls, "create")
	f.gotAmount = amount
	return &paypal.Order{ID: "REMOTE1", Status: paypal.StatusCreated}, nil
}

func (f *fakeAPI) CaptureRemoteOrder(_ context.Context, remoteOrderID, _ string) (*paypal.Order, error) {
	f.calls = append(f.calls, "capture")
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	raw := json.RawMessage(`{"id":"` + remoteOrderID + `","status":"COMPLETED"}`)
	return &paypal.Order{ID: remoteOrderID, Status: paypal.StatusCompleted, Raw: raw}, nil
}

func (f *fakeAPI) MarkPaid(_ context.Context, _ string, capture json.RawMessage) (*models.Order, error) {
	f.calls = append(f.calls, "pay")
	f.gotCapture = capture
	now := time.Now().UTC()
	f.order.IsPaid = true
	f.order.PaidAt = &now
	o := f.order
	return &o, nil
}

func (f *fakeAPI) MarkDelivered(context.Context, string) (*models.Order, error) {
	f.calls = append(f.calls, "deliver")
	now := time.Now().UTC()
	f.order.IsDelivered = true
	f.order.DeliveredAt = &now
	o := f.order
	return &o, nil
}

type recorder struct {
	successes, errors []string
}

func (r *recorder) Success(msg string) { r.successes = append(r.successes, msg) }
func (r *recorder) Error(msg string)   { r.errors = append(r.errors, msg) }

func sampleOrder() models.Order {
	return models.Order{
		ID:     primitive.NewObjectID(),
		UserID: primitive.NewObjectID(),
		User:   &models.UserSummary{Name: "John Doe", Email: "john@example.com"},
		OrderItems: []models.OrderItem{
			{Name: "Airpods", Quantity: 2, Price: decimal.RequireFromString("45")},
		},
		ShippingAddress: models.ShippingAddress{Address: "123 Main St", City: "Boston", PostalCode: "02101", Country: "USA"},
		PaymentMethod:   "PayPal",
		ItemsPrice:      decimal.RequireFromString("90"),
		ShippingPrice:   decimal.RequireFromString("10"),
		TaxPrice:        decimal.Zero,
		TotalPrice:      decimal.RequireFromString("100"),
	}
}

func TestAdminPaysThenDelivers(t *testing.T) {
	api := &fakeAPI{order: sampleOrder()}
	notes := &recorder{}
	v := New(api, notes, api.order.ID.Hex(), true)

	assert.Equal(t, Loading, v.State())
	require.NoError(t, v.Load(context.Background()))
	assert.Equal(t, Loaded, v.State())
	assert.True(t, v.CanPay())
	assert.False(t, v.CanDeliver())

	remoteID, err := v.CreateRemoteOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "REMOTE1", remoteID)
	assert.Equal(t, "100", api.gotAmount.String())

	require.NoError(t, v.Approve(context.Background(), remoteID))
	assert.Equal(t, Paid, v.State())
	assert.True(t, v.Order().IsPaid)
	assert.JSONEq(t, `{"id":"REMOTE1","status":"COMPLETED"}`, string(api.gotCapture))
	assert.Equal(t, []string{"Order is paid"}, notes.successes)
	assert.False(t, v.CanPay())
	assert.True(t, v.CanDeliver())

	require.NoError(t, v.Deliver(context.Background()))
	assert.True(t, v.Order().IsDelivered)
	assert.False(t, v.CanDeliver())
	assert.Equal(t, []string{"get", "create", "capture", "pay", "get", "deliver"}, api.calls)
}

func TestNonAdminSeesNoActions(t *testing.T) {
	api := &fakeAPI{order: sampleOrder()}
	v := New(api, &recorder{}, api.order.ID.Hex(), false)
	require.NoError(t, v.Load(context.Background()))

	assert.False(t, v.CanPay())
	_, err := v.CreateRemoteOrder(context.Background())
	assert.ErrorIs(t, err, ErrCannotPay)
	assert.ErrorIs(t, v.Deliver(context.Background()), ErrCannotDeliver)
}

func TestApproveFailureShowsProviderMessage(t *testing.T) {
	api := &fakeAPI{order: sampleOrder(), captureErr: &client.APIError{StatusCode: 502, Message: "Payment provider error"}}
	notes := &recorder{}
	v := New(api, notes, api.order.ID.Hex(), true)
	require.NoError(t, v.Load(context.Background()))

	err := v.Approve(context.Background(), "REMOTE1")
	require.Error(t, err)
	assert.Equal(t, Loaded, v.State())
	assert.False(t, v.Order().IsPaid)
	assert.Equal(t, []string{"Payment provider error"}, notes.errors)
	assert.NotContains(t, api.calls, "pay")
	assert.True(t, v.CanPay())
}

func TestLoadFailure(t *testing.T) {
	api := &fakeAPI{order: sampleOrder()}
	v := New(api, &recorder{}, primitive.NewObjectID().Hex(), true)

	err := v.Load(context.Background())
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, Failed, v.State())

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf))
	assert.Equal(t, "Error: Order not found\n", buf.String())
}

func TestRender(t *testing.T) {
	api := &fakeAPI{order: sampleOrder()}
	v := New(api, &recorder{}, api.order.ID.Hex(), true)
	require.NoError(t, v.Load(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "Order "+api.order.ID.Hex())
	assert.Contains(t, out, "John Doe")
	assert.Contains(t, out, "123 Main St, Boston 02101, USA")
	assert.Contains(t, out, "Not Delivered")
	assert.Contains(t, out, "Not Paid")
	assert.Contains(t, out, "2 x $45.00")
	assert.Contains(t, out, "= $90.00")
	assert.Contains(t, out, "$100.00")
	assert.Contains(t, out, "[PayPal checkout available]")
	assert.NotContains(t, out, "[Mark As Delivered]")
}

func TestRenderBeforeLoad(t *testing.T) {
	v := New(&fakeAPI{}, nil, "x", false)
	assert.ErrorIs(t, v.Render(&bytes.Buffer{}), ErrNotLoaded)
}
