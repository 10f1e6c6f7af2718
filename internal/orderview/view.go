// Package orderview drives the order detail screen: it loads an order,
// runs the PayPal widget callbacks and the admin delivery action, and
// renders the result as text.
package orderview

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/01moynul/orderdesk/internal/client"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/01moynul/orderdesk/internal/paypal"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type State int

const (
	Loading State = iota
	Loaded
	Paying
	Paid
	Delivering
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Paying:
		return "paying"
	case Paid:
		return "paid"
	case Delivering:
		return "delivering"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// API is the slice of the order API the view calls. *client.Client
// implements it.
type API interface {
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, localOrderID string) (*paypal.Order, error)
	CaptureRemoteOrder(ctx context.Context, remoteOrderID, localOrderID string) (*paypal.Order, error)
	MarkPaid(ctx context.Context, id string, capture json.RawMessage) (*models.Order, error)
	MarkDelivered(ctx context.Context, id string) (*models.Order, error)
}

// Notifier shows toast-style messages to the viewer.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Success(msg string) { n.Logger.Info(msg) }
func (n LogNotifier) Error(msg string)   { n.Logger.Error(msg) }

var (
	ErrNotLoaded     = errors.New("order not loaded")
	ErrCannotPay     = errors.New("order cannot be paid from this view")
	ErrCannotDeliver = errors.New("order cannot be delivered from this view")
)

// View holds the state of one order detail screen. isAdmin is the flag of
// the viewer, not of the order owner.
type View struct {
	api     API
	notify  Notifier
	orderID string
	isAdmin bool

	mu      sync.Mutex
	state   State
	order   *models.Order
	lastErr error
}

func New(api API, notify Notifier, orderID string, isAdmin bool) *View {
	if notify == nil {
		notify = LogNotifier{Logger: zap.NewNop()}
	}
	return &View{api: api, notify: notify, orderID: orderID, isAdmin: isAdmin, state: Loading}
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Order returns the last loaded order, or nil.
func (v *View) Order() *models.Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.order
}

// Err returns the error of the last failed action.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

func (v *View) set(state State, order *models.Order, err error) {
	v.mu.Lock()
	v.state = state
	if order != nil {
		v.order = order
	}
	v.lastErr = err
	v.mu.Unlock()
}

// settled is the resting state for order.
func settled(order *models.Order) State {
	if order.IsPaid {
		return Paid
	}
	return Loaded
}

// Load fetches the order. On failure the view ends in Failed.
func (v *View) Load(ctx context.Context) error {
	v.set(Loading, nil, nil)
	order, err := v.api.GetOrder(ctx, v.orderID)
	if err != nil {
		v.set(Failed, nil, err)
		return err
	}
	v.set(settled(order), order, nil)
	return nil
}

// CanPay reports whether the payment widget is shown.
func (v *View) CanPay() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isAdmin && v.order != nil && v.state == Loaded && !v.order.IsPaid
}

// CanDeliver reports whether the "mark as delivered" button is shown.
func (v *View) CanDeliver() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isAdmin && v.order != nil && v.state == Paid && v.order.IsPaid && !v.order.IsDelivered
}

// CreateRemoteOrder is the widget's create callback: it opens a provider
// order for the order total and returns the provider order id.
func (v *View) CreateRemoteOrder(ctx context.Context) (string, error) {
	if !v.CanPay() {
		return "", ErrCannotPay
	}
	order := v.Order()

	remote, err := v.api.CreateRemoteOrder(ctx, order.TotalPrice, order.ID.Hex())
	if err != nil {
		v.fail(err)
		return "", err
	}
	return remote.ID, nil
}

// Approve is the widget's approve callback: capture, then mark paid, then
// show the updated order.
func (v *View) Approve(ctx context.Context, remoteOrderID string) error {
	if !v.CanPay() {
		return ErrCannotPay
	}
	order := v.Order()
	localID := order.ID.Hex()
	v.set(Paying, nil, nil)

	capture, err := v.api.CaptureRemoteOrder(ctx, remoteOrderID, localID)
	if err != nil {
		v.fail(err)
		return err
	}
	updated, err := v.api.MarkPaid(ctx, localID, capture.Raw)
	if err != nil {
		v.fail(err)
		return err
	}
	if fresh, err := v.api.GetOrder(ctx, localID); err == nil {
		updated = fresh
	}

	v.set(settled(updated), updated, nil)
	v.notify.Success("Order is paid")
	return nil
}

// Deliver marks the order delivered.
func (v *View) Deliver(ctx context.Context) error {
	if !v.CanDeliver() {
		return ErrCannotDeliver
	}
	localID := v.Order().ID.Hex()
	v.set(Delivering, nil, nil)

	updated, err := v.api.MarkDelivered(ctx, localID)
	if err != nil {
		v.fail(err)
		return err
	}
	v.set(settled(updated), updated, nil)
	v.notify.Success("Order is delivered")
	return nil
}

// fail returns the view to the state of the order it still shows and
// surfaces err.
func (v *View) fail(err error) {
	v.mu.Lock()
	state := Failed
	if v.order != nil {
		state = settled(v.order)
	}
	v.state = state
	v.lastErr = err
	v.mu.Unlock()

	v.notify.Error(errorMessage(err))
}

func errorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
