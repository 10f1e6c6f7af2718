// Package store persists orders and users. Two backends implement Store:
// SQLStore (MySQL, or SQLite in tests) and MongoStore.
package store

import (
	"context"
	"time"

	"github.com/01moynul/orderdesk/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStore is the order persistence contract.
//
// Create, Get and the list operations never check ownership; callers decide
// whether the resolved user may see an order. MarkPaid and MarkDelivered
// only stamp their timestamp on the first transition, so repeated calls
// return the stored order unchanged. MarkDelivered does not require the
// order to be paid.
type OrderStore interface {
	CreateOrder(ctx context.Context, in *models.NewOrder) (*models.Order, error)
	GetOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)

	// BeginCapture records that the provider is being asked to capture
	// remoteOrderID for the order. An already paid order is returned as is.
	BeginCapture(ctx context.Context, id primitive.ObjectID, remoteOrderID string) (*models.Order, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, result models.PaymentResult) (*models.Order, error)
	MarkDelivered(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	// ListCapturePending returns unpaid orders left in capture_pending.
	ListCapturePending(ctx context.Context) ([]models.Order, error)
}

// UserStore looks up and saves accounts.
type UserStore interface {
	SaveUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store is everything the service persists.
type Store interface {
	OrderStore
	UserStore
	Close(ctx context.Context) error
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// newOrderFrom builds the record persisted for a validated NewOrder.
func newOrderFrom(in *models.NewOrder) *models.Order {
	ts := now()
	items := make([]models.OrderItem, len(in.OrderItems))
	copy(items, in.OrderItems)
	return &models.Order{
		ID:              primitive.NewObjectID(),
		UserID:          in.UserID,
		OrderItems:      items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      in.ItemsPrice.Decimal,
		TaxPrice:        in.TaxPrice.Decimal,
		ShippingPrice:   in.ShippingPrice.Decimal,
		TotalPrice:      in.TotalPrice.Decimal,
		PaymentState:    models.PaymentNone,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}
