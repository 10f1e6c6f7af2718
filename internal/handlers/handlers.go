package handlers

import (
	"context"

	"github.com/01moynul/orderdesk/internal/auth"
	"github.com/01moynul/orderdesk/internal/middleware"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/01moynul/orderdesk/internal/paypal"
	"github.com/01moynul/orderdesk/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentGateway is the part of the PayPal adapter the handlers use.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, customID string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, remoteOrderID string) (*paypal.Order, error)
	GetOrder(ctx context.Context, remoteOrderID string) (*paypal.Order, error)
}

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Store      store.Store
	PayPal     PaymentGateway
	Tokens     *auth.Tokens
	Reconciler *Reconciler
	Logger     *zap.Logger
}

func New(s store.Store, gateway PaymentGateway, tokens *auth.Tokens, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		Store:      s,
		PayPal:     gateway,
		Tokens:     tokens,
		Reconciler: NewReconciler(s, gateway, logger),
		Logger:     logger,
	}
}

// respondError maps err onto the error taxonomy and writes the response.
// The cause is logged by the request logger, never echoed.
func respondError(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

// currentUser returns the caller resolved by AuthMiddleware. Routes using
// it are always mounted behind the guard.
func currentUser(c *gin.Context) *models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}
