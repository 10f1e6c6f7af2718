package handlers

import (
	"context"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/store"
	"go.uber.org/zap"
)

// Reconciler settles orders left in capture_pending, which happens when
// the provider captured the payment but the local order was never marked
// paid.
type Reconciler struct {
	orders  store.OrderStore
	gateway PaymentGateway
	logger  *zap.Logger
}

func NewReconciler(orders store.OrderStore, gateway PaymentGateway, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{orders: orders, gateway: gateway, logger: logger.Named("reconcile")}
}

// ReconcileReport summarises one pass.
type ReconcileReport struct {
	Checked    int      `json:"checked"`
	MarkedPaid []string `json:"markedPaid"`
	StillOpen  []string `json:"stillOpen"`
	Failed     []string `json:"failed"`
}

// Run checks every capture_pending order against the provider once. A
// provider or store failure on one order does not stop the pass.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	pending, err := r.orders.ListCapturePending(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{MarkedPaid: []string{}, StillOpen: []string{}, Failed: []string{}}
	for _, order := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		id := order.ID.Hex()

		if order.RemoteOrderID == "" {
			report.StillOpen = append(report.StillOpen, id)
			continue
		}

		remote, err := r.gateway.GetOrder(ctx, order.RemoteOrderID)
		if err != nil {
			r.logger.Warn("lookup failed",
				zap.String("order_id", id),
				zap.String("remote_order_id", order.RemoteOrderID),
				zap.String("kind", apperr.KindOf(err).String()),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, id)
			continue
		}

		if !remote.Completed() {
			report.StillOpen = append(report.StillOpen, id)
			continue
		}

		if _, err := r.orders.MarkPaid(ctx, order.ID, remote.PaymentResult()); err != nil {
			r.logger.Error("mark paid failed", zap.String("order_id", id), zap.Error(err))
			report.Failed = append(report.Failed, id)
			continue
		}
		r.logger.Info("order marked paid",
			zap.String("order_id", id),
			zap.String("remote_order_id", order.RemoteOrderID),
		)
		report.MarkedPaid = append(report.MarkedPaid, id)
	}
	return report, nil
}
