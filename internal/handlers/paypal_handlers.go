package handlers

import (
	"net/http"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

//
// --- PayPal Handlers ---
//
// Both endpoints relay the provider's JSON untouched on success.
//

type PayPalCreateOrderInput struct {
	Amount       *float64 `json:"amount" binding:"required,gt=0,cents"`
	LocalOrderID string   `json:"localOrderId" binding:"omitempty,objectid"`
}

type PayPalCaptureOrderInput struct {
	OrderID      string `json:"orderID" binding:"required"`
	LocalOrderID string `json:"localOrderId" binding:"omitempty,objectid"`
}

// PayPalCreateOrder is the handler for POST /orders/paypal/create-order
func (h *Handlers) PayPalCreateOrder(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input PayPalCreateOrderInput
	if err := middleware.BindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	// 2. --- Ask the provider for an order ---
	remote, err := h.PayPal.CreateOrder(c.Request.Context(), decimal.NewFromFloat(*input.Amount), input.LocalOrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", remote.Raw)
}

// PayPalCaptureOrder is the handler for POST /orders/paypal/capture-order.
// With a localOrderId the order is moved to capture_pending before the
// provider is called and marked paid once the capture completes; anything
// that fails in between is left for reconciliation.
func (h *Handlers) PayPalCaptureOrder(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input PayPalCaptureOrderInput
	if err := middleware.BindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	// 2. --- Record the pending capture locally ---
	var localID primitive.ObjectID
	if input.LocalOrderID != "" {
		localID, _ = primitive.ObjectIDFromHex(input.LocalOrderID)

		order, err := h.Store.GetOrder(ctx, localID)
		if err != nil {
			respondError(c, err)
			return
		}
		user := currentUser(c)
		if order.UserID != user.ID && !user.IsAdmin {
			respondError(c, apperr.Forbidden("Not authorized to access this order"))
			return
		}
		if order.IsPaid {
			respondError(c, apperr.Conflict("Order is already paid"))
			return
		}
		if _, err := h.Store.BeginCapture(ctx, localID, input.OrderID); err != nil {
			respondError(c, err)
			return
		}
	}

	// 3. --- Capture at the provider ---
	capture, err := h.PayPal.CaptureOrder(ctx, input.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	// 4. --- Mark paid when the money moved ---
	if !localID.IsZero() && capture.Completed() {
		if _, err := h.Store.MarkPaid(ctx, localID, capture.PaymentResult()); err != nil {
			// The capture stands; reconciliation or the client's
			// mark-paid call finishes the order.
			h.Logger.Warn("mark paid after capture failed",
				zap.String("request_id", middleware.RequestID(c)),
				zap.String("order_id", localID.Hex()),
				zap.String("remote_order_id", input.OrderID),
				zap.Error(err),
			)
		}
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", capture.Raw)
}
