package handlers

import (
	"net/http"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/middleware"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/01moynul/orderdesk/internal/paypal"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//
// --- Order Handlers ---
//

// CartItemInput is one line of the checkout cart.
type CartItemInput struct {
	Product string   `json:"product" binding:"required,objectid"`
	Name    string   `json:"name" binding:"required"`
	Qty     int      `json:"qty" binding:"required,gte=1"`
	Price   *float64 `json:"price" binding:"required,gte=0,cents"`
	Image   string   `json:"image"`
}

type ShippingAddressInput struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// CreateOrderInput is the body of POST /orders. Prices are pointers so a
// missing field is reported instead of read as zero.
type CreateOrderInput struct {
	CartItems       []CartItemInput       `json:"cartItems" binding:"required,min=1,dive"`
	ShippingAddress *ShippingAddressInput `json:"shippingAddress" binding:"required"`
	PaymentMethod   string                `json:"paymentMethod" binding:"required"`
	ItemsPrice      *float64              `json:"itemsPrice" binding:"required,gte=0,cents"`
	TaxPrice        *float64              `json:"taxPrice" binding:"required,gte=0,cents"`
	ShippingPrice   *float64              `json:"shippingPrice" binding:"required,gte=0,cents"`
	TotalPrice      *float64              `json:"totalPrice" binding:"required,gte=0,cents"`
}

func nullDecimal(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*f))
}

func (in *CreateOrderInput) toNewOrder(userID primitive.ObjectID) *models.NewOrder {
	items := make([]models.OrderItem, 0, len(in.CartItems))
	for _, ci := range in.CartItems {
		// Already checked by the objectid rule.
		product, _ := primitive.ObjectIDFromHex(ci.Product)
		items = append(items, models.OrderItem{
			Product:  product,
			Name:     ci.Name,
			Quantity: ci.Qty,
			Price:    nullDecimal(ci.Price).Decimal,
			Image:    ci.Image,
		})
	}

	var addr models.ShippingAddress
	if in.ShippingAddress != nil {
		addr = models.ShippingAddress{
			Address:    in.ShippingAddress.Address,
			City:       in.ShippingAddress.City,
			PostalCode: in.ShippingAddress.PostalCode,
			Country:    in.ShippingAddress.Country,
		}
	}

	return &models.NewOrder{
		UserID:          userID,
		OrderItems:      items,
		ShippingAddress: addr,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      nullDecimal(in.ItemsPrice),
		TaxPrice:        nullDecimal(in.TaxPrice),
		ShippingPrice:   nullDecimal(in.ShippingPrice),
		TotalPrice:      nullDecimal(in.TotalPrice),
	}
}

// CreateOrder is the handler for POST /orders
func (h *Handlers) CreateOrder(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input CreateOrderInput
	if err := middleware.BindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	// 2. --- Persist for the caller ---
	user := currentUser(c)
	order, err := h.Store.CreateOrder(c.Request.Context(), input.toNewOrder(user.ID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrders is the handler for GET /orders (admin only).
func (h *Handlers) GetOrders(c *gin.Context) {
	orders, err := h.Store.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GetMyOrders is the handler for GET /orders/my-orders
func (h *Handlers) GetMyOrders(c *gin.Context) {
	orders, err := h.Store.ListOrdersByUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// loadOwnedOrder fetches the order named by the :id parameter and checks
// that the caller owns it or is an admin.
func (h *Handlers) loadOwnedOrder(c *gin.Context) (*models.Order, error) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return nil, apperr.Validation("Invalid ID", apperr.FieldError{Field: "id", Message: "must be a 24-character hex id"})
	}

	order, err := h.Store.GetOrder(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}

	user := currentUser(c)
	if order.UserID != user.ID && !user.IsAdmin {
		return nil, apperr.Forbidden("Not authorized to access this order")
	}
	return order, nil
}

// GetOrderByID is the handler for GET /orders/:id
func (h *Handlers) GetOrderByID(c *gin.Context) {
	// 1. --- Load & check access ---
	order, err := h.loadOwnedOrder(c)
	if err != nil {
		respondError(c, err)
		return
	}

	// 2. --- Attach owner name/email ---
	owner, err := h.Store.GetUser(c.Request.Context(), order.UserID)
	switch {
	case err == nil:
		order.User = owner.Summary()
	case !apperr.Is(err, apperr.KindNotFound):
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderToPaid is the handler for PUT /orders/:id/pay. The body is
// the provider capture payload; it is optional.
func (h *Handlers) UpdateOrderToPaid(c *gin.Context) {
	// 1. --- Load & check access ---
	order, err := h.loadOwnedOrder(c)
	if err != nil {
		respondError(c, err)
		return
	}

	// 2. --- Read the capture details ---
	var capture paypal.Order
	if c.Request.ContentLength != 0 {
		if err := middleware.BindJSON(c, &capture); err != nil {
			respondError(c, err)
			return
		}
	}

	// 3. --- Mark paid ---
	updated, err := h.Store.MarkPaid(c.Request.Context(), order.ID, capture.PaymentResult())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// UpdateOrderToDelivered is the handler for PUT /orders/:id/deliver (admin only).
func (h *Handlers) UpdateOrderToDelivered(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondError(c, apperr.Validation("Invalid ID", apperr.FieldError{Field: "id", Message: "must be a 24-character hex id"}))
		return
	}

	updated, err := h.Store.MarkDelivered(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ReconcileOrders is the handler for POST /orders/reconcile (admin only).
func (h *Handlers) ReconcileOrders(c *gin.Context) {
	report, err := h.Reconciler.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
