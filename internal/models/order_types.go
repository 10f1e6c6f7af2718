package models

import (
	"strconv"
	"time"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	// Prices go over the wire as JSON numbers, the way clients send them.
	decimal.MarshalJSONWithoutQuotes = true
}

// Payment states of an order. capture_pending means the provider was asked
// to capture (or acknowledged it) but the local paid flag is not set yet.
const (
	PaymentNone           = "none"
	PaymentCapturePending = "capture_pending"
	PaymentPaid           = "paid"
)

// Order is one purchase transaction. Items, address, payment method and
// prices are fixed at creation; only the paid/delivered state changes.
type Order struct {
	ID              primitive.ObjectID `json:"_id" db:"id"`
	UserID          primitive.ObjectID `json:"userId" db:"user_id"`
	User            *UserSummary       `json:"user,omitempty" db:"-"`
	OrderItems      []OrderItem        `json:"orderItems" db:"-"`
	ShippingAddress ShippingAddress    `json:"shippingAddress" db:"-"`
	PaymentMethod   string             `json:"paymentMethod" db:"payment_method"`

	ItemsPrice    decimal.Decimal `json:"itemsPrice" db:"items_price"`
	TaxPrice      decimal.Decimal `json:"taxPrice" db:"tax_price"`
	ShippingPrice decimal.Decimal `json:"shippingPrice" db:"shipping_price"`
	TotalPrice    decimal.Decimal `json:"totalPrice" db:"total_price"`

	IsPaid        bool           `json:"isPaid" db:"is_paid"`
	PaidAt        *time.Time     `json:"paidAt,omitempty" db:"paid_at"`
	PaymentState  string         `json:"paymentState" db:"payment_state"`
	RemoteOrderID string         `json:"remoteOrderId,omitempty" db:"remote_order_id"`
	PaymentResult *PaymentResult `json:"paymentResult,omitempty" db:"-"`

	IsDelivered bool       `json:"isDelivered" db:"is_delivered"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty" db:"delivered_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OrderItem is a line item snapshot taken at checkout.
type OrderItem struct {
	Product  primitive.ObjectID `json:"product" db:"product_id"`
	Name     string             `json:"name" db:"name"`
	Quantity int                `json:"qty" db:"quantity"`
	Price    decimal.Decimal    `json:"price" db:"unit_price"`
	Image    string             `json:"image" db:"image"`
}

// ShippingAddress is where the order ships to.
type ShippingAddress struct {
	Address    string `json:"address" db:"ship_address"`
	City       string `json:"city" db:"ship_city"`
	PostalCode string `json:"postalCode" db:"ship_postal_code"`
	Country    string `json:"country" db:"ship_country"`
}

// PaymentResult is the subset of the provider capture payload kept on the order.
type PaymentResult struct {
	ID           string `json:"id" db:"payment_id"`
	Status       string `json:"status" db:"payment_status"`
	UpdateTime   string `json:"update_time" db:"payment_update_time"`
	EmailAddress string `json:"email_address" db:"payment_email"`
}

// IsZero reports whether no provider detail was recorded.
func (r PaymentResult) IsZero() bool {
	return r == PaymentResult{}
}

// NewOrder is the input for creating an order. Prices are nullable so a
// missing value can be told apart from zero.
type NewOrder struct {
	UserID          primitive.ObjectID
	OrderItems      []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	ItemsPrice      decimal.NullDecimal
	TaxPrice        decimal.NullDecimal
	ShippingPrice   decimal.NullDecimal
	TotalPrice      decimal.NullDecimal
}

// Validate checks every required field and returns a validation error
// listing all failures.
func (n *NewOrder) Validate() error {
	var fields []apperr.FieldError
	add := func(field, msg string) {
		fields = append(fields, apperr.FieldError{Field: field, Message: msg})
	}

	if n.UserID.IsZero() {
		add("user", "Owner is required")
	}
	if len(n.OrderItems) == 0 {
		add("cartItems", "Cart items are required")
	}
	for i, item := range n.OrderItems {
		if item.Product.IsZero() {
			add(itemField(i, "product"), "Product is required")
		}
		if item.Name == "" {
			add(itemField(i, "name"), "Name is required")
		}
		if item.Quantity < 1 {
			add(itemField(i, "qty"), "Quantity must be at least 1")
		}
		switch {
		case item.Price.IsNegative():
			add(itemField(i, "price"), "Price must not be negative")
		case !isCents(item.Price):
			add(itemField(i, "price"), "Price must have at most 2 decimal places")
		}
	}

	addr := n.ShippingAddress
	if addr.Address == "" || addr.City == "" || addr.PostalCode == "" || addr.Country == "" {
		add("shippingAddress", "Shipping address is required")
	}
	if n.PaymentMethod == "" {
		add("paymentMethod", "Payment method is required")
	}

	prices := []struct {
		field, label string
		value        decimal.NullDecimal
	}{
		{"itemsPrice", "Items price", n.ItemsPrice},
		{"taxPrice", "Tax price", n.TaxPrice},
		{"shippingPrice", "Shipping price", n.ShippingPrice},
		{"totalPrice", "Total price", n.TotalPrice},
	}
	for _, p := range prices {
		switch {
		case !p.value.Valid:
			add(p.field, p.label+" is required")
		case p.value.Decimal.IsNegative():
			add(p.field, p.label+" must not be negative")
		case !isCents(p.value.Decimal):
			add(p.field, p.label+" must have at most 2 decimal places")
		}
	}

	if len(fields) > 0 {
		return apperr.Validation("Validation failed", fields...)
	}
	return nil
}

// Prices are stored with two decimal places.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

func itemField(i int, name string) string {
	return "cartItems[" + strconv.Itoa(i) + "]." + name
}
