package paypal

import (
	"encoding/json"

	"github.com/01moynul/orderdesk/internal/models"
)

// Order statuses reported by the Orders v2 API.
const (
	StatusCreated   = "CREATED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusVoided    = "VOIDED"
)

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnitRequest struct {
	Amount   amount `json:"amount"`
	CustomID string `json:"custom_id,omitempty"`
}

type createOrderRequest struct {
	Intent        string                `json:"intent"`
	PurchaseUnits []purchaseUnitRequest `json:"purchase_units"`
}

// Order is the part of a provider order the service reads. Raw keeps the
// full response body so it can be relayed to callers untouched.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	UpdateTime    string         `json:"update_time,omitempty"`
	Payer         *Payer         `json:"payer,omitempty"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type Payer struct {
	EmailAddress string `json:"email_address"`
	PayerID      string `json:"payer_id"`
}

type PurchaseUnit struct {
	CustomID string `json:"custom_id,omitempty"`
	Payments struct {
		Captures []Capture `json:"captures"`
	} `json:"payments"`
}

type Capture struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	UpdateTime string `json:"update_time"`
}

// Completed reports whether the provider considers the payment captured.
func (o *Order) Completed() bool {
	return o.Status == StatusCompleted
}

// PaymentResult extracts what the local order keeps about a capture.
func (o *Order) PaymentResult() models.PaymentResult {
	res := models.PaymentResult{
		ID:         o.ID,
		Status:     o.Status,
		UpdateTime: o.UpdateTime,
	}
	if o.Payer != nil {
		res.EmailAddress = o.Payer.EmailAddress
	}
	for _, pu := range o.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			if c.UpdateTime != "" {
				res.UpdateTime = c.UpdateTime
			}
		}
	}
	return res
}

// apiError is the provider's error envelope; only the name is logged
// alongside the raw body.
type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id"`
}
