package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("no token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("admins only"), http.StatusForbidden},
		{"not found", NotFound("Order not found"), http.StatusNotFound},
		{"conflict", Conflict("busy"), http.StatusConflict},
		{"gateway", Gateway("provider failed", errors.New("502")), http.StatusBadGateway},
		{"gateway auth", GatewayAuth("provider auth failed", nil), http.StatusBadGateway},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestWrappedErrorKeepsKind(t *testing.T) {
	err := fmt.Errorf("get order: %w", NotFound("Order not found"))

	assert.True(t, Is(err, KindNotFound))
	assert.Equal(t, "Order not found", PublicMessage(err))
}

func TestPublicMessageHidesCause(t *testing.T) {
	err := Gateway("Payment provider request failed", errors.New("client_secret=abc rejected"))

	assert.Equal(t, "Payment provider request failed", PublicMessage(err))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("sql: connection refused")))
}

func TestValidationCarriesAllFields(t *testing.T) {
	err := Validation("Validation failed",
		FieldError{Field: "cartItems", Message: "Cart items are required"},
		FieldError{Field: "taxPrice", Message: "Tax price is required"},
	)

	fields := FieldsOf(fmt.Errorf("wrap: %w", err))
	assert.Len(t, fields, 2)
	assert.Equal(t, "taxPrice", fields[1].Field)
}
