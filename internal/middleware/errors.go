// Package middleware holds the gin middleware of the API: the access
// guard, request validation, CORS, request logging and rate limiting.
package middleware

import (
	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string              `json:"error"`
	Fields []apperr.FieldError `json:"fields,omitempty"`
}

// Abort writes err as a JSON error response and stops the chain. The
// underlying cause is attached to the gin context for RequestLogger.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperr.Status(err), ErrorBody{
		Error:  apperr.PublicMessage(err),
		Fields: apperr.FieldsOf(err),
	})
}
