package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules and reports field
// names by their json tag. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return primitive.IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
			f := fl.Field()
			if f.Kind() != reflect.Float32 && f.Kind() != reflect.Float64 {
				return false
			}
			return hasCents(decimal.NewFromFloat(f.Float()))
		})
	})
}

// ValidateObjectIDParam rejects the request unless every named path
// parameter is a 24-character hex identifier.
func ValidateObjectIDParam(names ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var fields []apperr.FieldError
		for _, name := range names {
			if !primitive.IsValidObjectID(c.Param(name)) {
				fields = append(fields, apperr.FieldError{Field: name, Message: "must be a 24-character hex id"})
			}
		}
		if len(fields) > 0 {
			Abort(c, apperr.Validation("Invalid ID", fields...))
			return
		}
		c.Next()
	}
}

// hasCents reports whether d has at most two decimal places.
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// BindJSON decodes and validates the request body into dst. Every failed
// rule is reported as a field error.
func BindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	// The decoder keeps going after a type mismatch, so dst holds the rest
	// of the body and the struct rules can still be checked.
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		fields := FieldErrors(err)
		if verr := binding.Validator.ValidateStruct(dst); verr != nil {
			for _, fe := range FieldErrors(verr) {
				if sameField(fe.Field, typeErr.Field) {
					continue
				}
				fields = append(fields, fe)
			}
		}
		return apperr.Validation("Invalid request body", fields...)
	}
	return apperr.Validation("Invalid request body", FieldErrors(err)...)
}

// sameField compares a validator path such as cartItems[0].price with a
// decoder path such as cartItems.price.
func sameField(path, jsonPath string) bool {
	var b strings.Builder
	skip := false
	for _, r := range path {
		switch {
		case r == '[':
			skip = true
		case r == ']':
			skip = false
		case !skip:
			b.WriteRune(r)
		}
	}
	return b.String() == jsonPath
}

// FieldErrors converts a binding error into field errors.
func FieldErrors(err error) []apperr.FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, apperr.FieldError{Field: fieldPath(fe), Message: ruleMessage(fe)})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []apperr.FieldError{{Field: typeErr.Field, Message: "must be a " + jsonKind(typeErr.Type)}}
	}
	return []apperr.FieldError{{Field: "body", Message: "must be a valid JSON object"}}
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "objectid":
		return "must be a 24-character hex id"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Array {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "cents":
		return "must have at most 2 decimal places"
	default:
		return "failed " + fe.Tag() + " rule"
	}
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Struct, reflect.Map:
		return "object"
	default:
		return t.Kind().String()
	}
}
