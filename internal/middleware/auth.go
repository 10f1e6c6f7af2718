package middleware

import (
	"strings"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/auth"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/01moynul/orderdesk/internal/store"
	"github.com/gin-gonic/gin"
)

const userKey = "user"

// AuthMiddleware creates a gin.HandlerFunc that resolves the caller from
// the Bearer token and stores the user record in the context.
func AuthMiddleware(tokens *auth.Tokens, users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. --- Get Authorization Header ---
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			Abort(c, apperr.Unauthorized("Not authorized, no token"))
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || tokenString == "" {
			Abort(c, apperr.Unauthorized("Not authorized, token must be Bearer"))
			return
		}

		// 2. --- Validate Token ---
		userID, err := tokens.ValidateToken(tokenString)
		if err != nil {
			Abort(c, apperr.Unauthorized("Not authorized, token failed"))
			return
		}

		// 3. --- Load the user (admin flag, name, email) ---
		user, err := users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				Abort(c, apperr.Unauthorized("Not authorized, user not found"))
				return
			}
			Abort(c, err)
			return
		}

		// 4. --- Success ---
		c.Set(userKey, user)
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware. It lets only
// administrators through.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			Abort(c, apperr.Unauthorized("Not authorized"))
			return
		}
		if !user.IsAdmin {
			Abort(c, apperr.Forbidden("Not authorized as an admin"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user AuthMiddleware attached to the request.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
