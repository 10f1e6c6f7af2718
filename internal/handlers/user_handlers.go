package handlers

import (
	"net/http"
	"strings"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/middleware"
	"github.com/01moynul/orderdesk/internal/models"
	"github.com/gin-gonic/gin"
)

// LoginInput defines the expected JSON for a login request.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /users/login
func (h *Handlers) Login(c *gin.Context) {
	// 1. --- Bind & Validate JSON ---
	var input LoginInput
	if err := middleware.BindJSON(c, &input); err != nil {
		respondError(c, err)
		return
	}

	// 2. --- Find User By Email ---
	user, err := h.Store.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			respondError(c, apperr.Unauthorized("Invalid email or password"))
			return
		}
		respondError(c, err)
		return
	}

	// 3. --- Check Password ---
	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		respondError(c, apperr.Internal("Failed to check password", err))
		return
	}
	if !match {
		respondError(c, apperr.Unauthorized("Invalid email or password"))
		return
	}

	// 4. --- Generate JWT ---
	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		respondError(c, apperr.Internal("Failed to generate token", err))
		return
	}

	// 5. --- Send Success Response ---
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"_id":     user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"isAdmin": user.IsAdmin,
		},
	})
}
