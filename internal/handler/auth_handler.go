package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "focusbubble/backend/internal/errors"
	"focusbubble/backend/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Connect serves POST /api/connect.
func (h *AuthHandler) Connect(c *gin.Context) {
	var req service.ConnectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.BadRequest(apperrors.CodeInvalidRequest, "invalid request body"))
		return
	}

	result, apiErr := h.authService.Connect(c.Request.Context(), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
		"component": result.Component,
	})
}
