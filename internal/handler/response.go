package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "focusbubble/backend/internal/errors"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "internal server error",
			"code":    apperrors.CodeInternal,
		})
		return
	}

	body := gin.H{
		"success": false,
		"error":   apiErr.Message,
		"code":    apiErr.Code,
	}
	if apiErr.Details != nil {
		body["details"] = apiErr.Details
	}
	c.JSON(apiErr.Status, body)
}

func writeResponse(c *gin.Context, resp Response) {
	c.JSON(resp.Status(), resp)
}
