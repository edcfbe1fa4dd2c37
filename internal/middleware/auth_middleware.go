package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "focusbubble/backend/internal/errors"
	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/service"
)

const ComponentContextKey = "component"

// Auth resolves the calling component. With auth enabled the component comes
// from a bearer token (or a token query parameter, which EventSource clients
// need); otherwise it is taken from the kind, tabId and url query parameters.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authService.Enabled() {
			c.Set(ComponentContextKey, componentFromQuery(c))
			c.Next()
			return
		}

		token := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(c, apperrors.Unauthorized("invalid authorization format"))
				return
			}
			token = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}
		if token == "" {
			writeError(c, apperrors.Unauthorized("missing component token"))
			return
		}

		component, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}

		c.Set(ComponentContextKey, *component)
		c.Next()
	}
}

// Component returns the caller resolved by Auth.
func Component(c *gin.Context) (model.Component, bool) {
	value, ok := c.Get(ComponentContextKey)
	if !ok {
		return model.Component{}, false
	}
	component, ok := value.(model.Component)
	return component, ok
}

func componentFromQuery(c *gin.Context) model.Component {
	component := model.Component{
		ID:   c.Query("componentId"),
		Kind: strings.ToLower(c.DefaultQuery("kind", model.ComponentRuntime)),
		URL:  c.Query("url"),
	}
	if !model.ValidComponentKind(component.Kind) {
		component.Kind = model.ComponentRuntime
	}
	if component.Kind == model.ComponentContent {
		tabID, err := strconv.Atoi(c.Query("tabId"))
		if err != nil || tabID <= 0 {
			component.Kind = model.ComponentRuntime
		} else {
			component.TabID = tabID
		}
	}
	return component
}

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"success": false,
		"error":   apiErr.Message,
		"code":    apiErr.Code,
	})
}
