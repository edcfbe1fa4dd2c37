package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS allows the configured origins. An entry ending in "*" matches by
// prefix, so chrome-extension://* covers every installed extension id.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	exact := make(map[string]struct{}, len(allowedOrigins))
	var prefixes []string
	allowAll := false
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		switch {
		case origin == "*":
			allowAll = true
		case strings.HasSuffix(origin, "*"):
			prefixes = append(prefixes, strings.TrimSuffix(origin, "*"))
		case origin != "":
			exact[origin] = struct{}{}
		}
	}

	allowed := func(origin string) bool {
		if _, ok := exact[origin]; ok {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(origin, prefix) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll {
				c.Header("Access-Control-Allow-Origin", "*")
			} else if allowed(origin) {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization,Content-Type")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
