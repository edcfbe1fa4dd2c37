package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logging writes one zerolog event per request. The event stream is logged
// at debug since it stays open for the component's lifetime.
func Logging(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := logger.Info()
		if c.FullPath() == "/api/events" {
			event = logger.Debug()
		}
		if c.Writer.Status() >= 500 {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("remote_addr", c.ClientIP()).
			Int("status", c.Writer.Status()).
			Int("size", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}
