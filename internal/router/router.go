package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"focusbubble/backend/internal/handler"
	"focusbubble/backend/internal/middleware"
	"focusbubble/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	messageHandler *handler.MessageHandler,
	eventsHandler *handler.EventsHandler,
	corsOrigins []string,
	logger zerolog.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.Logging(logger), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.POST("/connect", authHandler.Connect)

	components := api.Group("")
	components.Use(middleware.Auth(authService))
	components.POST("/messages", messageHandler.Handle)
	components.GET("/events", eventsHandler.Stream)

	return engine
}
