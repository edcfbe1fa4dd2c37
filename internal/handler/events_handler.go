package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"focusbubble/backend/internal/hub"
	"focusbubble/backend/internal/metrics"
	"focusbubble/backend/internal/middleware"
	"focusbubble/backend/internal/model"
)

const defaultKeepAlive = 25 * time.Second

// EventsHandler streams broadcasts to one component over server-sent events.
// The subscription lives exactly as long as the request.
type EventsHandler struct {
	registry  *hub.Registry
	logger    zerolog.Logger
	keepAlive time.Duration
}

func NewEventsHandler(registry *hub.Registry, keepAlive time.Duration, logger zerolog.Logger) *EventsHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &EventsHandler{
		registry:  registry,
		logger:    logger.With().Str("component", "events").Logger(),
		keepAlive: keepAlive,
	}
}

// Stream serves GET /api/events.
func (h *EventsHandler) Stream(c *gin.Context) {
	component, _ := middleware.Component(c)
	kind := hub.KindRuntime
	tabID := 0
	if component.Kind == model.ComponentContent && component.TabID > 0 {
		kind = hub.KindContent
		tabID = component.TabID
	}

	sub := h.registry.Subscribe(kind, tabID, component.URL)
	metrics.ActiveSubscribers.Inc()
	defer func() {
		sub.Close()
		metrics.ActiveSubscribers.Dec()
		h.logger.Debug().Str("subscription", sub.ID).Msg("Event stream closed")
	}()
	h.logger.Debug().Str("subscription", sub.ID).Str("kind", string(kind)).Int("tab", tabID).Msg("Event stream opened")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{"subscriptionId": sub.ID, "kind": kind, "tabId": tabID})
	c.Writer.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	done := c.Request.Context().Done()
	c.Stream(func(io.Writer) bool {
		select {
		case <-done:
			return false
		case message, ok := <-sub.C():
			if !ok {
				return false
			}
			name := "message"
			if event, isEvent := message.(model.Event); isEvent {
				name = string(event.Type)
			}
			c.SSEvent(name, message)
			return true
		case now := <-keepAlive.C:
			c.SSEvent("ping", now.UTC().Format(time.RFC3339))
			return true
		}
	})
}
