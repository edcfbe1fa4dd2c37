package service

import (
	"context"

	"github.com/rs/zerolog"

	"focusbubble/backend/internal/hub"
	"focusbubble/backend/internal/metrics"
	"focusbubble/backend/internal/model"
)

// EventPublisher pushes engine events to live components.
type EventPublisher interface {
	Publish(ctx context.Context, event model.Event)
}

// Broadcaster is a best-effort publish to runtime listeners and to every tab
// open at publish time. Undelivered messages are dropped.
type Broadcaster struct {
	hub    hub.Hub
	logger zerolog.Logger
}

func NewBroadcaster(h hub.Hub, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    h,
		logger: logger.With().Str("component", "broadcast").Logger(),
	}
}

func (b *Broadcaster) Publish(ctx context.Context, event model.Event) {
	if err := b.hub.SendMessage(ctx, event); err != nil {
		metrics.BroadcastsDropped.WithLabelValues("runtime").Inc()
		b.logger.Debug().Err(err).Str("type", string(event.Type)).Msg("Runtime broadcast dropped")
	}

	for _, tab := range b.hub.QueryTabs(ctx) {
		if err := b.hub.SendMessageToTab(ctx, tab.ID, event); err != nil {
			metrics.BroadcastsDropped.WithLabelValues("tab").Inc()
			b.logger.Debug().Err(err).Int("tab", tab.ID).Str("type", string(event.Type)).Msg("Tab broadcast dropped")
		}
	}
}
