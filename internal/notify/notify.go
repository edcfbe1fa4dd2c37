package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"focusbubble/backend/internal/hub"
	"focusbubble/backend/internal/model"
)

// Notifier shows a user-facing notification. Callers treat failures as
// non-fatal.
type Notifier interface {
	Show(ctx context.Context, n model.Notification) error
}

// HubNotifier logs the notification and pushes it to runtime listeners,
// which render it natively.
type HubNotifier struct {
	hub    hub.Hub
	logger zerolog.Logger
}

func NewHubNotifier(h hub.Hub, logger zerolog.Logger) *HubNotifier {
	return &HubNotifier{
		hub:    h,
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

func (n *HubNotifier) Show(ctx context.Context, notification model.Notification) error {
	n.logger.Info().
		Str("id", notification.ID).
		Str("title", notification.Title).
		Msg(notification.Message)

	return n.hub.SendMessage(ctx, model.Event{
		Type:         model.EventNotification,
		Notification: &notification,
	})
}

// ForCompletion builds the completion notice for a finished session.
func ForCompletion(session model.Session) model.Notification {
	n := model.Notification{ID: "focus-complete-" + session.ID}
	switch session.Mode {
	case model.ModeShortBreak:
		n.Title = "Break Complete! ☕"
		n.Message = "Time to get back to work!"
	case model.ModeLongBreak:
		n.Title = "Long Break Complete! 🌟"
		n.Message = "Feeling refreshed? Let's focus!"
	default:
		n.Title = "Focus Session Complete! 🎉"
		n.Message = focusMessage(session)
	}
	return n
}

func focusMessage(session model.Session) string {
	minutes := (session.ActualDurationSeconds + 30) / 60
	return fmt.Sprintf("Great work! You completed %s with %s.",
		plural(minutes, "minute"), plural(session.Distractions, "distraction"))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
