package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/storage"
)

// Persisted keys.
const (
	KeyTimerState = "timerState"
	KeySessions   = "sessions"
	KeyStats      = "stats"
	KeySettings   = "settings"
)

var (
	ErrNotFound = errors.New("not found")
	ErrCorrupt  = errors.New("corrupt record")
)

// Repository maps domain records onto the key-value store.
type Repository struct {
	store storage.Store
}

func New(store storage.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) GetTimerState(ctx context.Context) (*model.TimerState, error) {
	var state model.TimerState
	if err := r.getJSON(ctx, KeyTimerState, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *Repository) SaveTimerState(ctx context.Context, state *model.TimerState) error {
	return r.setJSON(ctx, map[string]any{KeyTimerState: state})
}

// GetHistory loads the retained session list and the lifetime statistics.
// Either may be missing; missing values come back empty.
func (r *Repository) GetHistory(ctx context.Context) ([]model.Session, model.Statistics, error) {
	var stats model.Statistics
	values, err := r.store.Get(ctx, KeySessions, KeyStats)
	if err != nil {
		return nil, stats, fmt.Errorf("get history: %w", err)
	}

	sessions := []model.Session{}
	if raw, ok := values[KeySessions]; ok {
		if err := json.Unmarshal(raw, &sessions); err != nil {
			return nil, stats, fmt.Errorf("%w: %s: %v", ErrCorrupt, KeySessions, err)
		}
	}
	if raw, ok := values[KeyStats]; ok {
		if err := json.Unmarshal(raw, &stats); err != nil {
			return nil, stats, fmt.Errorf("%w: %s: %v", ErrCorrupt, KeyStats, err)
		}
	}
	return sessions, stats, nil
}

// SaveHistory writes sessions and statistics in a single store call.
func (r *Repository) SaveHistory(ctx context.Context, sessions []model.Session, stats model.Statistics) error {
	if sessions == nil {
		sessions = []model.Session{}
	}
	return r.setJSON(ctx, map[string]any{
		KeySessions: sessions,
		KeyStats:    stats,
	})
}

func (r *Repository) GetSettings(ctx context.Context) (*model.Settings, error) {
	settings := model.DefaultSettings()
	if err := r.getJSON(ctx, KeySettings, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *Repository) SaveSettings(ctx context.Context, settings model.Settings) error {
	return r.setJSON(ctx, map[string]any{KeySettings: settings})
}

func (r *Repository) getJSON(ctx context.Context, key string, out any) error {
	values, err := r.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	raw, ok := values[key]
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

func (r *Repository) setJSON(ctx context.Context, values map[string]any) error {
	items := make(map[string][]byte, len(values))
	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		items[key] = raw
	}
	if err := r.store.Set(ctx, items); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}
