package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/storage"
)

func TestTimerStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := New(storage.NewMemory())

	_, err := repo.GetTimerState(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	id := "session-1"
	state := model.TimerState{
		Status:           model.StatusRunning,
		Mode:             model.ModeFocus,
		DurationSeconds:  1500,
		RemainingSeconds: 1500,
		StartedAt:        &started,
		SessionID:        &id,
		SessionStartedAt: &started,
		UpdatedAt:        started,
	}
	require.NoError(t, repo.SaveTimerState(ctx, &state))

	loaded, err := repo.GetTimerState(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, loaded.Status)
	require.NotNil(t, loaded.StartedAt)
	assert.True(t, loaded.StartedAt.Equal(started))
	assert.Equal(t, id, *loaded.SessionID)
}

func TestCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, map[string][]byte{KeyTimerState: []byte("{not json")}))

	_, err := New(store).GetTimerState(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestHistoryDefaultsToEmpty(t *testing.T) {
	sessions, stats, err := New(storage.NewMemory()).GetHistory(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
	assert.Zero(t, stats.TotalSessions)
}

func TestSettingsMergeOverDefaults(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, map[string][]byte{KeySettings: []byte(`{"defaultDuration":50}`)}))

	settings, err := New(store).GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50.0, settings.DefaultDuration)
	assert.Equal(t, 5.0, settings.ShortBreakDuration)
	assert.True(t, settings.NotificationsEnabled)
}
