package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusbubble/backend/internal/clock"
	apperrors "focusbubble/backend/internal/errors"
	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/repository"
	"focusbubble/backend/internal/storage"
)

func newHistory(t *testing.T, opts HistoryOptions) (*HistoryService, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testEpoch)
	repo := repository.New(storage.NewMemory())
	return NewHistoryService(repo, clk, opts, zerolog.Nop()), clk
}

func focusSession(id string, end time.Time, completed bool) model.Session {
	return model.Session{
		ID:                     id,
		Mode:                   model.ModeFocus,
		StartTime:              end.Add(-25 * time.Minute),
		EndTime:                end,
		PlannedDurationSeconds: 1500,
		ActualDurationSeconds:  1500,
		Completed:              completed,
	}
}

func TestHistoryStreaks(t *testing.T) {
	history, clk := newHistory(t, HistoryOptions{})
	ctx := context.Background()

	day := func(n int) time.Time { return testEpoch.AddDate(0, 0, n) }

	for i, end := range []time.Time{day(0), day(0).Add(time.Hour), day(1), day(2)} {
		_, apiErr := history.Append(ctx, focusSession(fmt.Sprintf("s%d", i), end, true))
		require.Nil(t, apiErr)
	}
	clk.Set(day(2))

	stats, apiErr := history.Statistics(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
	assert.Equal(t, "2026-03-04", stats.LastStreakDate)

	// A gap restarts the streak but keeps the longest.
	_, apiErr = history.Append(ctx, focusSession("gap", day(5), true))
	require.Nil(t, apiErr)
	clk.Set(day(5))
	stats, apiErr = history.Statistics(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
}

func TestHistoryStreakIgnoresIncompleteAndBreaks(t *testing.T) {
	history, _ := newHistory(t, HistoryOptions{})
	ctx := context.Background()

	_, apiErr := history.Append(ctx, focusSession("stopped", testEpoch, false))
	require.Nil(t, apiErr)
	brk := focusSession("break", testEpoch, true)
	brk.Mode = model.ModeShortBreak
	brk.ActualDurationSeconds = 300
	stats, apiErr := history.Append(ctx, brk)
	require.Nil(t, apiErr)

	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.CompletedSessions)
	assert.Equal(t, 1, stats.FocusSessions)
	assert.Equal(t, 1500, stats.TotalFocusSeconds)
	assert.Equal(t, "2026-03-02", stats.LastSessionDate)
}

func TestHistoryStreakDecaysOnRead(t *testing.T) {
	history, clk := newHistory(t, HistoryOptions{})
	ctx := context.Background()

	_, apiErr := history.Append(ctx, focusSession("a", testEpoch, true))
	require.Nil(t, apiErr)

	clk.Advance(24 * time.Hour)
	stats, apiErr := history.Statistics(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, 1, stats.CurrentStreak)

	clk.Advance(24 * time.Hour)
	stats, apiErr = history.Statistics(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 1, stats.LongestStreak)
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	history, _ := newHistory(t, HistoryOptions{MaxSessions: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, apiErr := history.Append(ctx, focusSession(fmt.Sprintf("s%d", i), testEpoch.Add(time.Duration(i)*time.Hour), true))
		require.Nil(t, apiErr)
	}

	sessions, apiErr := history.List(ctx, 0)
	require.Nil(t, apiErr)
	require.Len(t, sessions, 3)
	assert.Equal(t, "s4", sessions[0].ID)
	assert.Equal(t, "s2", sessions[2].ID)

	stats, apiErr := history.Statistics(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, 5, stats.TotalSessions)
}

func TestHistoryAppendDeduplicates(t *testing.T) {
	history, _ := newHistory(t, HistoryOptions{})
	ctx := context.Background()

	session := focusSession("same", testEpoch, true)
	_, apiErr := history.Append(ctx, session)
	require.Nil(t, apiErr)
	stats, apiErr := history.Append(ctx, session)
	require.Nil(t, apiErr)

	assert.Equal(t, 1, stats.TotalSessions)
	sessions, apiErr := history.List(ctx, 0)
	require.Nil(t, apiErr)
	assert.Len(t, sessions, 1)
	assert.Equal(t, "2026-03-02", sessions[0].Date)
}

func TestHistoryListLimit(t *testing.T) {
	history, _ := newHistory(t, HistoryOptions{MaxSessions: 10, DefaultLimit: 4})
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		_, apiErr := history.Append(ctx, focusSession(fmt.Sprintf("s%d", i), testEpoch.Add(time.Duration(i)*time.Minute), false))
		require.Nil(t, apiErr)
	}

	cases := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 4},
		{limit: -1, want: 4},
		{limit: 2, want: 2},
		{limit: 50, want: 8},
	}
	for _, tc := range cases {
		sessions, apiErr := history.List(ctx, tc.limit)
		require.Nil(t, apiErr)
		assert.Len(t, sessions, tc.want, "limit %d", tc.limit)
		assert.Equal(t, "s7", sessions[0].ID)
	}
}

func TestHistoryDeleteAndClear(t *testing.T) {
	history, _ := newHistory(t, HistoryOptions{})
	ctx := context.Background()

	_, apiErr := history.Append(ctx, focusSession("a", testEpoch, true))
	require.Nil(t, apiErr)
	_, apiErr = history.Append(ctx, focusSession("b", testEpoch.Add(time.Hour), true))
	require.Nil(t, apiErr)

	apiErr = history.Delete(ctx, "missing")
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.CodeSessionNotFound, apiErr.Code)

	require.Nil(t, history.Delete(ctx, "a"))
	sessions, apiErr := history.List(ctx, 0)
	require.Nil(t, apiErr)
	require.Len(t, sessions, 1)
	assert.Equal(t, "b", sessions[0].ID)

	stats, apiErr := history.Statistics(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, 2, stats.TotalSessions)

	require.Nil(t, history.Clear(ctx))
	sessions, apiErr = history.List(ctx, 0)
	require.Nil(t, apiErr)
	assert.Empty(t, sessions)
	stats, apiErr = history.Statistics(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, model.Statistics{}, stats)
}

func TestHistoryRecomputeAndAverages(t *testing.T) {
	history, _ := newHistory(t, HistoryOptions{})
	ctx := context.Background()

	first := focusSession("a", testEpoch, true)
	first.Distractions = 3
	second := focusSession("b", testEpoch.AddDate(0, 0, 1), true)
	second.ActualDurationSeconds = 900
	second.Distractions = 1
	for _, session := range []model.Session{second, first} {
		_, apiErr := history.Append(ctx, session)
		require.Nil(t, apiErr)
	}
	require.Nil(t, history.Delete(ctx, "a"))

	stats, apiErr := history.RecomputeStatistics(ctx)
	require.Nil(t, apiErr)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 900, stats.TotalFocusSeconds)
	assert.InDelta(t, 900.0, stats.AverageFocusSeconds, 0.001)
	assert.InDelta(t, 1.0, stats.AverageDistractions, 0.001)
	assert.Equal(t, 1, stats.LongestStreak)

	require.Nil(t, history.Clear(ctx))
	for _, session := range []model.Session{second, first} {
		_, apiErr := history.Append(ctx, session)
		require.Nil(t, apiErr)
	}
	stats, apiErr = history.RecomputeStatistics(ctx)
	require.Nil(t, apiErr)
	// Out-of-order appends still yield a two day streak once rescanned.
	assert.Equal(t, 2, stats.LongestStreak)
	assert.InDelta(t, 1200.0, stats.AverageFocusSeconds, 0.001)
	assert.InDelta(t, 2.0, stats.AverageDistractions, 0.001)
}
