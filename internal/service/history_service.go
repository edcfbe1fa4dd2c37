package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"focusbubble/backend/internal/clock"
	apperrors "focusbubble/backend/internal/errors"
	"focusbubble/backend/internal/metrics"
	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/repository"
)

const (
	DefaultMaxSessions = 100
	DefaultListLimit   = 50
)

// HistoryService is the append-only log of finalized sessions with
// incrementally maintained lifetime statistics.
type HistoryService struct {
	repo         *repository.Repository
	clock        clock.Clock
	logger       zerolog.Logger
	maxSessions  int
	defaultLimit int

	mu sync.Mutex
}

type HistoryOptions struct {
	MaxSessions  int
	DefaultLimit int
}

func NewHistoryService(
	repo *repository.Repository,
	clk clock.Clock,
	opts HistoryOptions,
	logger zerolog.Logger,
) *HistoryService {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultListLimit
	}
	return &HistoryService{
		repo:         repo,
		clock:        clk,
		logger:       logger.With().Str("component", "history").Logger(),
		maxSessions:  opts.MaxSessions,
		defaultLimit: opts.DefaultLimit,
	}
}

// Append records session and updates statistics. A session whose id is
// already retained is ignored, which makes retries safe.
func (s *HistoryService) Append(ctx context.Context, session model.Session) (model.Statistics, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, stats, apiErr := s.load(ctx)
	if apiErr != nil {
		return stats, apiErr
	}

	for _, existing := range sessions {
		if existing.ID == session.ID {
			s.logger.Debug().Str("session_id", session.ID).Msg("Session already recorded")
			return s.view(stats), nil
		}
	}

	if session.Date == "" {
		session.Date = session.EndTime.In(s.location()).Format(model.DateLayout)
	}

	sessions = append(sessions, session)
	if overflow := len(sessions) - s.maxSessions; overflow > 0 {
		sessions = append([]model.Session(nil), sessions[overflow:]...)
	}
	stats = accumulate(stats, session, s.location())

	if err := s.repo.SaveHistory(ctx, sessions, stats); err != nil {
		metrics.PersistenceFailures.WithLabelValues(repository.KeySessions).Inc()
		s.logger.Error().Err(err).Str("session_id", session.ID).Msg("Failed to persist session")
		return stats, apperrors.Persistence("failed to record session")
	}

	metrics.SessionsRecorded.WithLabelValues(string(session.Mode), boolLabel(session.Completed)).Inc()
	s.logger.Info().
		Str("session_id", session.ID).
		Str("mode", string(session.Mode)).
		Bool("completed", session.Completed).
		Int("actual_seconds", session.ActualDurationSeconds).
		Int("distractions", session.Distractions).
		Msg("Session recorded")

	return s.view(stats), nil
}

// Recorded reports whether a session with sessionID is retained.
func (s *HistoryService) Recorded(ctx context.Context, sessionID string) (bool, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, _, apiErr := s.load(ctx)
	if apiErr != nil {
		return false, apiErr
	}
	for _, session := range sessions {
		if session.ID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

// List returns up to limit sessions, most recent first.
func (s *HistoryService) List(ctx context.Context, limit int) ([]model.Session, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, _, apiErr := s.load(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxSessions {
		limit = s.maxSessions
	}
	if limit > len(sessions) {
		limit = len(sessions)
	}

	out := make([]model.Session, 0, limit)
	for i := len(sessions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, sessions[i])
	}
	return out, nil
}

// Delete removes one retained session. Lifetime statistics are not rewound.
func (s *HistoryService) Delete(ctx context.Context, sessionID string) *apperrors.APIError {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, stats, apiErr := s.load(ctx)
	if apiErr != nil {
		return apiErr
	}

	kept := make([]model.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.ID != sessionID {
			kept = append(kept, session)
		}
	}
	if len(kept) == len(sessions) {
		return apperrors.NotFound(apperrors.CodeSessionNotFound, "session not found")
	}

	if err := s.repo.SaveHistory(ctx, kept, stats); err != nil {
		metrics.PersistenceFailures.WithLabelValues(repository.KeySessions).Inc()
		return apperrors.Persistence("failed to delete session")
	}
	s.logger.Info().Str("session_id", sessionID).Msg("Session deleted")
	return nil
}

// Clear empties the session list and zeroes statistics.
func (s *HistoryService) Clear(ctx context.Context) *apperrors.APIError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveHistory(ctx, nil, model.Statistics{}); err != nil {
		metrics.PersistenceFailures.WithLabelValues(repository.KeySessions).Inc()
		return apperrors.Persistence("failed to clear history")
	}
	s.logger.Info().Msg("History cleared")
	return nil
}

// Statistics returns the lifetime statistics as of now. A streak whose last
// day is before yesterday reads as zero.
func (s *HistoryService) Statistics(ctx context.Context) (model.Statistics, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, stats, apiErr := s.load(ctx)
	if apiErr != nil {
		return stats, apiErr
	}
	return s.view(stats), nil
}

// RecomputeStatistics rebuilds statistics from the retained sessions only.
func (s *HistoryService) RecomputeStatistics(ctx context.Context) (model.Statistics, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, _, apiErr := s.load(ctx)
	if apiErr != nil {
		return model.Statistics{}, apiErr
	}

	ordered := append([]model.Session(nil), sessions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EndTime.Before(ordered[j].EndTime)
	})

	loc := s.location()
	var stats model.Statistics
	for _, session := range ordered {
		stats = accumulate(stats, session, loc)
	}

	if err := s.repo.SaveHistory(ctx, sessions, stats); err != nil {
		metrics.PersistenceFailures.WithLabelValues(repository.KeyStats).Inc()
		return stats, apperrors.Persistence("failed to save statistics")
	}
	return s.view(stats), nil
}

func (s *HistoryService) load(ctx context.Context) ([]model.Session, model.Statistics, *apperrors.APIError) {
	sessions, stats, err := s.repo.GetHistory(ctx)
	if errors.Is(err, repository.ErrCorrupt) {
		s.logger.Warn().Err(err).Msg("Stored history unreadable, starting empty")
		return []model.Session{}, model.Statistics{}, nil
	}
	if err != nil {
		return nil, stats, apperrors.Persistence("failed to load history")
	}
	return sessions, stats, nil
}

func (s *HistoryService) location() *time.Location {
	return s.clock.Now().Location()
}

func (s *HistoryService) view(stats model.Statistics) model.Statistics {
	if stats.LastStreakDate != "" {
		now := s.clock.Now()
		today := now.Format(model.DateLayout)
		yesterday := now.AddDate(0, 0, -1).Format(model.DateLayout)
		if stats.LastStreakDate != today && stats.LastStreakDate != yesterday {
			stats.CurrentStreak = 0
		}
	}
	return withAverages(stats)
}

// accumulate folds one session into stats.
func accumulate(stats model.Statistics, session model.Session, loc *time.Location) model.Statistics {
	date := session.Date
	if date == "" {
		date = session.EndTime.In(loc).Format(model.DateLayout)
	}

	stats.TotalSessions++
	if session.Completed {
		stats.CompletedSessions++
	}
	if session.Mode == model.ModeFocus {
		stats.FocusSessions++
		stats.TotalFocusSeconds += session.ActualDurationSeconds
	}
	stats.TotalDistractions += session.Distractions
	if date > stats.LastSessionDate {
		stats.LastSessionDate = date
	}

	if session.Completed && session.Mode == model.ModeFocus {
		stats = advanceStreak(stats, date, loc)
	}
	return withAverages(stats)
}

// advanceStreak counts date once: same day keeps the streak, the following
// day extends it, anything later restarts it at one.
func advanceStreak(stats model.Statistics, date string, loc *time.Location) model.Statistics {
	switch {
	case stats.LastStreakDate == "":
		stats.CurrentStreak = 1
	case date <= stats.LastStreakDate:
		return stats
	case dayAfter(stats.LastStreakDate, loc) == date:
		stats.CurrentStreak++
	default:
		stats.CurrentStreak = 1
	}
	stats.LastStreakDate = date
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	return stats
}

func dayAfter(date string, loc *time.Location) string {
	t, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, 1).Format(model.DateLayout)
}

func withAverages(stats model.Statistics) model.Statistics {
	stats.AverageFocusSeconds = 0
	stats.AverageDistractions = 0
	if stats.FocusSessions > 0 {
		stats.AverageFocusSeconds = float64(stats.TotalFocusSeconds) / float64(stats.FocusSessions)
	}
	if stats.TotalSessions > 0 {
		stats.AverageDistractions = float64(stats.TotalDistractions) / float64(stats.TotalSessions)
	}
	return stats
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
