package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	apperrors "focusbubble/backend/internal/errors"
	"focusbubble/backend/internal/metrics"
	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/repository"
)

// SettingsService owns the persisted user settings. The engine treats them
// as read-only input.
type SettingsService struct {
	repo   *repository.Repository
	logger zerolog.Logger

	mu     sync.Mutex
	cached *model.Settings
}

func NewSettingsService(repo *repository.Repository, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		logger: logger.With().Str("component", "settings").Logger(),
	}
}

func (s *SettingsService) Get(ctx context.Context) (model.Settings, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, nil
	}

	settings, err := s.repo.GetSettings(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		defaults := model.DefaultSettings()
		settings = &defaults
	case errors.Is(err, repository.ErrCorrupt):
		s.logger.Warn().Err(err).Msg("Stored settings unreadable, using defaults")
		defaults := model.DefaultSettings()
		settings = &defaults
	case err != nil:
		return model.DefaultSettings(), apperrors.Persistence("failed to load settings")
	}

	s.cached = settings
	return *settings, nil
}

// Current returns the settings, falling back to defaults when storage is
// unavailable.
func (s *SettingsService) Current(ctx context.Context) model.Settings {
	settings, apiErr := s.Get(ctx)
	if apiErr != nil {
		s.logger.Error().Str("code", apiErr.Code).Msg("Using default settings")
	}
	return settings
}

// Update merges patch into the stored settings and persists the result.
func (s *SettingsService) Update(ctx context.Context, patch model.SettingsPatch) (model.Settings, *apperrors.APIError) {
	current, apiErr := s.Get(ctx)
	if apiErr != nil {
		return current, apiErr
	}

	next := patch.Apply(current)
	if apiErr := validateSettings(next); apiErr != nil {
		return current, apiErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SaveSettings(ctx, next); err != nil {
		metrics.PersistenceFailures.WithLabelValues(repository.KeySettings).Inc()
		s.logger.Error().Err(err).Msg("Failed to persist settings")
		return current, apperrors.Persistence("failed to save settings")
	}
	s.cached = &next

	s.logger.Info().
		Float64("default_duration", next.DefaultDuration).
		Bool("notifications", next.NotificationsEnabled).
		Msg("Settings updated")
	return next, nil
}

func validateSettings(settings model.Settings) *apperrors.APIError {
	for _, minutes := range []float64{
		settings.DefaultDuration,
		settings.ShortBreakDuration,
		settings.LongBreakDuration,
	} {
		if _, ok := minutesToSeconds(minutes); !ok {
			return apperrors.BadRequest(apperrors.CodeInvalidSettings, "durations must be positive minutes")
		}
	}
	if settings.SessionsUntilLongBreak < 1 {
		return apperrors.BadRequest(apperrors.CodeInvalidSettings, "sessionsUntilLongBreak must be at least 1")
	}
	return nil
}
