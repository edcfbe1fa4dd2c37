package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"focusbubble/backend/internal/alarm"
	"focusbubble/backend/internal/clock"
	apperrors "focusbubble/backend/internal/errors"
	"focusbubble/backend/internal/metrics"
	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/notify"
	"focusbubble/backend/internal/repository"
)

// Alarm names.
const (
	AlarmCompletion = "focusTimer"
	AlarmTick       = "timerTick"
)

const (
	defaultTickInterval       = time.Second
	defaultMaxPersistFailures = 3
)

// TimerDeps wires the engine to its collaborators.
type TimerDeps struct {
	Repo      *repository.Repository
	History   *HistoryService
	Settings  *SettingsService
	Alarms    alarm.Alarms
	Publisher EventPublisher
	Notifier  notify.Notifier
	Clock     clock.Clock
	Logger    zerolog.Logger

	TickInterval       time.Duration
	MaxPersistFailures int
	NewID              func() string
}

// TimerService is the timer/session engine. It owns the single timer state;
// every operation, alarm and distraction is serialized by mu and persisted
// before it returns.
type TimerService struct {
	repo      *repository.Repository
	history   *HistoryService
	settings  *SettingsService
	alarms    alarm.Alarms
	publisher EventPublisher
	notifier  notify.Notifier
	clock     clock.Clock
	logger    zerolog.Logger
	newID     func() string

	tickInterval time.Duration
	maxFailures  int

	mu              sync.Mutex
	state           model.TimerState
	loaded          bool
	persistFailures int
	pending         []model.Session
}

// StartInput describes a session to start.
type StartInput struct {
	// DurationMinutes nil means the configured length for Mode.
	DurationMinutes *float64
	Mode            model.Mode
	// DiscardActive drops a running or paused session instead of saving it.
	DiscardActive bool
}

// StartResult is the state after a start and any session it replaced.
type StartResult struct {
	State model.StateView `json:"state"`
	// Replaced is the saved record of the session this start displaced.
	Replaced *model.Session `json:"replacedSession,omitempty"`
}

// StopResult is the idle state after a stop and the saved record, if any.
type StopResult struct {
	State   model.StateView `json:"state"`
	Session *model.Session  `json:"session,omitempty"`
}

// DistractionInput names what pulled the user away.
type DistractionInput struct {
	URL    string
	Reason string
}

// DistractionResult reports whether a distraction counted against the running session.
type DistractionResult struct {
	Recorded     bool            `json:"recorded"`
	Ignored      bool            `json:"ignored,omitempty"`
	Distractions int             `json:"distractions"`
	State        model.StateView `json:"state"`
}

func NewTimerService(deps TimerDeps) *TimerService {
	if deps.TickInterval <= 0 {
		deps.TickInterval = defaultTickInterval
	}
	if deps.MaxPersistFailures <= 0 {
		deps.MaxPersistFailures = defaultMaxPersistFailures
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}

	s := &TimerService{
		repo:         deps.Repo,
		history:      deps.History,
		settings:     deps.Settings,
		alarms:       deps.Alarms,
		publisher:    deps.Publisher,
		notifier:     deps.Notifier,
		clock:        deps.Clock,
		logger:       deps.Logger.With().Str("component", "engine").Logger(),
		newID:        deps.NewID,
		tickInterval: deps.TickInterval,
		maxFailures:  deps.MaxPersistFailures,
	}
	s.alarms.OnAlarm(s.HandleAlarm)
	return s
}

// Restore reconciles the engine with persisted state after a cold start. A
// timer that ran out while the process was down completes immediately; one
// still running is re-armed for its remaining time.
func (s *TimerService) Restore(ctx context.Context) *apperrors.APIError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(ctx)
}

func (s *TimerService) State(ctx context.Context) (*model.StateView, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.completeIfDueLocked(ctx); apiErr != nil {
		return nil, apiErr
	}

	view := s.viewLocked(s.clock.Now())
	return &view, nil
}

func (s *TimerService) Start(ctx context.Context, input StartInput) (*StartResult, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return nil, apiErr
	}

	mode := input.Mode
	if mode == "" {
		mode = model.ModeFocus
	}
	if !mode.Valid() {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidMode, "mode must be one of focus, short-break, long-break")
	}

	settings := s.settings.Current(ctx)
	minutes := settings.MinutesFor(mode)
	if input.DurationMinutes != nil {
		minutes = *input.DurationMinutes
	}
	seconds, ok := minutesToSeconds(minutes)
	if !ok {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidDuration, "duration must be a positive number of minutes")
	}

	result := &StartResult{}
	var recordErr *apperrors.APIError
	if s.state.Active() {
		replaced, apiErr := s.stopLocked(ctx, !input.DiscardActive, model.EventTimerStopped)
		result.Replaced = replaced
		recordErr = apiErr
	}

	apiErr := s.startLocked(ctx, mode, seconds)
	result.State = s.viewLocked(s.clock.Now())
	if apiErr == nil {
		apiErr = recordErr
	}
	return result, apiErr
}

func (s *TimerService) Pause(ctx context.Context) (*model.StateView, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return nil, apiErr
	}

	switch s.state.Status {
	case model.StatusPaused:
		return nil, apperrors.Conflict(apperrors.CodeAlreadyPaused, "Timer is already paused")
	case model.StatusRunning:
	default:
		return nil, apperrors.Conflict(apperrors.CodeNoActiveTimer, "No active timer")
	}

	now := s.clock.Now()
	remaining := RecomputeRemaining(s.state, now)
	if remaining == 0 {
		_, apiErr := s.completeLocked(ctx)
		view := s.viewLocked(now)
		return &view, apiErr
	}

	s.state.RemainingSeconds = remaining
	s.state.Status = model.StatusPaused
	s.state.StartedAt = nil
	s.state.UpdatedAt = now
	s.alarms.Cancel(AlarmCompletion)
	s.alarms.Cancel(AlarmTick)

	apiErr := s.persistLocked(ctx)
	view := s.viewLocked(now)
	s.publishLocked(ctx, model.EventTimerPaused, &view, nil)

	s.logger.Info().Str("session_id", s.sessionIDLocked()).Int("remaining_seconds", remaining).Msg("Timer paused")
	return &view, apiErr
}

func (s *TimerService) Resume(ctx context.Context) (*model.StateView, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return nil, apiErr
	}

	if s.state.Status != model.StatusPaused || s.state.RemainingSeconds <= 0 {
		return nil, apperrors.Conflict(apperrors.CodeNoPausedTimer, "No paused timer")
	}

	now := s.clock.Now()
	s.state.Status = model.StatusRunning
	s.state.StartedAt = &now
	s.state.UpdatedAt = now
	s.armLocked(now)

	apiErr := s.persistLocked(ctx)
	view := s.viewLocked(now)
	s.publishLocked(ctx, model.EventTimerResumed, &view, nil)

	s.logger.Info().Str("session_id", s.sessionIDLocked()).Int("remaining_seconds", s.state.RemainingSeconds).Msg("Timer resumed")
	return &view, apiErr
}

// Stop ends the active session without completing it. With save set, a
// completed=false record is appended to history.
func (s *TimerService) Stop(ctx context.Context, save bool) (*StopResult, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return nil, apiErr
	}
	if !s.state.Active() {
		return nil, apperrors.Conflict(apperrors.CodeNoActiveTimer, "No active timer")
	}

	session, apiErr := s.stopLocked(ctx, save, model.EventTimerStopped)
	return &StopResult{State: s.viewLocked(s.clock.Now()), Session: session}, apiErr
}

// Reset discards any active session and returns to idle defaults. Unlike Stop
// it succeeds when already idle.
func (s *TimerService) Reset(ctx context.Context) (*model.StateView, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return nil, apiErr
	}

	var apiErr *apperrors.APIError
	if s.state.Active() {
		_, apiErr = s.stopLocked(ctx, false, model.EventTimerReset)
	} else {
		now := s.clock.Now()
		s.state = s.idleLocked(ctx, now)
		s.alarms.Cancel(AlarmCompletion)
		s.alarms.Cancel(AlarmTick)
		apiErr = s.persistLocked(ctx)
		view := s.viewLocked(now)
		s.publishLocked(ctx, model.EventTimerReset, &view, nil)
	}

	view := s.viewLocked(s.clock.Now())
	return &view, apiErr
}

// Complete finalizes a running session as completed. It is a no-op when
// nothing is running.
func (s *TimerService) Complete(ctx context.Context) (*model.Session, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return nil, apiErr
	}
	return s.completeLocked(ctx)
}

// Tick publishes the recomputed remaining time. It carries no correctness
// role beyond completing a timer whose alarm was missed.
func (s *TimerService) Tick(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return
	}
	if s.state.Status != model.StatusRunning {
		s.alarms.Cancel(AlarmTick)
		return
	}

	now := s.clock.Now()
	remaining := RecomputeRemaining(s.state, now)
	if remaining == 0 {
		_, _ = s.completeLocked(ctx)
		return
	}

	view := s.viewLocked(now)
	s.publisher.Publish(ctx, model.Event{
		Type:             model.EventTimerTick,
		State:            &view,
		RemainingSeconds: &remaining,
	})
}

// HandleAlarm is the alarm callback.
func (s *TimerService) HandleAlarm(ctx context.Context, name string) {
	metrics.AlarmsFired.WithLabelValues(name).Inc()

	switch name {
	case AlarmCompletion:
		s.onCompletionAlarm(ctx)
	case AlarmTick:
		s.Tick(ctx)
	default:
		s.logger.Warn().Str("alarm", name).Msg("Unknown alarm")
	}
}

func (s *TimerService) onCompletionAlarm(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return
	}
	if s.state.Status != model.StatusRunning {
		s.logger.Debug().Str("status", string(s.state.Status)).Msg("Completion alarm ignored")
		return
	}

	now := s.clock.Now()
	if RecomputeRemaining(s.state, now) > 0 {
		// A late alarm from an earlier run segment; the current one is still going.
		s.alarms.Schedule(AlarmCompletion, alarm.Spec{Delay: deadline(s.state).Sub(now)})
		return
	}

	if _, apiErr := s.completeLocked(ctx); apiErr != nil {
		s.logger.Error().Str("code", apiErr.Code).Msg("Completion not fully recorded")
	}
}

// ClearHistory empties history and statistics. Sessions still queued for a
// history retry are dropped with it.
func (s *TimerService) ClearHistory(ctx context.Context) *apperrors.APIError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.history.Clear(ctx); apiErr != nil {
		return apiErr
	}
	if len(s.pending) > 0 {
		s.logger.Info().Int("sessions", len(s.pending)).Msg("Queued sessions dropped by clear")
		s.pending = nil
	}
	return nil
}

func (s *TimerService) RecordDistraction(ctx context.Context, input DistractionInput) (*DistractionResult, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := s.completeIfDueLocked(ctx); apiErr != nil {
		return nil, apiErr
	}

	now := s.clock.Now()
	if s.state.Status != model.StatusRunning {
		return &DistractionResult{
			Ignored:      true,
			Distractions: s.state.DistractionCount,
			State:        s.viewLocked(now),
		}, nil
	}

	s.state.DistractionCount++
	s.state.UpdatedAt = now
	metrics.DistractionsRecorded.Inc()

	apiErr := s.persistLocked(ctx)
	view := s.viewLocked(now)
	count := s.state.DistractionCount
	s.publisher.Publish(ctx, model.Event{
		Type:         model.EventDistractionCountUpdated,
		State:        &view,
		Distractions: &count,
	})

	s.logger.Debug().
		Str("session_id", s.sessionIDLocked()).
		Str("url", input.URL).
		Str("reason", input.Reason).
		Int("distractions", count).
		Msg("Distraction recorded")

	return &DistractionResult{Recorded: true, Distractions: count, State: view}, apiErr
}

// UpdateSettings persists a settings change. An idle timer adopts the new
// default duration; an active session keeps its own.
func (s *TimerService) UpdateSettings(ctx context.Context, patch model.SettingsPatch) (model.Settings, *model.StateView, *apperrors.APIError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if apiErr := s.prepareLocked(ctx); apiErr != nil {
		return model.Settings{}, nil, apiErr
	}

	settings, apiErr := s.settings.Update(ctx, patch)
	if apiErr != nil {
		return settings, nil, apiErr
	}

	now := s.clock.Now()
	if s.state.Status == model.StatusIdle {
		if seconds, ok := minutesToSeconds(settings.DefaultDuration); ok && seconds != s.state.DurationSeconds {
			s.state.DurationSeconds = seconds
			s.state.RemainingSeconds = seconds
			s.state.UpdatedAt = now
			apiErr = s.persistLocked(ctx)
		}
	}

	view := s.viewLocked(now)
	s.publisher.Publish(ctx, model.Event{
		Type:     model.EventSettingsUpdated,
		State:    &view,
		Settings: &settings,
	})
	return settings, &view, apiErr
}

func (s *TimerService) prepareLocked(ctx context.Context) *apperrors.APIError {
	if !s.loaded {
		if apiErr := s.restoreLocked(ctx); apiErr != nil {
			return apiErr
		}
	}
	s.flushPendingLocked(ctx)
	return nil
}

func (s *TimerService) restoreLocked(ctx context.Context) *apperrors.APIError {
	now := s.clock.Now()

	state, err := s.repo.GetTimerState(ctx)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.state = s.idleLocked(ctx, now)
		s.loaded = true
		s.logger.Info().Int("duration_seconds", s.state.DurationSeconds).Msg("No saved timer, starting idle")
		return s.persistLocked(ctx)
	case errors.Is(err, repository.ErrCorrupt):
		s.logger.Warn().Err(err).Msg("Saved timer unreadable, starting idle")
		s.state = s.idleLocked(ctx, now)
		s.loaded = true
		return s.persistLocked(ctx)
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to load timer state")
		return apperrors.Persistence("failed to load timer state")
	}

	s.state = sanitize(*state)
	s.loaded = true

	// A session already in history was finalized before the idle state
	// reached storage.
	if s.state.Active() {
		recorded, apiErr := s.history.Recorded(ctx, s.sessionIDLocked())
		if apiErr != nil {
			s.logger.Warn().Str("code", apiErr.Code).Msg("Could not check history for restored session")
		} else if recorded {
			s.logger.Info().Str("session_id", s.sessionIDLocked()).Msg("Restored session already recorded, going idle")
			s.state = s.idleLocked(ctx, now)
			return s.persistLocked(ctx)
		}
	}

	if s.state.Status != model.StatusRunning {
		s.logger.Info().Str("status", string(s.state.Status)).Msg("Timer restored")
		return nil
	}

	remaining := RecomputeRemaining(s.state, now)
	if remaining == 0 {
		s.logger.Info().Str("session_id", s.sessionIDLocked()).Msg("Timer finished while offline")
		_, apiErr := s.completeLocked(ctx)
		return apiErr
	}

	// StartedAt moves by the whole seconds deducted so the sub-second
	// remainder keeps counting across restarts.
	startedAt := s.state.StartedAt.Add(time.Duration(s.state.RemainingSeconds-remaining) * time.Second)
	s.state.RemainingSeconds = remaining
	s.state.StartedAt = &startedAt
	s.state.UpdatedAt = now
	s.armLocked(now)

	s.logger.Info().
		Str("session_id", s.sessionIDLocked()).
		Int("remaining_seconds", remaining).
		Msg("Running timer restored")
	return s.persistLocked(ctx)
}

func (s *TimerService) startLocked(ctx context.Context, mode model.Mode, seconds int) *apperrors.APIError {
	now := s.clock.Now()
	sessionID := s.newID()

	s.state = model.TimerState{
		Status:           model.StatusRunning,
		Mode:             mode,
		DurationSeconds:  seconds,
		RemainingSeconds: seconds,
		StartedAt:        &now,
		SessionID:        &sessionID,
		SessionStartedAt: &now,
		DistractionCount: 0,
		FocusCycle:       s.state.FocusCycle,
		UpdatedAt:        now,
	}
	s.armLocked(now)

	apiErr := s.persistLocked(ctx)
	view := s.viewLocked(now)
	s.publishLocked(ctx, model.EventTimerStarted, &view, nil)

	s.logger.Info().
		Str("session_id", sessionID).
		Str("mode", string(mode)).
		Int("duration_seconds", seconds).
		Msg("Timer started")
	return apiErr
}

func (s *TimerService) stopLocked(ctx context.Context, save bool, event model.EventType) (*model.Session, *apperrors.APIError) {
	now := s.clock.Now()
	snapshot := s.state
	remaining := RecomputeRemaining(snapshot, now)

	s.alarms.Cancel(AlarmCompletion)
	s.alarms.Cancel(AlarmTick)

	var saved *model.Session
	var recordErr *apperrors.APIError
	if save && snapshot.SessionID != nil {
		session := s.finalize(snapshot, now, false, snapshot.DurationSeconds-remaining)
		recordErr = s.recordLocked(ctx, session)
		saved = &session
	}

	s.state = s.idleLocked(ctx, now)
	persistErr := s.persistLocked(ctx)

	view := s.viewLocked(now)
	s.publishLocked(ctx, event, &view, saved)

	s.logger.Info().
		Str("session_id", derefString(snapshot.SessionID)).
		Bool("saved", saved != nil).
		Int("active_seconds", snapshot.DurationSeconds-remaining).
		Msg("Timer stopped")

	if recordErr != nil {
		return saved, recordErr
	}
	return saved, persistErr
}

// completeLocked finalizes the running session. The history record is
// written before the idle state so a teardown in between leaves a running
// state that completes again and is deduplicated by session id.
func (s *TimerService) completeLocked(ctx context.Context) (*model.Session, *apperrors.APIError) {
	if s.state.Status != model.StatusRunning {
		return nil, nil
	}

	now := s.clock.Now()
	snapshot := s.state
	end := now
	if due := deadline(snapshot); !due.IsZero() && due.Before(now) {
		end = due
	}

	s.alarms.Cancel(AlarmCompletion)
	s.alarms.Cancel(AlarmTick)

	session := s.finalize(snapshot, end, true, snapshot.DurationSeconds)
	recordErr := s.recordLocked(ctx, session)

	s.state = s.idleLocked(ctx, now)
	s.state.FocusCycle = snapshot.FocusCycle
	if snapshot.Mode == model.ModeFocus {
		s.state.FocusCycle++
	}
	persistErr := s.persistLocked(ctx)

	settings := s.settings.Current(ctx)
	if settings.NotificationsEnabled && s.notifier != nil {
		if err := s.notifier.Show(ctx, notify.ForCompletion(session)); err != nil {
			s.logger.Debug().Err(err).Msg("Notification not shown")
		}
	}

	view := s.viewLocked(now)
	s.publishLocked(ctx, model.EventTimerCompleted, &view, &session)

	s.logger.Info().
		Str("session_id", session.ID).
		Str("mode", string(session.Mode)).
		Int("distractions", session.Distractions).
		Msg("Timer completed")

	if next, ok := nextMode(snapshot.Mode, s.state.FocusCycle, settings); ok {
		if seconds, valid := minutesToSeconds(settings.MinutesFor(next)); valid {
			if apiErr := s.startLocked(ctx, next, seconds); apiErr != nil && persistErr == nil {
				persistErr = apiErr
			}
		}
	}

	if recordErr != nil {
		return &session, recordErr
	}
	return &session, persistErr
}

func (s *TimerService) completeIfDueLocked(ctx context.Context) *apperrors.APIError {
	if s.state.Status != model.StatusRunning {
		return nil
	}
	if RecomputeRemaining(s.state, s.clock.Now()) > 0 {
		return nil
	}
	_, apiErr := s.completeLocked(ctx)
	return apiErr
}

func (s *TimerService) finalize(snapshot model.TimerState, end time.Time, completed bool, actual int) model.Session {
	start := end
	if snapshot.SessionStartedAt != nil {
		start = *snapshot.SessionStartedAt
	}
	return model.Session{
		ID:                     derefString(snapshot.SessionID),
		Mode:                   snapshot.Mode,
		StartTime:              start,
		EndTime:                end,
		PlannedDurationSeconds: snapshot.DurationSeconds,
		ActualDurationSeconds:  clampSeconds(actual, snapshot.DurationSeconds),
		Distractions:           snapshot.DistractionCount,
		Completed:              completed,
		Date:                   end.Format(model.DateLayout),
	}
}

// recordLocked appends session to history. On failure the session is kept
// and retried before the next operation.
func (s *TimerService) recordLocked(ctx context.Context, session model.Session) *apperrors.APIError {
	if _, apiErr := s.history.Append(ctx, session); apiErr != nil {
		s.pending = append(s.pending, session)
		s.logger.Error().Str("session_id", session.ID).Msg("Session queued for retry")
		return apiErr
	}
	return nil
}

func (s *TimerService) flushPendingLocked(ctx context.Context) {
	for len(s.pending) > 0 {
		session := s.pending[0]
		if _, apiErr := s.history.Append(ctx, session); apiErr != nil {
			return
		}
		s.pending = s.pending[1:]
		s.logger.Info().Str("session_id", session.ID).Msg("Queued session recorded")
	}
}

// persistLocked writes the timer state. A failure is logged and the
// in-memory change stands; only repeated consecutive failures are reported.
func (s *TimerService) persistLocked(ctx context.Context) *apperrors.APIError {
	if err := s.repo.SaveTimerState(ctx, &s.state); err != nil {
		s.persistFailures++
		metrics.PersistenceFailures.WithLabelValues(repository.KeyTimerState).Inc()
		s.logger.Error().Err(err).Int("consecutive_failures", s.persistFailures).Msg("Failed to persist timer state")
		if s.persistFailures >= s.maxFailures {
			return apperrors.Persistence("timer state could not be saved")
		}
		return nil
	}
	s.persistFailures = 0
	return nil
}

func (s *TimerService) armLocked(now time.Time) {
	s.alarms.Schedule(AlarmCompletion, alarm.Spec{Delay: deadline(s.state).Sub(now)})
	s.alarms.Schedule(AlarmTick, alarm.Spec{Period: s.tickInterval})
}

func (s *TimerService) idleLocked(ctx context.Context, now time.Time) model.TimerState {
	seconds, ok := minutesToSeconds(s.settings.Current(ctx).DefaultDuration)
	if !ok {
		seconds = model.DefaultFocusMinutes * 60
	}
	idle := model.IdleState(seconds, now)
	idle.FocusCycle = s.state.FocusCycle
	return idle
}

func (s *TimerService) publishLocked(ctx context.Context, eventType model.EventType, view *model.StateView, session *model.Session) {
	metrics.TimerTransitions.WithLabelValues(string(eventType)).Inc()
	s.publisher.Publish(ctx, model.Event{
		Type:    eventType,
		State:   view,
		Session: session,
	})
}

func (s *TimerService) viewLocked(now time.Time) model.StateView {
	state := s.state
	remaining := RecomputeRemaining(state, now)

	view := model.StateView{
		Status:           state.Status,
		IsRunning:        state.Status == model.StatusRunning,
		IsPaused:         state.Status == model.StatusPaused,
		Mode:             state.Mode,
		DurationSeconds:  state.DurationSeconds,
		RemainingSeconds: remaining,
		SessionID:        state.SessionID,
		DistractionCount: state.DistractionCount,
		UpdatedAt:        state.UpdatedAt,
		ServerTime:       now,
	}
	if state.DurationSeconds > 0 {
		view.Progress = float64(state.DurationSeconds-remaining) / float64(state.DurationSeconds)
	}
	if state.StartedAt != nil {
		startedAt := *state.StartedAt
		view.StartedAt = &startedAt
	}
	return view
}

func (s *TimerService) sessionIDLocked() string {
	return derefString(s.state.SessionID)
}

// sanitize repairs states that violate the timer invariants, which can only
// arrive from storage written by an older or foreign build.
func sanitize(state model.TimerState) model.TimerState {
	if !state.Mode.Valid() {
		state.Mode = model.ModeFocus
	}
	if state.DurationSeconds < 0 {
		state.DurationSeconds = 0
	}
	state.RemainingSeconds = clampSeconds(state.RemainingSeconds, state.DurationSeconds)

	switch state.Status {
	case model.StatusRunning:
		if state.StartedAt == nil {
			state.Status = model.StatusPaused
		}
	case model.StatusPaused:
		state.StartedAt = nil
	default:
		state.Status = model.StatusIdle
		state.StartedAt = nil
		state.SessionID = nil
		state.SessionStartedAt = nil
	}
	if state.Active() && state.SessionID == nil {
		id := uuid.NewString()
		state.SessionID = &id
	}
	return state
}

// nextMode picks the session that auto-starts after a completion, if any.
func nextMode(finished model.Mode, focusCycle int, settings model.Settings) (model.Mode, bool) {
	if finished == model.ModeFocus {
		if !settings.AutoStartBreaks {
			return "", false
		}
		every := settings.SessionsUntilLongBreak
		if every > 0 && focusCycle > 0 && focusCycle%every == 0 {
			return model.ModeLongBreak, true
		}
		return model.ModeShortBreak, true
	}
	if settings.AutoStartPomodoros {
		return model.ModeFocus, true
	}
	return "", false
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
