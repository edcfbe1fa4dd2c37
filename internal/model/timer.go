package model

import "time"

type Mode string

const (
	ModeFocus      Mode = "focus"
	ModeShortBreak Mode = "short-break"
	ModeLongBreak  Mode = "long-break"
)

// Valid reports whether m is one of the known timer modes.
func (m Mode) Valid() bool {
	return m == ModeFocus || m == ModeShortBreak || m == ModeLongBreak
}

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

// TimerState is the persisted engine state. While Status is running,
// RemainingSeconds is the value at StartedAt and must be recomputed
// against the wall clock before use.
type TimerState struct {
	Status           Status     `json:"status"`
	Mode             Mode       `json:"mode"`
	DurationSeconds  int        `json:"durationSeconds"`
	RemainingSeconds int        `json:"remainingSeconds"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	SessionID        *string    `json:"sessionId,omitempty"`
	SessionStartedAt *time.Time `json:"sessionStartedAt,omitempty"`
	DistractionCount int        `json:"distractionCount"`
	FocusCycle       int        `json:"focusCycle"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Active reports whether a session exists (running or paused).
func (s *TimerState) Active() bool {
	return s.Status == StatusRunning || s.Status == StatusPaused
}

// IdleState returns a resting state sized to durationSeconds.
func IdleState(durationSeconds int, now time.Time) TimerState {
	return TimerState{
		Status:           StatusIdle,
		Mode:             ModeFocus,
		DurationSeconds:  durationSeconds,
		RemainingSeconds: durationSeconds,
		UpdatedAt:        now,
	}
}

// StateView is the snapshot handed to UI components. RemainingSeconds is
// always recomputed.
type StateView struct {
	Status           Status     `json:"status"`
	IsRunning        bool       `json:"isRunning"`
	IsPaused         bool       `json:"isPaused"`
	Mode             Mode       `json:"mode"`
	DurationSeconds  int        `json:"durationSeconds"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Progress         float64    `json:"progress"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	SessionID        *string    `json:"sessionId,omitempty"`
	DistractionCount int        `json:"distractionCount"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	ServerTime       time.Time  `json:"serverTime"`
}
