package service

import (
	"math"
	"time"

	"focusbubble/backend/internal/model"
)

// RecomputeRemaining returns the true remaining seconds of state at now. A
// running timer's stored RemainingSeconds is the value at StartedAt; every
// read exposed to callers goes through here.
func RecomputeRemaining(state model.TimerState, now time.Time) int {
	remaining := state.RemainingSeconds
	if state.Status == model.StatusRunning && state.StartedAt != nil {
		elapsed := int(now.Sub(*state.StartedAt) / time.Second)
		if elapsed > 0 {
			remaining -= elapsed
		}
	}
	return clampSeconds(remaining, state.DurationSeconds)
}

// deadline is the wall-clock instant a running timer reaches zero.
func deadline(state model.TimerState) time.Time {
	if state.StartedAt == nil {
		return time.Time{}
	}
	return state.StartedAt.Add(time.Duration(state.RemainingSeconds) * time.Second)
}

func clampSeconds(value, upper int) int {
	if value < 0 {
		return 0
	}
	if upper >= 0 && value > upper {
		return upper
	}
	return value
}

// minutesToSeconds converts a duration in minutes, rejecting anything that
// is not a positive finite number of at least one second.
func minutesToSeconds(minutes float64) (int, bool) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) || minutes <= 0 {
		return 0, false
	}
	seconds := math.Round(minutes * 60)
	if seconds < 1 || seconds > math.MaxInt32 {
		return 0, false
	}
	return int(seconds), true
}
