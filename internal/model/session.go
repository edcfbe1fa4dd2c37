package model

import "time"

// Session is a finalized timer attempt. It is never mutated after it is
// appended to history.
type Session struct {
	ID                     string    `json:"id"`
	Mode                   Mode      `json:"mode"`
	StartTime              time.Time `json:"startTime"`
	EndTime                time.Time `json:"endTime"`
	PlannedDurationSeconds int       `json:"plannedDurationSeconds"`
	ActualDurationSeconds  int       `json:"actualDurationSeconds"`
	Distractions           int       `json:"distractions"`
	Completed              bool      `json:"completed"`
	Date                   string    `json:"date"`
}

// Statistics aggregates every session ever appended, including those
// already evicted from the bounded history list.
type Statistics struct {
	TotalSessions       int     `json:"totalSessions"`
	CompletedSessions   int     `json:"completedSessions"`
	FocusSessions       int     `json:"focusSessions"`
	TotalFocusSeconds   int     `json:"totalFocusSeconds"`
	TotalDistractions   int     `json:"totalDistractions"`
	CurrentStreak       int     `json:"currentStreak"`
	LongestStreak       int     `json:"longestStreak"`
	LastSessionDate     string  `json:"lastSessionDate,omitempty"`
	LastStreakDate      string  `json:"lastStreakDate,omitempty"`
	AverageFocusSeconds float64 `json:"averageFocusSeconds"`
	AverageDistractions float64 `json:"averageDistractions"`
}

// DateLayout is the calendar-day key used for streaks.
const DateLayout = "2006-01-02"
