package model

import "time"

// LogEntry is one record in the recent-events debug log.
type LogEntry struct {
	Type   string         `json:"type"`
	Time   time.Time      `json:"time"`
	Fields map[string]any `json:"fields,omitempty"`
}
