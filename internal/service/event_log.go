package service

import (
	"context"
	"sync"

	"focusbubble/backend/internal/clock"
	"focusbubble/backend/internal/model"
)

const DefaultEventLogSize = 100

// EventLog keeps the most recent engine events and messages in memory for
// debugging. The oldest entry is dropped once the log is full.
type EventLog struct {
	clock clock.Clock
	size  int

	mu      sync.Mutex
	entries []model.LogEntry
}

func NewEventLog(size int, clk clock.Clock) *EventLog {
	if size <= 0 {
		size = DefaultEventLogSize
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &EventLog{clock: clk, size: size, entries: make([]model.LogEntry, 0, size)}
}

func (l *EventLog) Record(entryType string, fields map[string]any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.size {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:l.size-1]
	}
	l.entries = append(l.entries, model.LogEntry{Type: entryType, Time: l.clock.Now(), Fields: fields})
}

// Entries returns a copy of the log, oldest first.
func (l *EventLog) Entries() []model.LogEntry {
	if l == nil {
		return []model.LogEntry{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.LogEntry{}, l.entries...)
}

// Logged wraps next so every published event is also recorded.
func (l *EventLog) Logged(next EventPublisher) EventPublisher {
	return loggedPublisher{next: next, log: l}
}

type loggedPublisher struct {
	next EventPublisher
	log  *EventLog
}

// Publish records event, except ticks which would flush the log every
// couple of minutes, then forwards it.
func (p loggedPublisher) Publish(ctx context.Context, event model.Event) {
	if event.Type == model.EventTimerTick {
		p.next.Publish(ctx, event)
		return
	}
	fields := map[string]any{}
	if event.State != nil && event.State.SessionID != nil {
		fields["sessionId"] = *event.State.SessionID
	}
	if event.Session != nil {
		fields["sessionId"] = event.Session.ID
		fields["completed"] = event.Session.Completed
	}
	if event.Distractions != nil {
		fields["distractions"] = *event.Distractions
	}
	if len(fields) == 0 {
		fields = nil
	}
	p.log.Record(string(event.Type), fields)
	p.next.Publish(ctx, event)
}
