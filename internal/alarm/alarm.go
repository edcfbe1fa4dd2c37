package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Spec describes when a named alarm fires. A zero Period makes it one-shot.
// A zero Delay on a periodic alarm means the first fire happens after one
// Period.
type Spec struct {
	Delay  time.Duration
	Period time.Duration
}

// Handler receives every fired alarm by name.
type Handler func(ctx context.Context, name string)

// Alarms is the named-alarm capability. Scheduling an existing name replaces
// it. After Cancel returns the scheduler never starts a new fire for that
// name, but a fire already in flight may still be delivered.
type Alarms interface {
	Schedule(name string, spec Spec)
	Cancel(name string)
	OnAlarm(handler Handler)
}

type entry struct {
	timer      *time.Timer
	generation uint64
}

// Scheduler implements Alarms with runtime timers.
type Scheduler struct {
	mu         sync.Mutex
	entries    map[string]*entry
	handler    Handler
	generation uint64
	closed     bool
	ctx        context.Context
	cancel     context.CancelFunc
	logger     zerolog.Logger
	wg         sync.WaitGroup
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With().Str("component", "alarm").Logger(),
	}
}

// OnAlarm installs the single handler for fired alarms.
func (s *Scheduler) OnAlarm(handler Handler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

func (s *Scheduler) Schedule(name string, spec Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.stopLocked(name)

	delay := spec.Delay
	if delay <= 0 {
		delay = spec.Period
	}
	if delay < 0 {
		delay = 0
	}

	s.generation++
	gen := s.generation
	e := &entry{generation: gen}
	e.timer = time.AfterFunc(delay, func() { s.fire(name, gen, spec.Period) })
	s.entries[name] = e

	s.logger.Debug().
		Str("alarm", name).
		Dur("delay", delay).
		Dur("period", spec.Period).
		Msg("Alarm scheduled")
}

func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked(name) {
		s.logger.Debug().Str("alarm", name).Msg("Alarm cancelled")
	}
}

// Scheduled reports whether name is currently armed.
func (s *Scheduler) Scheduled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Close stops every alarm and waits for in-flight handlers to return.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for name := range s.entries {
		s.stopLocked(name)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) stopLocked(name string) bool {
	e, ok := s.entries[name]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.entries, name)
	return true
}

func (s *Scheduler) fire(name string, gen uint64, period time.Duration) {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok || e.generation != gen || s.closed {
		s.mu.Unlock()
		return
	}
	if period > 0 {
		e.timer.Reset(period)
	} else {
		delete(s.entries, name)
	}
	handler := s.handler
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	if handler == nil {
		return
	}
	handler(s.ctx, name)
}
