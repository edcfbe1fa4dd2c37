package clock

import (
	"sync"
	"time"
)

// Clock provides wall-clock time. Elapsed time is always derived from it,
// never from in-process counters, so it can be replaced in tests.
type Clock interface {
	Now() time.Time
}

// Real returns system time in the configured location.
type Real struct {
	Location *time.Location
}

// Now returns the current system time.
func (r Real) Now() time.Time {
	if r.Location != nil {
		return time.Now().In(r.Location)
	}
	return time.Now()
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu      sync.Mutex
	current time.Time
}

// NewFake returns a fake clock fixed at t.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.current = f.current.Add(d)
	f.mu.Unlock()
}

// Set pins the fake time to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.current = t
	f.mu.Unlock()
}
