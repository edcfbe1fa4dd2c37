package alarm

import (
	"context"
	"sort"
	"sync"
)

// Manual is an Alarms implementation that only fires when told to.
type Manual struct {
	mu      sync.Mutex
	armed   map[string]Spec
	handler Handler
}

func NewManual() *Manual {
	return &Manual{armed: make(map[string]Spec)}
}

func (m *Manual) Schedule(name string, spec Spec) {
	m.mu.Lock()
	m.armed[name] = spec
	m.mu.Unlock()
}

func (m *Manual) Cancel(name string) {
	m.mu.Lock()
	delete(m.armed, name)
	m.mu.Unlock()
}

func (m *Manual) OnAlarm(handler Handler) {
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
}

// Spec returns the armed spec for name.
func (m *Manual) Spec(name string) (Spec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spec, ok := m.armed[name]
	return spec, ok
}

// Names lists armed alarms in sorted order.
func (m *Manual) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.armed))
	for name := range m.armed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fire delivers name to the handler whether or not it is armed, the way a
// late alarm can arrive after cancellation. One-shot alarms are disarmed.
func (m *Manual) Fire(ctx context.Context, name string) {
	m.mu.Lock()
	if spec, ok := m.armed[name]; ok && spec.Period == 0 {
		delete(m.armed, name)
	}
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		handler(ctx, name)
	}
}
