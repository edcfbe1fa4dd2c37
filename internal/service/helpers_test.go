package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"focusbubble/backend/internal/alarm"
	"focusbubble/backend/internal/clock"
	"focusbubble/backend/internal/model"
	"focusbubble/backend/internal/repository"
	"focusbubble/backend/internal/storage"
)

var testEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// flakyStore fails writes touching selected keys.
type flakyStore struct {
	storage.Store

	mu       sync.Mutex
	failures map[string]int // remaining failures per key, negative means forever
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: storage.NewMemory(), failures: make(map[string]int)}
}

func (f *flakyStore) failNext(key string, times int) {
	f.mu.Lock()
	f.failures[key] = times
	f.mu.Unlock()
}

func (f *flakyStore) Set(ctx context.Context, items map[string][]byte) error {
	f.mu.Lock()
	for key := range items {
		remaining, ok := f.failures[key]
		if !ok || remaining == 0 {
			continue
		}
		if remaining > 0 {
			f.failures[key] = remaining - 1
		}
		f.mu.Unlock()
		return fmt.Errorf("write %s: %w", key, errors.New("storage unavailable"))
	}
	f.mu.Unlock()
	return f.Store.Set(ctx, items)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event model.Event) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}

func (p *recordingPublisher) last(eventType model.EventType) *model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == eventType {
			event := p.events[i]
			return &event
		}
	}
	return nil
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

type recordingNotifier struct {
	mu    sync.Mutex
	shown []model.Notification
	err   error
}

func (n *recordingNotifier) Show(_ context.Context, notification model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, notification)
	return n.err
}

type testEnv struct {
	engine    *TimerService
	history   *HistoryService
	settings  *SettingsService
	repo      *repository.Repository
	store     *flakyStore
	clock     *clock.Fake
	alarms    *alarm.Manual
	publisher *recordingPublisher
	notifier  *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, newFlakyStore())
}

func newTestEnvWithStore(t *testing.T, store *flakyStore) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     store,
		clock:     clock.NewFake(testEpoch),
		alarms:    alarm.NewManual(),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
	}
	env.repo = repository.New(store)
	env.history = NewHistoryService(env.repo, env.clock, HistoryOptions{}, zerolog.Nop())
	env.settings = NewSettingsService(env.repo, zerolog.Nop())

	ids := 0
	env.engine = NewTimerService(TimerDeps{
		Repo:      env.repo,
		History:   env.history,
		Settings:  env.settings,
		Alarms:    env.alarms,
		Publisher: env.publisher,
		Notifier:  env.notifier,
		Clock:     env.clock,
		Logger:    zerolog.Nop(),
		NewID: func() string {
			ids++
			return fmt.Sprintf("session-%d", ids)
		},
	})
	return env
}

func (e *testEnv) start(t *testing.T, minutes float64, mode model.Mode) *StartResult {
	t.Helper()
	result, apiErr := e.engine.Start(context.Background(), StartInput{
		DurationMinutes: &minutes,
		Mode:            mode,
		DiscardActive:   true,
	})
	require.Nil(t, apiErr)
	return result
}

func (e *testEnv) state(t *testing.T) *model.StateView {
	t.Helper()
	view, apiErr := e.engine.State(context.Background())
	require.Nil(t, apiErr)
	return view
}

func (e *testEnv) sessions(t *testing.T) []model.Session {
	t.Helper()
	sessions, apiErr := e.history.List(context.Background(), 0)
	require.Nil(t, apiErr)
	return sessions
}

func (e *testEnv) persisted(t *testing.T) *model.TimerState {
	t.Helper()
	state, err := e.repo.GetTimerState(context.Background())
	require.NoError(t, err)
	return state
}

func (e *testEnv) fire(name string) {
	e.alarms.Fire(context.Background(), name)
}

func minutes(v float64) *float64 {
	return &v
}
