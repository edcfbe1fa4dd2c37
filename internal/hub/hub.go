package hub

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrNoReceiver means nobody was listening for the message.
	ErrNoReceiver = errors.New("hub: no receiver")
	// ErrBufferFull means every receiver's buffer was full.
	ErrBufferFull = errors.New("hub: receiver buffer full")
)

// Kind identifies what sort of component a subscriber is.
type Kind string

const (
	// KindRuntime covers popup and dashboard views.
	KindRuntime Kind = "runtime"
	// KindContent is a content script attached to one tab.
	KindContent Kind = "content"
)

const defaultBuffer = 100

// Tab is an open page with at least one content script listening.
type Tab struct {
	ID  int    `json:"id"`
	URL string `json:"url,omitempty"`
}

// Hub delivers unsolicited messages to live UI components. Delivery is a
// non-blocking push; callers treat every error as a dropped message.
type Hub interface {
	SendMessage(ctx context.Context, message any) error
	SendMessageToTab(ctx context.Context, tabID int, message any) error
	QueryTabs(ctx context.Context) []Tab
}

// Subscription is one connected component.
type Subscription struct {
	ID    string
	Kind  Kind
	TabID int
	URL   string

	ch       chan any
	registry *Registry
	once     sync.Once
}

// C receives messages until the subscription is closed.
func (s *Subscription) C() <-chan any {
	return s.ch
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.registry.remove(s)
	})
}

// Registry is the in-process Hub.
type Registry struct {
	mu      sync.RWMutex
	runtime map[string]*Subscription
	tabs    map[int]map[string]*Subscription
	buffer  int
}

func NewRegistry() *Registry {
	return &Registry{
		runtime: make(map[string]*Subscription),
		tabs:    make(map[int]map[string]*Subscription),
		buffer:  defaultBuffer,
	}
}

// Subscribe registers a component. tabID and url are only used for
// KindContent.
func (r *Registry) Subscribe(kind Kind, tabID int, url string) *Subscription {
	sub := &Subscription{
		ID:       ulid.Make().String(),
		Kind:     kind,
		TabID:    tabID,
		URL:      url,
		ch:       make(chan any, r.buffer),
		registry: r,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == KindContent {
		peers, ok := r.tabs[tabID]
		if !ok {
			peers = make(map[string]*Subscription)
			r.tabs[tabID] = peers
		}
		peers[sub.ID] = sub
	} else {
		r.runtime[sub.ID] = sub
	}
	return sub
}

func (r *Registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.Kind == KindContent {
		if peers, ok := r.tabs[sub.TabID]; ok {
			delete(peers, sub.ID)
			if len(peers) == 0 {
				delete(r.tabs, sub.TabID)
			}
		}
	} else {
		delete(r.runtime, sub.ID)
	}
	close(sub.ch)
}

func (r *Registry) SendMessage(_ context.Context, message any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return deliver(r.runtime, message)
}

func (r *Registry) SendMessageToTab(_ context.Context, tabID int, message any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return deliver(r.tabs[tabID], message)
}

// QueryTabs lists tabs with a live content subscriber, ordered by id.
func (r *Registry) QueryTabs(_ context.Context) []Tab {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tabs := make([]Tab, 0, len(r.tabs))
	for id, peers := range r.tabs {
		tab := Tab{ID: id}
		for _, sub := range peers {
			if sub.URL != "" {
				tab.URL = sub.URL
				break
			}
		}
		tabs = append(tabs, tab)
	}
	sort.Slice(tabs, func(i, j int) bool { return tabs[i].ID < tabs[j].ID })
	return tabs
}

// SubscriberCount returns the number of live subscriptions of every kind.
func (r *Registry) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := len(r.runtime)
	for _, peers := range r.tabs {
		count += len(peers)
	}
	return count
}

func deliver(subs map[string]*Subscription, message any) error {
	if len(subs) == 0 {
		return ErrNoReceiver
	}
	delivered := 0
	for _, sub := range subs {
		select {
		case sub.ch <- message:
			delivered++
		default:
		}
	}
	if delivered == 0 {
		return ErrBufferFull
	}
	return nil
}
