package storage

import (
	"context"
	"sync"
)

// Memory is a process-local Store. Values are copied on the way in and out.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if value, ok := m.data[key]; ok {
			out[key] = copyBytes(value)
		}
	}
	return out, nil
}

func (m *Memory) Set(_ context.Context, items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for key, value := range items {
		m.data[key] = copyBytes(value)
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	m.data = make(map[string][]byte)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
