package store

import (
	"context"
	"sync"
	"time"

	"github.com/viant/cid/internal/clock"
)

type MemoryBackendOption func(*MemoryBackend)

// WithBackendClock sets the clock used to evaluate expiry.
func WithBackendClock(c clock.Clock) MemoryBackendOption {
	return func(m *MemoryBackend) {
		m.clock = c
	}
}

type entry struct {
	value   string
	expires time.Time
}

// MemoryBackend is an in-process Backend. It is concurrency-safe and intended
// for embedded use and tests.
type MemoryBackend struct {
	mu      sync.RWMutex
	clock   clock.Clock
	entries map[string]entry
}

func (m *MemoryBackend) Get(_ context.Context, name string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[name]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !m.clock.Now().Before(e.expires) {
		m.mu.Lock()
		if current, ok := m.entries[name]; ok && current == e {
			delete(m.entries, name)
		}
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryBackend) Set(_ context.Context, name, value string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.clock.Now().Before(expires) {
		delete(m.entries, name)
		return nil
	}
	m.entries[name] = entry{value: value, expires: expires}
	return nil
}

func NewMemoryBackend(options ...MemoryBackendOption) *MemoryBackend {
	ret := &MemoryBackend{
		clock:   clock.Real(),
		entries: map[string]entry{},
	}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}
