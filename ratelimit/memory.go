package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is an in-process Counter. Expired windows are dropped lazily
// on access and periodically by the janitor started with StartJanitor.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count   int64
	expires time.Time
}

// MemoryOption configures a MemoryCounter.
type MemoryOption func(*MemoryCounter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryCounter) { m.now = now }
}

// NewMemoryCounter creates an empty MemoryCounter.
func NewMemoryCounter(opts ...MemoryOption) *MemoryCounter {
	m := &MemoryCounter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// live returns the unexpired window for key. Caller holds mu.
func (m *MemoryCounter) live(key string, now time.Time) *window {
	w, ok := m.windows[key]
	if !ok {
		return nil
	}
	if !now.Before(w.expires) {
		delete(m.windows, key)
		return nil
	}
	return w
}

func (m *MemoryCounter) Incr(_ context.Context, key string, d time.Duration) (int64, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.live(key, now)
	if w == nil {
		w = &window{expires: now.Add(d)}
		m.windows[key] = w
	}
	w.count++
	return w.count, w.expires.Sub(now), nil
}

func (m *MemoryCounter) Decr(_ context.Context, key string) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if w := m.live(key, now); w != nil && w.count > 0 {
		w.count--
	}
	return nil
}

func (m *MemoryCounter) Count(_ context.Context, key string) (int64, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.live(key, now)
	if w == nil {
		return 0, 0, nil
	}
	return w.count, w.expires.Sub(now), nil
}

func (m *MemoryCounter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.windows, key)
	m.mu.Unlock()
	return nil
}

// Cleanup drops every expired window.
func (m *MemoryCounter) Cleanup() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, w := range m.windows {
		if !now.Before(w.expires) {
			delete(m.windows, key)
		}
	}
}

// StartJanitor runs Cleanup every interval until ctx is cancelled.
func (m *MemoryCounter) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.Cleanup()
			}
		}
	}()
}

func (m *MemoryCounter) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
