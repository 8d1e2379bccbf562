package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ratebot/internal/provider"
)

type entry struct {
	expiresAt time.Time
	value     provider.RatePair
}

// Memory is the in-process Store. The key space is tiny (providers x
// currencies) so it has no capacity bound.
type Memory struct {
	mu    sync.RWMutex
	items map[Key]entry

	now func() time.Time
	log *slog.Logger
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// WithLogger sets the logger used for sweep reports.
func WithLogger(log *slog.Logger) MemoryOption {
	return func(m *Memory) { m.log = log }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items: make(map[Key]entry),
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key Key) (provider.RatePair, bool, error) {
	now := m.now()
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || now.After(e.expiresAt) {
		return provider.RatePair{}, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key Key, value provider.RatePair, ttl time.Duration) error {
	expiry := m.now().Add(ttl)
	m.mu.Lock()
	m.items[key] = entry{expiresAt: expiry, value: value}
	m.mu.Unlock()
	return nil
}

func (m *Memory) MGet(_ context.Context, keys []Key) (map[Key]provider.RatePair, error) {
	now := m.now()
	out := make(map[Key]provider.RatePair, len(keys))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, k := range keys {
		if e, ok := m.items[k]; ok && !now.After(e.expiresAt) {
			out[k] = e.value
		}
	}
	return out, nil
}

// Sweep drops expired entries and reports how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.items {
		if now.After(e.expiresAt) {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, fresh or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.log.Debug("swept expired rates", "removed", n)
			}
		}
	}
}
