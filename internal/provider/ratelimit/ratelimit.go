package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ratebot/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between calls.
// Concurrent calls wait until the interval has elapsed since the last call,
// or return early if the context is canceled. A call whose deadline ends
// before the interval does fails at once with provider.ErrRateLimited.
type MinInterval struct {
	P        provider.Provider
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (m *MinInterval) Name() provider.ID { return m.P.Name() }

func (m *MinInterval) FetchAll(ctx context.Context) (map[provider.Currency]provider.RatePair, error) {
	if m.Interval > 0 {
		m.mu.Lock()
		wait := time.Until(m.last.Add(m.Interval))
		m.mu.Unlock()
		if wait > 0 {
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
				return nil, provider.Upstream(m.P.Name(),
					fmt.Errorf("%w: next call allowed in %s", provider.ErrRateLimited, wait.Round(time.Millisecond)))
			}
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return nil, provider.Upstream(m.P.Name(), ctx.Err())
			case <-t.C:
			}
		}
	}
	rates, err := m.P.FetchAll(ctx)
	if m.Interval > 0 {
		m.mu.Lock()
		m.last = time.Now()
		m.mu.Unlock()
	}
	return rates, err
}

// Wrap applies the limiter configured for one upstream. A positive
// requests-per-minute wins over the min interval.
func Wrap(p provider.Provider, maxRequestsPerMinute, burst int, minInterval time.Duration) provider.Provider {
	if maxRequestsPerMinute > 0 {
		rate := float64(maxRequestsPerMinute) / 60.0
		return &TokenBucketProvider{P: p, TB: NewTokenBucket(rate, burst)}
	}
	if minInterval > 0 {
		return &MinInterval{P: p, Interval: minInterval}
	}
	return p
}
