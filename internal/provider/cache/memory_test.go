package cache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ratebot/internal/provider"
	"ratebot/internal/provider/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func pair(buy, sell string) provider.RatePair {
	return provider.RatePair{Buy: decimal.RequireFromString(buy), Sell: decimal.RequireFromString(sell)}
}

var (
	monoUSD   = cache.Key{Provider: provider.Monobank, Currency: provider.USD}
	monoEUR   = cache.Key{Provider: provider.Monobank, Currency: provider.EUR}
	privatUSD = cache.Key{Provider: provider.PrivatBank, Currency: provider.USD}
)

func TestMemory_TTL(t *testing.T) {
	t.Parallel()

	// Arrange
	clock := &fakeClock{now: time.Date(2024, 10, 19, 12, 0, 0, 0, time.UTC)}
	m := cache.NewMemory(cache.WithClock(clock.Now))
	want := pair("36.5", "37")
	require.NoError(t, m.Set(t.Context(), monoUSD, want, cache.TTL))

	// Assert: just before expiry the exact value is returned.
	clock.Advance(cache.TTL - time.Second)
	got, ok, err := m.Get(t.Context(), monoUSD)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)

	// Assert: strictly after expiry the entry is absent.
	clock.Advance(time.Second + time.Nanosecond)
	_, ok, err = m.Get(t.Context(), monoUSD)
	require.NoError(t, err)
	require.False(t, ok)

	got2, err := m.MGet(t.Context(), []cache.Key{monoUSD})
	require.NoError(t, err)
	require.Empty(t, got2)
}

func TestMemory_SetOverwrites(t *testing.T) {
	t.Parallel()

	m := cache.NewMemory()
	require.NoError(t, m.Set(t.Context(), monoUSD, pair("1", "2"), cache.TTL))
	require.NoError(t, m.Set(t.Context(), monoUSD, pair("3", "4"), cache.TTL))

	got, ok, err := m.Get(t.Context(), monoUSD)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pair("3", "4"), got)
	require.Equal(t, 1, m.Len())
}

func TestMemory_MGetReturnsPresentOnly(t *testing.T) {
	t.Parallel()

	m := cache.NewMemory()
	require.NoError(t, m.Set(t.Context(), monoUSD, pair("36.5", "37"), cache.TTL))
	require.NoError(t, m.Set(t.Context(), monoEUR, pair("39", "39.8"), cache.TTL))

	got, err := m.MGet(t.Context(), []cache.Key{monoUSD, privatUSD})
	require.NoError(t, err)
	require.Equal(t, map[cache.Key]provider.RatePair{monoUSD: pair("36.5", "37")}, got)
}

func TestMemory_Sweep(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	m := cache.NewMemory(cache.WithClock(clock.Now))
	require.NoError(t, m.Set(t.Context(), monoUSD, pair("1", "2"), time.Minute))
	require.NoError(t, m.Set(t.Context(), monoEUR, pair("1", "2"), cache.TTL))

	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, m.Sweep())
	require.Equal(t, 1, m.Len())
}

func TestMemory_RunStopsWithContext(t *testing.T) {
	t.Parallel()

	m := cache.NewMemory()
	require.NoError(t, m.Set(t.Context(), monoUSD, pair("1", "2"), time.Nanosecond))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestMemory_ConcurrentWrites(t *testing.T) {
	t.Parallel()

	m := cache.NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v := fmt.Sprintf("%d", i+1)
			_ = m.Set(t.Context(), monoUSD, pair(v, v), cache.TTL)
			_, _, _ = m.Get(t.Context(), monoUSD)
		}(i)
	}
	wg.Wait()

	got, ok, err := m.Get(t.Context(), monoUSD)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Buy.Equal(got.Sell))
}
