package cache_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"ratebot/internal/provider/cache"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *cache.Redis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := cache.DialRedis(t.Context(), &redis.Options{Addr: mr.Addr()}, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestRedis_SetGet(t *testing.T) {
	t.Parallel()

	// Arrange
	mr, store := newRedis(t)
	want := pair("36.5", "37")

	// Act
	require.NoError(t, store.Set(t.Context(), monoUSD, want, cache.TTL))

	// Assert: the value round trips and carries the TTL.
	got, ok, err := store.Get(t.Context(), monoUSD)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, want.Buy.Equal(got.Buy))
	require.True(t, want.Sell.Equal(got.Sell))
	require.Equal(t, cache.TTL, mr.TTL("ratebot:rate:mono:USD"))
}

func TestRedis_Expiry(t *testing.T) {
	t.Parallel()

	mr, store := newRedis(t)
	require.NoError(t, store.Set(t.Context(), monoUSD, pair("36.5", "37"), cache.TTL))

	mr.FastForward(cache.TTL + time.Second)

	_, ok, err := store.Get(t.Context(), monoUSD)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedis_MGet(t *testing.T) {
	t.Parallel()

	_, store := newRedis(t)
	require.NoError(t, store.Set(t.Context(), monoUSD, pair("36.5", "37"), cache.TTL))
	require.NoError(t, store.Set(t.Context(), privatUSD, pair("36.6", "37.1"), cache.TTL))

	got, err := store.MGet(t.Context(), []cache.Key{monoUSD, monoEUR, privatUSD})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.True(t, pair("36.6", "37.1").Sell.Equal(got[privatUSD].Sell))
	require.NotContains(t, got, monoEUR)

	empty, err := store.MGet(t.Context(), nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestRedis_CorruptValue(t *testing.T) {
	t.Parallel()

	mr, store := newRedis(t)
	require.NoError(t, mr.Set("ratebot:rate:mono:USD", "not json"))

	_, _, err := store.Get(t.Context(), monoUSD)
	require.Error(t, err)

	_, err = store.MGet(t.Context(), []cache.Key{monoUSD})
	require.Error(t, err)
}

func TestDialRedis_Unreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := cache.DialRedis(t.Context(), &redis.Options{Addr: addr, MaxRetries: -1}, "")
	require.Error(t, err)
}

var (
	_ cache.Store = (*cache.Redis)(nil)
	_ cache.Store = (*cache.Memory)(nil)
)
