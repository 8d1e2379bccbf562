package cache

import (
	"context"
	"fmt"
	"time"

	"ratebot/internal/provider"
)

// TTL is how long a fetched rate stays fresh.
const TTL = 5 * time.Minute

// Key identifies one provider's rate for one currency.
type Key struct {
	Provider provider.ID
	Currency provider.Currency
}

func (k Key) String() string { return fmt.Sprintf("%s:%s", k.Provider, k.Currency) }

// Store holds normalized rates with per-entry expiry. Expired entries read as
// absent. Set overwrites unconditionally.
type Store interface {
	Get(ctx context.Context, key Key) (provider.RatePair, bool, error)
	Set(ctx context.Context, key Key, value provider.RatePair, ttl time.Duration) error
	// MGet returns only the keys that are present and fresh.
	MGet(ctx context.Context, keys []Key) (map[Key]provider.RatePair, error)
}

// KeysFor lists the keys of every provider for currency c, in provider order.
func KeysFor(providers []provider.ID, c provider.Currency) []Key {
	keys := make([]Key, 0, len(providers))
	for _, id := range providers {
		keys = append(keys, Key{Provider: id, Currency: c})
	}
	return keys
}
