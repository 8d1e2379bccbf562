package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ratebot/internal/provider"
)

const defaultPrefix = "ratebot:rate:"

// Redis is a Store shared by several bot replicas. Expiry is delegated to
// redis itself.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps an existing client. An empty prefix selects the default.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, opts *redis.Options, prefix string) (*Redis, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) key(k Key) string { return r.prefix + k.String() }

func (r *Redis) Get(ctx context.Context, key Key) (provider.RatePair, bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return provider.RatePair{}, false, nil
	}
	if err != nil {
		return provider.RatePair{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var v provider.RatePair
	if err := json.Unmarshal(raw, &v); err != nil {
		return provider.RatePair{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, true, nil
}

func (r *Redis) Set(ctx context.Context, key Key, value provider.RatePair, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) MGet(ctx context.Context, keys []Key) (map[Key]provider.RatePair, error) {
	out := make(map[Key]provider.RatePair, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = r.key(k)
	}
	vals, err := r.client.MGet(ctx, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rp provider.RatePair
		if err := json.Unmarshal([]byte(s), &rp); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		out[keys[i]] = rp
	}
	return out, nil
}

// Close releases the underlying client.
func (r *Redis) Close() error { return r.client.Close() }
