package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ratebot/internal/provider"
)

// Provider retries transient failures of P. Retries is the number of extra
// attempts. Missing records and 429 answers are not retried.
type Provider struct {
	P       provider.Provider
	Retries int
	Backoff time.Duration
	Log     *slog.Logger
}

func (r *Provider) Name() provider.ID { return r.P.Name() }

func (r *Provider) FetchAll(ctx context.Context) (map[provider.Currency]provider.RatePair, error) {
	var lastErr error
	for attempt := 0; attempt <= r.Retries; attempt++ {
		if attempt > 0 {
			if r.Log != nil {
				r.Log.Warn("retrying upstream", "provider", r.P.Name(), "attempt", attempt, "err", lastErr)
			}
			if r.Backoff > 0 {
				t := time.NewTimer(r.Backoff * time.Duration(attempt))
				select {
				case <-ctx.Done():
					t.Stop()
					return nil, lastErr
				case <-t.C:
				}
			}
		}
		rates, err := r.P.FetchAll(ctx)
		if err == nil {
			return rates, nil
		}
		lastErr = err
		if !Retryable(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// Retryable reports whether another attempt could succeed.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, provider.ErrNoRecord), errors.Is(err, provider.ErrRateLimited):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
