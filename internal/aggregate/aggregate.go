package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"ratebot/internal/format"
	"ratebot/internal/metrics"
	"ratebot/internal/provider"
	"ratebot/internal/provider/cache"
)

// DefaultFetchTimeout bounds one provider call during a refresh.
const DefaultFetchTimeout = 10 * time.Second

var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Aggregator serves quotes from the cache and refreshes every provider when
// any of them is missing the requested currency.
type Aggregator struct {
	providers []provider.Provider
	ids       []provider.ID
	store     cache.Store
	timeout   time.Duration
	log       *slog.Logger
	metrics   *metrics.Metrics

	// coalesce concurrent refreshes
	sf singleflight.Group
}

type Option func(*Aggregator)

// WithFetchTimeout sets the per-provider timeout of a refresh.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(a *Aggregator) { a.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New builds an aggregator. Provider order is the presentation order.
func New(store cache.Store, providers []provider.Provider, opts ...Option) *Aggregator {
	a := &Aggregator{
		providers: providers,
		store:     store,
		timeout:   DefaultFetchTimeout,
		log:       slog.Default(),
	}
	for _, p := range providers {
		a.ids = append(a.ids, p.Name())
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Providers returns the provider ids in presentation order.
func (a *Aggregator) Providers() []provider.ID { return slices.Clone(a.ids) }

// HandleCurrencyRequest returns the chat reply for currency c.
func (a *Aggregator) HandleCurrencyRequest(ctx context.Context, c provider.Currency) (string, error) {
	q, err := a.Quote(ctx, c)
	if err != nil {
		return "", err
	}
	return format.Reply(q), nil
}

// Quote returns every provider's rate for c, refreshing all providers when
// any entry is absent. It fails with an *provider.UpstreamError when a rate is
// still missing after the refresh, and with ctx.Err() when the caller stops
// waiting for a refresh that keeps running.
func (a *Aggregator) Quote(ctx context.Context, c provider.Currency) (provider.Quote, error) {
	if !c.IsSupported() {
		return provider.Quote{}, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, c)
	}
	keys := cache.KeysFor(a.ids, c)

	cached, err := a.store.MGet(ctx, keys)
	if err != nil {
		a.log.Warn("cache read failed, refreshing", "currency", c, "err", err)
		cached = nil
	}
	if len(cached) == len(keys) {
		a.countLookup("hit")
		a.log.Debug("cache hit", "currency", c)
		return a.assemble(c, cached), nil
	}
	a.countLookup("miss")
	a.log.Debug("cache miss", "currency", c, "present", len(cached), "want", len(keys))

	refreshErr := a.Refresh(ctx)

	cached, err = a.store.MGet(ctx, keys)
	if err != nil {
		return provider.Quote{}, fmt.Errorf("read cache: %w", err)
	}
	if len(cached) < len(keys) {
		if refreshErr != nil {
			return provider.Quote{}, refreshErr
		}
		for _, k := range keys {
			if _, ok := cached[k]; !ok {
				return provider.Quote{}, provider.Upstream(k.Provider, fmt.Errorf("%w: %s missing after refresh", provider.ErrNoRecord, c))
			}
		}
	}
	if refreshErr != nil {
		a.log.Warn("partial refresh, serving cached rates", "currency", c, "err", refreshErr)
	}
	return a.assemble(c, cached), nil
}

// Refresh fetches every provider concurrently and stores what succeeded.
// Concurrent callers share one refresh. The refresh itself ignores the
// caller's cancellation; only the wait does not.
func (a *Aggregator) Refresh(ctx context.Context) error {
	ch := a.sf.DoChan("refresh", func() (any, error) {
		return nil, a.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Shared {
			a.log.Debug("joined in-flight refresh")
		}
		return res.Err
	}
}

func (a *Aggregator) refresh(ctx context.Context) error {
	type result struct {
		id    provider.ID
		rates map[provider.Currency]provider.RatePair
		err   error
	}

	// fan-out to providers concurrently; wait for all of them
	ch := make(chan result, len(a.providers))
	for _, p := range a.providers {
		go func() {
			fctx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			rates, err := p.FetchAll(fctx)
			a.observeUpstream(p.Name(), time.Since(start), err)
			ch <- result{id: p.Name(), rates: rates, err: provider.Upstream(p.Name(), err)}
		}()
	}

	var errs []error
	for range a.providers {
		r := <-ch
		if r.err != nil {
			a.log.Error("provider fetch failed", "provider", r.id, "err", r.err)
			errs = append(errs, r.err)
			continue
		}
		for cur, rate := range r.rates {
			key := cache.Key{Provider: r.id, Currency: cur}
			if err := a.store.Set(ctx, key, rate, cache.TTL); err != nil {
				errs = append(errs, fmt.Errorf("cache %s: %w", key, err))
			}
		}
		a.log.Info("rates refreshed", "provider", r.id, "currencies", len(r.rates))
	}

	err := errors.Join(errs...)
	if a.metrics != nil {
		a.metrics.RefreshesTotal.WithLabelValues(metrics.Result(err)).Inc()
	}
	return err
}

func (a *Aggregator) assemble(c provider.Currency, cached map[cache.Key]provider.RatePair) provider.Quote {
	q := provider.Quote{
		Currency:  c,
		Providers: slices.Clone(a.ids),
		Rates:     make(map[provider.ID]provider.RatePair, len(a.ids)),
	}
	for _, id := range a.ids {
		q.Rates[id] = cached[cache.Key{Provider: id, Currency: c}]
	}
	return q
}

func (a *Aggregator) countLookup(result string) {
	if a.metrics != nil {
		a.metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
	}
}

func (a *Aggregator) observeUpstream(id provider.ID, took time.Duration, err error) {
	if a.metrics == nil {
		return
	}
	a.metrics.UpstreamRequestsTotal.WithLabelValues(string(id), metrics.Result(err)).Inc()
	a.metrics.UpstreamRequestDuration.WithLabelValues(string(id)).Observe(took.Seconds())
}
