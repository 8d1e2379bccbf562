// Package app builds the bot from configuration and runs it until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ratebot/internal/aggregate"
	"ratebot/internal/bot"
	"ratebot/internal/config"
	"ratebot/internal/httpx"
	"ratebot/internal/metrics"
	"ratebot/internal/provider"
	"ratebot/internal/provider/cache"
	"ratebot/internal/provider/monobank"
	"ratebot/internal/provider/privatbank"
	"ratebot/internal/provider/ratelimit"
	"ratebot/internal/provider/retry"
	"ratebot/internal/server"
)

const shutdownTimeout = 10 * time.Second

var ErrNothingToRun = errors.New("nothing to run: set telegram.token or enable server")

type App struct {
	cfg      config.Config
	log      *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    cache.Store
	agg      *aggregate.Aggregator
	closers  []func() error
}

// New builds every component except the Telegram connection. Close releases
// what New opened.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	a.initMetrics()

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	log.Info("cache initialized", "backend", cfg.Cache.Backend)

	a.agg = aggregate.New(a.store, Providers(cfg, log),
		aggregate.WithFetchTimeout(aggregate.DefaultFetchTimeout),
		aggregate.WithLogger(log),
		aggregate.WithMetrics(a.metrics),
	)
	log.Info("providers initialized", "providers", a.agg.Providers())
	return a, nil
}

func (a *App) initMetrics() {
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(a.registry)
}

func (a *App) initStore(ctx context.Context) error {
	switch a.cfg.Cache.Backend {
	case "redis":
		rc := a.cfg.Cache.Redis
		r, err := cache.DialRedis(ctx, &redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		}, rc.Prefix)
		if err != nil {
			return fmt.Errorf("init redis cache: %w", err)
		}
		a.store = r
		a.closers = append(a.closers, r.Close)
	default:
		a.store = cache.NewMemory(cache.WithLogger(a.log))
	}
	return nil
}

// Providers builds Monobank and PrivatBank clients wrapped in rate limiting
// and retries as configured. The order is the order of the reply blocks.
func Providers(cfg config.Config, log *slog.Logger) []provider.Provider {
	mono := monobank.New(
		monobank.WithBaseURL(cfg.Monobank.Endpoint),
		monobank.WithHTTPClient(httpx.New(cfg.Monobank.Timeout())),
	)
	privat := privatbank.New(
		privatbank.WithBaseURL(cfg.Privatbank.Endpoint),
		privatbank.WithHTTPClient(httpx.New(cfg.Privatbank.Timeout())),
	)
	return []provider.Provider{
		decorate(mono, cfg.Monobank, log),
		decorate(privat, cfg.Privatbank, log),
	}
}

// decorate wraps retries in the limiter: an admitted call retries without
// waiting for another slot.
func decorate(p provider.Provider, u config.Upstream, log *slog.Logger) provider.Provider {
	if u.Retries > 0 {
		p = &retry.Provider{P: p, Retries: u.Retries, Backoff: u.RetryBackoff(), Log: log}
	}
	return ratelimit.Wrap(p, u.MaxRequestsPerMinute, u.Burst, u.MinRequestInterval())
}

func (a *App) Aggregator() *aggregate.Aggregator { return a.agg }

func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Handler is the HTTP surface served when server.enabled is set.
func (a *App) Handler() http.Handler {
	return server.NewRouter(server.Deps{
		Rates:          a.agg,
		Log:            a.log,
		Metrics:        a.metrics,
		Gatherer:       a.registry,
		RequestTimeout: time.Duration(a.cfg.Server.RequestTimeoutSec) * time.Second,
	})
}

// Run starts the background loops, the HTTP server and the Telegram bot, and
// blocks until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Telegram.Token == "" && !a.cfg.Server.Enabled {
		return ErrNothingToRun
	}

	g, ctx := errgroup.WithContext(ctx)

	if mem, ok := a.store.(*cache.Memory); ok && a.cfg.Cache.SweepIntervalSec > 0 {
		g.Go(func() error {
			mem.Run(ctx, time.Duration(a.cfg.Cache.SweepIntervalSec)*time.Second)
			return nil
		})
	}
	if a.cfg.Cache.WarmIntervalSec > 0 {
		g.Go(func() error {
			a.warm(ctx, time.Duration(a.cfg.Cache.WarmIntervalSec)*time.Second)
			return nil
		})
	}
	if a.cfg.Server.Enabled {
		srv := server.New(a.cfg.Server.Port, a.Handler())
		g.Go(func() error {
			a.log.Info("http server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if a.cfg.Telegram.Token != "" {
		g.Go(func() error { return a.runBot(ctx) })
	} else {
		a.log.Warn("telegram.token not set, bot disabled")
	}

	return g.Wait()
}

func (a *App) runBot(ctx context.Context) error {
	tgbotapi.SetLogger(bot.PollingLogger{Log: a.log})

	api, err := tgbotapi.NewBotAPI(a.cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	api.Debug = a.cfg.Telegram.Debug
	a.log.Info("telegram bot authorized", "username", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.cfg.Telegram.PollTimeoutSec
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	bot.New(api, a.agg, bot.WithLogger(a.log), bot.WithMetrics(a.metrics)).Run(ctx, updates)
	a.log.Info("telegram bot stopped")
	return nil
}

// warm refreshes every provider now and then on each tick.
func (a *App) warm(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := a.agg.Refresh(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("cache warm-up incomplete", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases external connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
