// Package server exposes health, metrics and a read-only rates API over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ratebot/internal/metrics"
	"ratebot/internal/provider"
)

// RateService is what the rates endpoints read from.
type RateService interface {
	Quote(ctx context.Context, c provider.Currency) (provider.Quote, error)
	HandleCurrencyRequest(ctx context.Context, c provider.Currency) (string, error)
}

type Deps struct {
	Rates    RateService
	Log      *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// RequestTimeout bounds each rates request.
	RequestTimeout time.Duration
}

// NewRouter wires the routes and middleware.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log, d.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	h := &ratesHandler{rates: d.Rates, log: d.Log}
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		if d.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.RequestTimeout))
		}
		r.Get("/api/rates/{currency}", h.quote)
		r.Get("/api/rates/{currency}/reply", h.reply)
	})
	return r
}

// New builds the http.Server listening on port.
func New(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
