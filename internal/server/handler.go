package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ratebot/internal/provider"
)

type rateJSON struct {
	Provider provider.ID `json:"provider"`
	Name     string      `json:"name"`
	Buy      string      `json:"buy"`
	Sell     string      `json:"sell"`
}

type quoteResponse struct {
	Currency provider.Currency `json:"currency"`
	Base     provider.Currency `json:"base"`
	Rates    []rateJSON        `json:"rates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type ratesHandler struct {
	rates RateService
	log   *slog.Logger
}

func (h *ratesHandler) quote(w http.ResponseWriter, r *http.Request) {
	c, ok := provider.ParseCurrency(chi.URLParam(r, "currency"))
	if !ok {
		h.respondJSON(w, http.StatusNotFound, errorResponse{Error: "unsupported currency"})
		return
	}

	q, err := h.rates.Quote(r.Context(), c)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := quoteResponse{Currency: q.Currency, Base: provider.Base, Rates: make([]rateJSON, 0, len(q.Providers))}
	for _, id := range q.Providers {
		rate := q.Rates[id]
		resp.Rates = append(resp.Rates, rateJSON{
			Provider: id,
			Name:     id.DisplayName(),
			Buy:      rate.Buy.String(),
			Sell:     rate.Sell.String(),
		})
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *ratesHandler) reply(w http.ResponseWriter, r *http.Request) {
	c, ok := provider.ParseCurrency(chi.URLParam(r, "currency"))
	if !ok {
		http.Error(w, "unsupported currency", http.StatusNotFound)
		return
	}

	text, err := h.rates.HandleCurrencyRequest(r.Context(), c)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func (h *ratesHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, provider.ErrUpstream) {
		status = http.StatusBadGateway
	}
	h.log.ErrorContext(r.Context(), "rates request failed", "path", r.URL.Path, "status", status, "err", err)
	h.respondJSON(w, status, errorResponse{Error: http.StatusText(status)})
}

func (h *ratesHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		h.log.Error("failed to encode response", "err", err)
	}
}
