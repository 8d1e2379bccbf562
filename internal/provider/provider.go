package provider

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// ID identifies an upstream rate source.
type ID string

const (
	Monobank   ID = "mono"
	PrivatBank ID = "privat"
)

// DisplayName is the label shown to chat users.
func (id ID) DisplayName() string {
	switch id {
	case Monobank:
		return "Monobank"
	case PrivatBank:
		return "Privatbank"
	default:
		return string(id)
	}
}

// RatePair is the normalized shape returned by all providers: the bank's
// buy and sell rate for one currency against UAH.
type RatePair struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

// Quote is the per-request view of one currency across providers.
// Providers keeps presentation order.
type Quote struct {
	Currency  Currency        `json:"currency"`
	Providers []ID            `json:"providers"`
	Rates     map[ID]RatePair `json:"rates"`
}

// Provider returns rates for every supported currency in one upstream call.
//
//go:generate mockgen -package=providermock -destination=providermock/provider.go . Provider
type Provider interface {
	Name() ID
	FetchAll(ctx context.Context) (map[Currency]RatePair, error)
}

// Fetch returns a single currency from p.
func Fetch(ctx context.Context, p Provider, c Currency) (RatePair, error) {
	all, err := p.FetchAll(ctx)
	if err != nil {
		return RatePair{}, err
	}
	rate, ok := all[c]
	if !ok {
		return RatePair{}, &UpstreamError{Provider: p.Name(), Err: fmt.Errorf("%w: %s", ErrNoRecord, c)}
	}
	return rate, nil
}
