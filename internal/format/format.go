// Package format renders aggregated quotes as chat text.
package format

import (
	"strings"

	"ratebot/internal/provider"
)

// Reply renders one block per provider in q.Providers order, sell before buy.
// Every listed provider must have a rate in q.Rates.
//
//	Monobank:
//
//	Курс: USD/UAH
//
//	Продаж: 37
//	Купівля:36.5
func Reply(q provider.Quote) string {
	var b strings.Builder
	for i, id := range q.Providers {
		if i > 0 {
			b.WriteString("\n\n")
		}
		rate := q.Rates[id]
		b.WriteString(id.DisplayName())
		b.WriteString(":\n\nКурс: ")
		b.WriteString(q.Currency.String())
		b.WriteString("/")
		b.WriteString(provider.Base.String())
		b.WriteString("\n\nПродаж: ")
		b.WriteString(rate.Sell.String())
		b.WriteString("\nКупівля:")
		b.WriteString(rate.Buy.String())
	}
	return b.String()
}
