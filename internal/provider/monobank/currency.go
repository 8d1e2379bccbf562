package monobank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"ratebot/internal/provider"
)

// Rate is one record of GET /bank/currency.
//
//	{
//	  "currencyCodeA": 840,
//	  "currencyCodeB": 980,
//	  "date": 1552392228,
//	  "rateBuy": 27,
//	  "rateSell": 27.2
//	}
//
// Cross pairs carry only rateCross.
type Rate struct {
	CurrencyCodeA int                 `json:"currencyCodeA"`
	CurrencyCodeB int                 `json:"currencyCodeB"`
	Date          int64               `json:"date"`
	RateBuy       decimal.NullDecimal `json:"rateBuy"`
	RateSell      decimal.NullDecimal `json:"rateSell"`
	RateCross     decimal.NullDecimal `json:"rateCross"`
}

// GetCurrency retrieves the raw rate list.
func (c *Client) GetCurrency(ctx context.Context) ([]Rate, error) {
	url := fmt.Sprintf("%s/bank/currency", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		break

	// Monobank serves this endpoint from a cache refreshed every 5 minutes
	// and answers 429 to clients polling faster.
	case http.StatusTooManyRequests:
		return nil, provider.ErrRateLimited

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var rates []Rate
	if err := json.NewDecoder(res.Body).Decode(&rates); err != nil {
		return nil, fmt.Errorf("decoding currency response: %w", err)
	}
	return rates, nil
}

func (c *Client) Name() provider.ID { return provider.Monobank }

// FetchAll returns buy/sell against UAH for every supported currency.
func (c *Client) FetchAll(ctx context.Context) (map[provider.Currency]provider.RatePair, error) {
	rates, err := c.GetCurrency(ctx)
	if err != nil {
		return nil, provider.Upstream(provider.Monobank, err)
	}
	out, err := Normalize(rates)
	if err != nil {
		return nil, provider.Upstream(provider.Monobank, err)
	}
	return out, nil
}

// Normalize picks the <currency>/UAH records out of rates. Every supported
// currency must be present with both a buy and a sell rate.
func Normalize(rates []Rate) (map[provider.Currency]provider.RatePair, error) {
	base := provider.Base.NumericCode()
	out := make(map[provider.Currency]provider.RatePair, len(provider.Supported))
	for _, cur := range provider.Supported {
		code := cur.NumericCode()
		found := false
		for _, r := range rates {
			if r.CurrencyCodeA != code || r.CurrencyCodeB != base {
				continue
			}
			if !r.RateBuy.Valid || !r.RateSell.Valid {
				return nil, fmt.Errorf("%w: %s/%s has no buy/sell rate", provider.ErrNoRecord, cur, provider.Base)
			}
			out[cur] = provider.RatePair{Buy: r.RateBuy.Decimal, Sell: r.RateSell.Decimal}
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: %s/%s", provider.ErrNoRecord, cur, provider.Base)
		}
	}
	return out, nil
}
