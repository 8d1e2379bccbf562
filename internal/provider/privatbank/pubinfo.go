package privatbank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"ratebot/internal/provider"
)

// cashless rates
const coursID = 5

// Rate is one record of GET /p24api/pubinfo. Amounts arrive as strings.
//
//	{"ccy": "EUR", "base_ccy": "UAH", "buy": "44.50000", "sale": "45.50000"}
type Rate struct {
	CCY     string              `json:"ccy"`
	BaseCCY string              `json:"base_ccy"`
	Buy     decimal.NullDecimal `json:"buy"`
	Sale    decimal.NullDecimal `json:"sale"`
}

// GetPubinfo retrieves the raw exchange list.
func (c *Client) GetPubinfo(ctx context.Context) ([]Rate, error) {
	url := fmt.Sprintf("%s/p24api/pubinfo?exchange&coursid=%d", c.baseURL, coursID)
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

	case http.StatusTooManyRequests:
		return nil, provider.ErrRateLimited

	default:
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	var rates []Rate
	if err := json.NewDecoder(res.Body).Decode(&rates); err != nil {
		return nil, fmt.Errorf("decoding pubinfo response: %w", err)
	}
	return rates, nil
}

func (c *Client) Name() provider.ID { return provider.PrivatBank }

// FetchAll returns buy/sale against UAH for every supported currency.
func (c *Client) FetchAll(ctx context.Context) (map[provider.Currency]provider.RatePair, error) {
	rates, err := c.GetPubinfo(ctx)
	if err != nil {
		return nil, provider.Upstream(provider.PrivatBank, err)
	}
	out, err := Normalize(rates)
	if err != nil {
		return nil, provider.Upstream(provider.PrivatBank, err)
	}
	return out, nil
}

// Normalize picks the <ccy>/UAH records out of rates.
func Normalize(rates []Rate) (map[provider.Currency]provider.RatePair, error) {
	out := make(map[provider.Currency]provider.RatePair, len(provider.Supported))
	for _, r := range rates {
		cur := provider.Currency(r.CCY)
		if !cur.IsSupported() || provider.Currency(r.BaseCCY) != provider.Base {
			continue
		}
		if _, dup := out[cur]; dup {
			continue
		}
		if !r.Buy.Valid || !r.Sale.Valid {
			return nil, fmt.Errorf("%w: %s/%s has no buy/sale rate", provider.ErrNoRecord, cur, provider.Base)
		}
		out[cur] = provider.RatePair{Buy: r.Buy.Decimal, Sell: r.Sale.Decimal}
	}
	for _, cur := range provider.Supported {
		if _, ok := out[cur]; !ok {
			return nil, fmt.Errorf("%w: %s/%s", provider.ErrNoRecord, cur, provider.Base)
		}
	}
	return out, nil
}
