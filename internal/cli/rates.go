package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ratebot/internal/app"
	"ratebot/internal/provider"
)

type rateLine struct {
	Provider provider.ID `json:"provider"`
	Buy      string      `json:"buy"`
	Sell     string      `json:"sell"`
}

type quoteLine struct {
	Currency provider.Currency `json:"currency"`
	Rates    []rateLine        `json:"rates"`
}

// newRatesCommand fetches the current rates once and prints them the way the
// bot would reply.
func newRatesCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rates [CURRENCY...]",
		Short: "Print current rates once and exit",
		Example: `  ratebot rates
  ratebot rates USD --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			currencies, err := parseCurrencies(args)
			if err != nil {
				return err
			}
			cfg, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			out := cmd.OutOrStdout()
			if asJSON {
				quotes := make([]quoteLine, 0, len(currencies))
				for _, c := range currencies {
					q, err := a.Aggregator().Quote(ctx, c)
					if err != nil {
						return err
					}
					line := quoteLine{Currency: c}
					for _, id := range q.Providers {
						r := q.Rates[id]
						line.Rates = append(line.Rates, rateLine{Provider: id, Buy: r.Buy.String(), Sell: r.Sell.String()})
					}
					quotes = append(quotes, line)
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(quotes)
			}

			for i, c := range currencies {
				text, err := a.Aggregator().HandleCurrencyRequest(ctx, c)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of the bot reply")
	return cmd
}

func parseCurrencies(args []string) ([]provider.Currency, error) {
	if len(args) == 0 {
		return provider.Supported, nil
	}
	out := make([]provider.Currency, 0, len(args))
	var errs []error
	for _, arg := range args {
		c, ok := provider.ParseCurrency(arg)
		if !ok {
			errs = append(errs, fmt.Errorf("unsupported currency %q", arg))
			continue
		}
		out = append(out, c)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
