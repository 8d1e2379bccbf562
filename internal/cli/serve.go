package cli

import (
	"github.com/spf13/cobra"

	"ratebot/internal/app"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and, when enabled, the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Error("close", "err", err)
				}
			}()

			log.Info("ratebot starting", "version", version)
			if err := a.Run(ctx); err != nil {
				return err
			}
			log.Info("ratebot stopped")
			return nil
		},
	}
}
