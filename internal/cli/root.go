// Package cli holds the ratebot command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ratebot/internal/config"
	"ratebot/internal/logger"
)

const version = "v1.0.0"

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ratebot",
		Short:         "Telegram bot with Monobank and PrivatBank USD/EUR rates",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bindFlags(cmd)

	cmd.AddCommand(newServeCommand(opts), newRatesCommand(opts))
	return cmd
}

// NewFetchCommand is the rates command on its own, for the fetch binary.
func NewFetchCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := newRatesCommand(opts)
	cmd.Use = "fetch [CURRENCY...]"
	cmd.Example = "  fetch\n  fetch USD --json"
	cmd.Version = version
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	opts.bindFlags(cmd)
	return cmd
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (o *rootOptions) bindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&o.configFile, "config", "", "Path to config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&o.logFormat, "log-format", "", "Log format override: text or json")
}

// load reads the config and applies flag overrides.
func (o *rootOptions) load(logOut io.Writer) (config.Config, *slog.Logger, error) {
	path := o.configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, logger.New(logOut, cfg.Log.Level, cfg.Log.Format), nil
}
