package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ratebot/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewFetchCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fetch:", err)
		stop()
		os.Exit(1)
	}
}
