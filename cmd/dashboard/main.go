package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"file-monitor-dashboard/internal/cli"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return cli.NewRootCommand().ExecuteContext(ctx)
}
