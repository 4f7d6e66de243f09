package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"

	"github.com/dharsanguruparan/todys/internal/app"
	"github.com/dharsanguruparan/todys/internal/config"
	"github.com/dharsanguruparan/todys/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)
	if err := app.RunWorker(ctx, cfg, logger); err != nil {
		level.Error(logger).Log("msg", "worker stopped", "err", err)
		os.Exit(1)
	}
}
