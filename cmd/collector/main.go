package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-graph-harvester/internal/app"
	"github.com/samvad-hq/samvad-graph-harvester/internal/config"
	"github.com/samvad-hq/samvad-graph-harvester/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "collector failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sugar, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()
	log := logger.NewZapLogger(sugar)

	logger.InfoObj("collector starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector, err := app.NewCollector(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize collector", "error", err.Error())
		return err
	}

	if err := collector.Run(ctx); err != nil {
		logger.ErrorObj("collector run failed", "error", err.Error())
		return fmt.Errorf("collector run: %w", err)
	}

	logger.InfoObj("collector stopped", "reason", "pass complete")
	return nil
}
