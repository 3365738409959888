package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nushungry/review-service/internal/catalog"
	"github.com/nushungry/review-service/internal/config"
	"github.com/nushungry/review-service/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logger.
	log := logger.New("catalog-sync", cfg.LogLevel)
	log.Info("starting catalog sync worker",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.CatalogHTTPPort),
	)

	// Create the worker with all dependencies wired.
	worker, err := catalog.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize worker: %w", err)
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run the worker. This blocks until shutdown.
	if err := worker.Run(ctx); err != nil {
		return fmt.Errorf("run worker: %w", err)
	}

	log.Info("catalog sync worker stopped")
	return nil
}
