package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/imap-autoresponder/internal/config"
	"github.com/mikey/imap-autoresponder/internal/core"
	"github.com/mikey/imap-autoresponder/internal/di"
	"github.com/mikey/imap-autoresponder/internal/loop"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Refuse to start on unusable configuration, before any adapter is
	// constructed
	if err := container.Invoke(func(cfg *config.Config) error {
		return cfg.Validate()
	}); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	runner *loop.Runner,
	ledger core.ReplyLedger,
) error {
	defer logger.Sync()

	logger.Info("Starting autoresponder",
		zap.String("address", cfg.GetAccount().Address),
		zap.String("imap_host", cfg.GetString("imap.host")),
		zap.String("smtp_host", cfg.GetString("smtp.host")),
		zap.String("ledger", cfg.GetString("ledger.type")))

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx); err != nil {
		return err
	}
	logger.Info("Shutting down...")

	if err := ledger.Close(); err != nil {
		logger.Error("Failed to close ledger", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}
