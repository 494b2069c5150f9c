package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KevinKickass/HomeGateway/internal/config"
	"github.com/KevinKickass/HomeGateway/internal/storage"
	"github.com/KevinKickass/HomeGateway/internal/system"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Logger initialisieren
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Config loaded successfully",
		zap.String("device", cfg.Helios.Address),
		zap.Bool("database", cfg.Database.Enabled))
	if !cfg.Auth.IsProductionReady() {
		logger.Warn("Auth is not production ready, set auth.api_key_hash and a JWT secret of at least 32 characters")
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	lifecycle, err := system.NewLifecycleManager(cfg, store, system.Options{}, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to create lifecycle manager: %w", err)
	}

	if err := lifecycle.Start(ctx); err != nil {
		lifecycle.Shutdown(ctx)
		return fmt.Errorf("failed to start system: %w", err)
	}

	logger.Info("HomeGateway started successfully")

	// Graceful Shutdown auf Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case <-lifecycle.Done():
		logger.Info("Shutdown requested via API")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := lifecycle.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		return err
	}

	logger.Info("HomeGateway stopped successfully")
	return nil
}

// openStore connects PostgreSQL when enabled and falls back to the in-memory
// history otherwise.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Store, error) {
	if !cfg.Enabled {
		logger.Info("Database disabled, keeping history in memory")
		return storage.NewMemoryStore(0), nil
	}

	db, err := storage.NewPostgresClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Database connected successfully", zap.String("host", cfg.Host))
	return db, nil
}
