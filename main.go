// Command clouseau serves the LLM interaction ledger over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xiaot623/clouseau/internal/adapter/llm"
	"github.com/xiaot623/clouseau/internal/config"
	"github.com/xiaot623/clouseau/internal/logger"
	"github.com/xiaot623/clouseau/internal/repository"
	"github.com/xiaot623/clouseau/internal/service"
	handler "github.com/xiaot623/clouseau/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("clouseau: %v", err)
	}
}

func run(configPath string) error {
	// A missing .env is fine.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logg, err := logger.New(logger.Options{Level: cfg.General.LogLevel, File: cfg.General.LogFile})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logg.Sync() }()

	logg.Info("starting clouseau",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("database", cfg.Database.DSN),
		zap.Bool("mock_mode", cfg.MockMode()),
	)

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Initialize providers
	ctx := context.Background()
	providers, err := llm.NewRegistryFromConfig(ctx, cfg.RegistryConfig(), logg)
	if err != nil {
		return fmt.Errorf("init providers: %w", err)
	}
	logg.Info("providers registered",
		zap.Strings("providers", providers.Names()),
		zap.String("default", providers.Default()),
	)

	// Initialize service
	svc := service.New(db, providers, cfg, logg)

	// Create Echo server
	e := handler.NewServer(svc, logg)
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logg.Info("api started", zap.String("addr", cfg.Server.Addr()))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logg.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("start server: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Warn("failed to shutdown server gracefully", zap.Error(err))
	}

	logg.Info("clouseau stopped")
	return nil
}
