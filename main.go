package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"co2monitor/internal/config"
	"co2monitor/internal/database"
	"co2monitor/internal/logger"
	"co2monitor/internal/services"
	"co2monitor/pkg/rabbitmq"

	"go.uber.org/zap"
)

const (
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	openCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	store, err := database.Open(openCtx, cfg.Database, log)
	cancel()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warn("error closing database", zap.Error(err))
		}
	}()

	// --- Alert events ---
	var publisher services.AlertEventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			return fmt.Errorf("init RabbitMQ: %w", err)
		}
		defer func() {
			if err := mqClient.Close(); err != nil {
				log.Warn("error closing RabbitMQ client", zap.Error(err))
			}
		}()
		publisher = mqClient
	} else {
		log.Info("RABBITMQ_URL not set, alert events disabled")
	}

	// --- HTTP server ---
	app := NewApp(cfg, store, publisher, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("addr", cfg.AppPort),
			zap.String("database", cfg.Database.Driver),
		)
		serverErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Warn("error during Fiber shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
	return nil
}
