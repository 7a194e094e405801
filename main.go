package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contactbook/internal/config"
	"contactbook/internal/database"
	"contactbook/internal/services"
	"contactbook/internal/storage"
	"contactbook/pkg/logger"
	"contactbook/pkg/rabbitmq"

	"github.com/streadway/amqp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "contactbook: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log, err := logger.New(cfg.App.Mode)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	// --- Database ---
	pool, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pool.Ping(startupCtx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	if err := pool.Migrate(startupCtx); err != nil {
		return err
	}

	// --- Photo storage ---
	if err := os.MkdirAll(cfg.Upload.TempDir, 0o755); err != nil {
		return fmt.Errorf("creating upload temp dir: %w", err)
	}
	photos, err := storage.NewPhotoStore(cfg.Upload.Path, log)
	if err != nil {
		return err
	}
	if swept, err := photos.Sweep(); err != nil {
		log.Warn("photo sweep failed", "error", err)
	} else if swept > 0 {
		log.Info("removed leftover photo staging entries", "count", swept)
	}

	// --- Events ---
	var events services.EventPublisher
	if cfg.RabbitMQ.Enabled {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL}, log)
		if err != nil {
			return fmt.Errorf("initializing RabbitMQ client: %w", err)
		}
		defer mqClient.Close()
		events = mqClient

		janitor := services.NewPhotoJanitor(photos, log)
		if err := mqClient.ConsumeEvents(func(msg amqp.Delivery) error {
			return janitor.Handle(msg.Body)
		}); err != nil {
			return fmt.Errorf("starting event consumer: %w", err)
		}
	} else {
		log.Info("RabbitMQ disabled, photos of deleted contacts are not reclaimed")
	}

	// --- HTTP ---
	app := newApp(cfg, log, pool, photos, events)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.App.Port)
		serverErr <- app.Listen(cfg.App.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("shutting down server", "signal", sig.String())
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during Fiber shutdown", "error", err)
	}
	log.Info("server gracefully stopped")
	return nil
}
