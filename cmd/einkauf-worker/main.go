package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"einkauf/internal/amqp"
	"einkauf/internal/config"
	applog "einkauf/internal/log"
	"einkauf/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentAMQP)
	applog.SetDefault(logger)

	logger.Info("Starting einkauf-worker")

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the event worker")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	journalPath := filepath.Join(cfg.DataDir, "events.jsonl")
	eventWorker, err := worker.NewEventWorker(journalPath)
	if err != nil {
		logger.Error("Failed to initialize event worker", "error", err)
		os.Exit(1)
	}
	logger.Info("Event journal ready", "path", journalPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := amqpClient.ConsumeEvents(ctx, func(event *amqp.Event) error {
			return eventWorker.HandleEvent(ctx, event)
		}); err != nil && ctx.Err() == nil {
			logger.Error("Event consumption stopped", "error", err)
			cancel()
		}
	}()

	// Periodic status line so a quiet queue is distinguishable from a
	// stuck consumer.
	statusTicker := time.NewTicker(5 * time.Minute)
	defer statusTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statusTicker.C:
				logger.Info("Worker status", "eventCounts", eventWorker.Counts())
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
