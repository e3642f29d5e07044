package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/UDynamic/urban-logistics-decision-support-system/config"
	"github.com/UDynamic/urban-logistics-decision-support-system/storage"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
	"github.com/UDynamic/urban-logistics-decision-support-system/worker"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Distance enrichment worker starting ===")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	queue, err := storage.NewQueue(cfg.RabbitURL, cfg.EnrichmentQueue)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ: %v", err)
		os.Exit(1)
	}
	defer queue.Close()

	w := worker.NewDistanceWorker(cfg, queue, store, logger)
	if err := w.Run(ctx); err != nil {
		logger.Error("Worker stopped: %v", err)
		os.Exit(1)
	}
}
