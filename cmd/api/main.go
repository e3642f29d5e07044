package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/api"
	"github.com/UDynamic/urban-logistics-decision-support-system/config"
	"github.com/UDynamic/urban-logistics-decision-support-system/storage"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Route Price API starting ===")

	store, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	var cache api.RouteCache
	if c, err := storage.NewCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 60*time.Second); err != nil {
		logger.Warn("Redis unavailable, serving uncached: %v", err)
	} else {
		cache = c
		defer c.Close()
	}

	app := api.NewApp(api.NewHandler(store, cache, logger))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logger.Error("Error during shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.APIPort
	logger.Info("Server listening on http://localhost%s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Error("Failed to start server: %v", err)
		os.Exit(1)
	}
}
