package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/config"
	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/scraper/ridehail"
	"github.com/UDynamic/urban-logistics-decision-support-system/services"
	"github.com/UDynamic/urban-logistics-decision-support-system/storage"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Route Price Scraping System starting ===")
	logger.Info("Config — concurrency: %d | rate: %dms | retries: %d | headless: %v",
		cfg.MaxConcurrency, cfg.RateLimitMs, cfg.MaxRetries, cfg.Headless)

	// SIGINT/SIGTERM trigger a graceful drain: in-flight routes finish,
	// then resources are released in reverse order of acquisition.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	routes := loadWork(ctx, cfg, store, logger)
	if len(routes) == 0 {
		logger.Error("No routes to scrape. Exiting.")
		os.Exit(1)
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	var publisher storage.EnrichmentPublisher
	if queue, err := storage.NewQueue(cfg.RabbitURL, cfg.EnrichmentQueue); err != nil {
		logger.Warn("Enrichment queue unavailable, continuing without it: %v", err)
	} else {
		publisher = queue
		defer queue.Close()
	}

	browser, err := ridehail.NewBrowser(cfg, logger)
	if err != nil {
		logger.Error("Failed to launch browser: %v", err)
		os.Exit(1)
	}
	defer browser.Close()

	selectors := ridehail.DefaultSelectors()
	session := ridehail.NewSession(browser.RootDriver(), cfg, selectors,
		utils.NewTerminalPrompter(), logger)

	if err := session.Authenticate(ctx); err != nil {
		logger.Error("Initial authentication failed: %v", err)
		os.Exit(1)
	}

	scraper := ridehail.New(cfg, logger, selectors, ridehail.Deps{
		Tabs:      browser,
		Session:   session,
		Store:     store,
		Publisher: publisher,
		Dumper:    csvWriter,
	})

	stats, err := scraper.ScrapeRoutes(ctx, routes)
	if err != nil {
		logger.Error("Scrape aborted: %v", err)
		os.Exit(1)
	}

	printAnalytics(ctx, store, logger)

	fmt.Printf("  Done. %d/%d routes captured — raw CSV → %s | history → PostgreSQL (route_history)\n\n",
		stats.Succeeded(), stats.Total, cfg.CSVOutputPath)
}

// loadWork imports the catalog and returns the route work list, reusing
// a pre-generated routes file when one exists.
func loadWork(ctx context.Context, cfg *config.Config, store *storage.PostgresStore, logger *utils.Logger) []models.Route {
	districts, err := services.LoadDistricts(cfg.DistrictsPath)
	if err != nil {
		logger.Warn("Could not load district catalog: %v", err)
	} else if err := store.ImportCatalog(ctx, districts); err != nil {
		logger.Warn("Catalog import failed: %v", err)
	}

	if routes, err := services.LoadRoutes(cfg.RoutesPath); err == nil {
		logger.Info("Loaded %d routes from %s", len(routes), cfg.RoutesPath)
		return routes
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Could not load routes file: %v", err)
	}

	locations := services.Neighborhoods(districts)
	routes := services.GenerateRoutes(locations)
	logger.Info("Generated %d routes from %d neighborhoods", len(routes), len(locations))

	if err := services.SaveRoutes(cfg.RoutesPath, routes); err != nil {
		logger.Warn("Could not save generated routes: %v", err)
	}
	return routes
}

func printAnalytics(ctx context.Context, store *storage.PostgresStore, logger *utils.Logger) {
	records, err := store.RecentCaptures(ctx, 24*time.Hour)
	if err != nil {
		logger.Warn("Could not fetch captures for analytics: %v", err)
		return
	}

	insightSvc := services.NewInsightService(logger)
	insightSvc.Print(insightSvc.Generate(records))
}
