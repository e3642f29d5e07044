package ridehail

import (
	"context"
	"fmt"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/config"
	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/storage"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

// Deps are the collaborators a Scraper drives. Publisher and Dumper are
// optional; the rest are required.
type Deps struct {
	Tabs      TabFactory
	Session   *Session
	Store     storage.QuoteStore
	Publisher storage.EnrichmentPublisher
	Dumper    storage.QuoteDumper
}

// Scraper fans a route list out across a bounded set of concurrent
// browser tabs sharing one authenticated session, with retry, pacing,
// and progress accounting.
type Scraper struct {
	cfg       *config.Config
	logger    *utils.Logger
	selectors Selectors
	pool      *utils.WorkerPool
	retry     *utils.RetryConfig
	seen      *utils.IDSet
	deps      Deps
}

// New creates a ready-to-use Scraper.
func New(cfg *config.Config, logger *utils.Logger, selectors Selectors, deps Deps) *Scraper {
	return &Scraper{
		cfg:       cfg,
		logger:    logger,
		selectors: selectors,
		pool:      utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		seen: utils.NewIDSet(),
		deps: deps,
	}
}

// ScrapeRoutes processes the route list to exhaustion. Per-route
// failures are counted, never propagated: one bad route cannot halt the
// batch. A cancelled context stops after the in-flight batch drains.
// The returned stats are complete even when every route failed.
func (s *Scraper) ScrapeRoutes(ctx context.Context, routes []models.Route) (*models.ScrapeStats, error) {
	work := s.dedupe(routes)
	stats := models.NewScrapeStats(len(work))

	s.logger.Info("[scraper] Starting scrape: %d routes, concurrency %d",
		len(work), s.cfg.MaxConcurrency)

	batchSize := s.cfg.MaxConcurrency
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(work); start += batchSize {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("[scraper] Cancellation requested, draining after %d/%d routes",
				stats.Processed(), stats.Total)
			break
		}

		// The remote session can expire between batches; recheck before
		// handing tasks to the pool.
		if err := s.deps.Session.EnsureAuthenticated(ctx); err != nil {
			s.summarize(stats)
			return stats, fmt.Errorf("session could not be re-established: %w", err)
		}

		end := start + batchSize
		if end > len(work) {
			end = len(work)
		}

		for _, route := range work[start:end] {
			r := route
			s.pool.Submit(func() {
				s.processRoute(ctx, &r, stats)
			})
		}
		s.pool.Wait()

		s.logger.Info("[scraper] Progress: %d%% (%d/%d), %d ok, %d failed",
			stats.Progress(), stats.Processed(), stats.Total,
			stats.Succeeded(), stats.Failed())

		if end < len(work) {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(s.cfg.RateLimitMs) * time.Millisecond):
			}
		}
	}

	s.summarize(stats)
	return stats, nil
}

// dedupe drops routes whose ID was already queued this run.
func (s *Scraper) dedupe(routes []models.Route) []models.Route {
	work := make([]models.Route, 0, len(routes))
	for _, r := range routes {
		if r.ID == "" {
			r.ID = r.Origin.ID + "__" + r.Destination.ID
		}
		if !s.seen.Add(r.ID) {
			s.logger.Debug("[scraper] Skipping duplicate route %s", r.ID)
			continue
		}
		work = append(work, r)
	}
	return work
}

// processRoute applies validation, the retry policy, and outcome
// accounting around one route task.
func (s *Scraper) processRoute(ctx context.Context, route *models.Route, stats *models.ScrapeStats) {
	if !route.Valid() {
		stats.Failure()
		s.logger.Warn("[scraper] %v: route %q lacks origin/destination identifiers", ErrValidation, route.ID)
		return
	}

	err := s.retry.Do(ctx, "route "+route.ID, func() error {
		return s.scrapeRoute(ctx, route)
	})

	if err != nil {
		stats.Failure()
		s.logger.Error("[scraper] Route failed %s → %s: %v",
			route.Origin.Name, route.Destination.Name, err)
		return
	}

	stats.Success()
	s.logger.Info("[scraper] Scraped %s → %s", route.Origin.Name, route.Destination.Name)
}

// scrapeRoute runs the full UI protocol for one route in a fresh tab.
// Closing the tab is the state cleanup: the next task in this slot
// always starts from a new, clean surface.
func (s *Scraper) scrapeRoute(ctx context.Context, route *models.Route) error {
	tab, closeTab, err := s.deps.Tabs.NewTab(ctx)
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	defer closeTab()

	if err := tab.Navigate(ctx, s.cfg.MenuURL); err != nil {
		return fmt.Errorf("navigate to request surface: %w", err)
	}
	if err := tab.Click(ctx, s.selectors.CabRequestButton); err != nil {
		return fmt.Errorf("initiate cab request: %w", err)
	}

	if err := s.setLocation(ctx, tab, route.Origin, RoleOrigin); err != nil {
		return err
	}
	if err := s.setLocation(ctx, tab, route.Destination, RoleDestination); err != nil {
		return err
	}

	quote := s.extractPrices(ctx, tab, route)
	if quote.Empty() {
		return fmt.Errorf("%w: no price slot could be extracted", ErrValidation)
	}

	if err := s.deps.Store.SaveQuote(ctx, route, quote); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if s.deps.Dumper != nil {
		if err := s.deps.Dumper.WriteQuote(route, quote); err != nil {
			s.logger.Warn("[scraper] CSV dump failed for %s: %v", route.ID, err)
		}
	}
	if s.deps.Publisher != nil {
		job := &models.EnrichmentJob{
			RouteID:     route.ID,
			Origin:      route.Origin,
			Destination: route.Destination,
		}
		if err := s.deps.Publisher.Publish(ctx, job); err != nil {
			s.logger.Warn("[scraper] Enrichment publish failed for %s: %v", route.ID, err)
		}
	}

	return nil
}

func (s *Scraper) summarize(stats *models.ScrapeStats) {
	s.logger.Info("[scraper] Scrape complete in %s: %d successful, %d failed",
		utils.FormatDuration(stats.Elapsed()), stats.Succeeded(), stats.Failed())
}
