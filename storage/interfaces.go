package storage

import (
	"context"
	"time"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
)

// QuoteStore is the write path the route executor depends on.
type QuoteStore interface {
	SaveQuote(ctx context.Context, route *models.Route, quote *models.PriceQuote) error
}

// RouteReader is the read path serving the query API and analytics.
type RouteReader interface {
	LatestPrices(ctx context.Context, limit int) ([]*models.RouteRecord, error)
	RoutesByOrigin(ctx context.Context, originID string, limit int) ([]*models.RouteRecord, error)
	RouteHistory(ctx context.Context, routeID string, days int) ([]*models.RouteRecord, error)
	Neighborhoods(ctx context.Context) ([]*models.Location, error)
	SearchNeighborhoods(ctx context.Context, term string) ([]*models.Location, error)
	RecentCaptures(ctx context.Context, window time.Duration) ([]*models.RouteRecord, error)
}

// RouteStore is the full relational contract.
type RouteStore interface {
	QuoteStore
	RouteReader
	ImportCatalog(ctx context.Context, districts []models.District) error
	UpdateEnrichment(ctx context.Context, routeID string, meters, seconds float64, freshness time.Duration) (int64, error)
	Close() error
}

// EnrichmentPublisher hands successfully captured routes to the
// downstream distance worker.
type EnrichmentPublisher interface {
	Publish(ctx context.Context, job *models.EnrichmentJob) error
	Close() error
}

// QuoteDumper persists raw extracted quotes outside the relational
// store, for eyeballing a run's output.
type QuoteDumper interface {
	WriteQuote(route *models.Route, quote *models.PriceQuote) error
	Close() error
}
