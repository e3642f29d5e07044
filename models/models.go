package models

import (
	"sync/atomic"
	"time"
)

// District groups neighborhoods for catalog and code-generation purposes.
type District struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Neighborhoods []Location `json:"neighborhoods"`
}

// Location is one neighborhood in the catalog: immutable reference data
// loaded once at startup.
type Location struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DistrictID string   `json:"districtId,omitempty"`
	Latitude   *float64 `json:"lat,omitempty"`
	Longitude  *float64 `json:"lng,omitempty"`
}

// Route is an ordered origin/destination pair. The ID is the
// deterministic concatenation of the two location IDs.
type Route struct {
	ID          string   `json:"id"`
	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`
}

// Valid reports whether the route carries well-formed identifiers.
func (r *Route) Valid() bool {
	return r != nil && r.Origin.ID != "" && r.Destination.ID != "" &&
		r.Origin.Name != "" && r.Destination.Name != ""
}

// PriceValue is one extracted price observation: the raw on-screen text
// and its parsed numeric value. Both are nil when extraction failed for
// that service tab.
type PriceValue struct {
	Text   *string
	Number *float64
}

// Missing reports whether no value was extracted for this slot.
func (p PriceValue) Missing() bool {
	return p.Number == nil
}

// PriceQuote holds the three per-service observations captured for one
// route in one attempt. Never mutated after creation.
type PriceQuote struct {
	Cab          PriceValue
	Bike         PriceValue
	BikeDelivery PriceValue
	CapturedAt   time.Time
}

// Empty reports whether all three slots are missing.
func (q *PriceQuote) Empty() bool {
	return q.Cab.Missing() && q.Bike.Missing() && q.BikeDelivery.Missing()
}

// RouteRecord is the persisted shape of one capture, as stored in the
// route_history table and served by the query API.
type RouteRecord struct {
	RouteID            string     `json:"routeId"`
	Date               string     `json:"date"`
	CapturedAt         time.Time  `json:"capturedAt"`
	CabPriceText       *string    `json:"cabPriceText"`
	CabPriceNumber     *float64   `json:"cabPriceNumber"`
	BikePriceText      *string    `json:"bikePriceText"`
	BikePriceNumber    *float64   `json:"bikePriceNumber"`
	BikeDeliveryText   *string    `json:"bikeDeliveryText"`
	BikeDeliveryNumber *float64   `json:"bikeDeliveryNumber"`
	DistanceMeters     *float64   `json:"distanceMeters,omitempty"`
	DurationSeconds    *float64   `json:"durationSeconds,omitempty"`
	OriginName         string     `json:"originName,omitempty"`
	DestinationName    string     `json:"destinationName,omitempty"`
	EnrichedAt         *time.Time `json:"enrichedAt,omitempty"`
}

// EnrichmentJob is the message published to the enrichment queue after
// a successful capture; the distance worker consumes it.
type EnrichmentJob struct {
	RouteID     string   `json:"routeId"`
	Origin      Location `json:"origin"`
	Destination Location `json:"destination"`
}

// ScrapeStats tracks running batch counters. All mutators are atomic so
// concurrent worker slots can report completion without a lock.
type ScrapeStats struct {
	Total     int64
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	StartTime time.Time
}

// NewScrapeStats creates counters for a batch of the given size.
func NewScrapeStats(total int) *ScrapeStats {
	return &ScrapeStats{Total: int64(total), StartTime: time.Now()}
}

// Success records one successfully processed route.
func (s *ScrapeStats) Success() {
	s.succeeded.Add(1)
	s.processed.Add(1)
}

// Failure records one permanently failed route.
func (s *ScrapeStats) Failure() {
	s.failed.Add(1)
	s.processed.Add(1)
}

func (s *ScrapeStats) Processed() int64 { return s.processed.Load() }
func (s *ScrapeStats) Succeeded() int64 { return s.succeeded.Load() }
func (s *ScrapeStats) Failed() int64    { return s.failed.Load() }

// Progress returns the completed percentage, rounded down.
func (s *ScrapeStats) Progress() int {
	if s.Total == 0 {
		return 100
	}
	return int(s.processed.Load() * 100 / s.Total)
}

// Elapsed returns the wall-clock duration since the batch started.
func (s *ScrapeStats) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

// AnalyticsReport holds aggregate price statistics over a trailing
// window, computed by the insight service.
type AnalyticsReport struct {
	TotalCaptures       int
	CoveredRoutes       int
	AvgCabPrice         float64
	AvgBikePrice        float64
	AvgBikeDelivery     float64
	MinCabPrice         float64
	MaxCabPrice         float64
	MostExpensiveRoute  *RouteRecord
	CapturesPerDistrict map[string]int
	EarliestCapture     time.Time
	LatestCapture       time.Time
}
