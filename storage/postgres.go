package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

// ErrInvalidInput marks writes rejected before touching the database.
var ErrInvalidInput = errors.New("storage: invalid input")

// PostgresStore persists price captures and the location catalog to
// PostgreSQL. database/sql pools connections under the hood.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use store.
func NewPostgresStore(dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db, logger: logger}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS districts (
			id   VARCHAR(16) PRIMARY KEY,
			name TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS neighborhoods (
			id          VARCHAR(32) PRIMARY KEY,
			name        TEXT NOT NULL,
			district_id VARCHAR(16) NOT NULL REFERENCES districts(id),
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION
		);

		CREATE TABLE IF NOT EXISTS route_history (
			id                   BIGSERIAL PRIMARY KEY,
			route_id             VARCHAR(80) NOT NULL,
			origin_id            VARCHAR(32) NOT NULL,
			destination_id       VARCHAR(32) NOT NULL,
			date                 DATE        NOT NULL,
			captured_at          TIMESTAMPTZ NOT NULL,
			cab_price_text       TEXT,
			cab_price_number     NUMERIC(14,2),
			bike_price_text      TEXT,
			bike_price_number    NUMERIC(14,2),
			bike_delivery_text   TEXT,
			bike_delivery_number NUMERIC(14,2),
			distance_meters      DOUBLE PRECISION,
			duration_seconds     DOUBLE PRECISION,
			enriched_at          TIMESTAMPTZ,
			UNIQUE (route_id, captured_at, date)
		);

		CREATE INDEX IF NOT EXISTS idx_route_history_route    ON route_history(route_id, captured_at DESC);
		CREATE INDEX IF NOT EXISTS idx_route_history_origin   ON route_history(origin_id);
		CREATE INDEX IF NOT EXISTS idx_route_history_captured ON route_history(captured_at);
		CREATE INDEX IF NOT EXISTS idx_neighborhoods_district ON neighborhoods(district_id);
	`)
	return err
}

// SaveQuote upserts one price capture keyed by (route_id, captured_at,
// date). Re-running the same key overwrites the price fields rather
// than duplicating the row. A quote with missing slots is still stored
// with null fields; partial data has analytical value.
func (ps *PostgresStore) SaveQuote(ctx context.Context, route *models.Route, quote *models.PriceQuote) error {
	if !route.Valid() {
		return fmt.Errorf("%w: route lacks identifiers", ErrInvalidInput)
	}
	if quote == nil || quote.Empty() {
		return fmt.Errorf("%w: quote has no price slots", ErrInvalidInput)
	}

	for service, slot := range map[string]models.PriceValue{
		"cab": quote.Cab, "bike": quote.Bike, "bike-delivery": quote.BikeDelivery,
	} {
		if slot.Missing() {
			ps.logger.Warn("[postgres] %s price missing for route %s → %s, storing null",
				service, route.Origin.Name, route.Destination.Name)
		}
	}

	capturedAt := quote.CapturedAt
	date := capturedAt.Format("2006-01-02")

	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO route_history (
			route_id, origin_id, destination_id, date, captured_at,
			cab_price_text, cab_price_number,
			bike_price_text, bike_price_number,
			bike_delivery_text, bike_delivery_number
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (route_id, captured_at, date) DO UPDATE SET
			cab_price_text       = EXCLUDED.cab_price_text,
			cab_price_number     = EXCLUDED.cab_price_number,
			bike_price_text      = EXCLUDED.bike_price_text,
			bike_price_number    = EXCLUDED.bike_price_number,
			bike_delivery_text   = EXCLUDED.bike_delivery_text,
			bike_delivery_number = EXCLUDED.bike_delivery_number,
			captured_at          = EXCLUDED.captured_at
	`,
		route.ID, route.Origin.ID, route.Destination.ID, date, capturedAt,
		quote.Cab.Text, quote.Cab.Number,
		quote.Bike.Text, quote.Bike.Number,
		quote.BikeDelivery.Text, quote.BikeDelivery.Number,
	)
	if err != nil {
		return fmt.Errorf("postgres: save quote %s: %w", route.ID, err)
	}
	return nil
}

// ImportCatalog upserts the district/neighborhood reference data.
func (ps *PostgresStore) ImportCatalog(ctx context.Context, districts []models.District) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin catalog import: %w", err)
	}
	defer tx.Rollback()

	for _, d := range districts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO districts (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		`, d.ID, d.Name); err != nil {
			return fmt.Errorf("postgres: import district %s: %w", d.ID, err)
		}

		for _, n := range d.Neighborhoods {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO neighborhoods (id, name, district_id, latitude, longitude)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name, latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
			`, n.ID, n.Name, d.ID, n.Latitude, n.Longitude); err != nil {
				return fmt.Errorf("postgres: import neighborhood %s: %w", n.ID, err)
			}
		}
	}

	return tx.Commit()
}

const recordColumns = `
	rh.route_id, rh.date::text, rh.captured_at,
	rh.cab_price_text, rh.cab_price_number,
	rh.bike_price_text, rh.bike_price_number,
	rh.bike_delivery_text, rh.bike_delivery_number,
	rh.distance_meters, rh.duration_seconds, rh.enriched_at,
	COALESCE(o.name, ''), COALESCE(d.name, '')`

func (ps *PostgresStore) scanRecords(rows *sql.Rows) ([]*models.RouteRecord, error) {
	defer rows.Close()

	var records []*models.RouteRecord
	for rows.Next() {
		r := &models.RouteRecord{}
		if err := rows.Scan(
			&r.RouteID, &r.Date, &r.CapturedAt,
			&r.CabPriceText, &r.CabPriceNumber,
			&r.BikePriceText, &r.BikePriceNumber,
			&r.BikeDeliveryText, &r.BikeDeliveryNumber,
			&r.DistanceMeters, &r.DurationSeconds, &r.EnrichedAt,
			&r.OriginName, &r.DestinationName,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LatestPrices returns the newest capture per route, newest first.
func (ps *PostgresStore) LatestPrices(ctx context.Context, limit int) ([]*models.RouteRecord, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM (
			SELECT DISTINCT ON (route_id) *
			FROM route_history
			ORDER BY route_id, captured_at DESC
		) rh
		LEFT JOIN neighborhoods o ON rh.origin_id = o.id
		LEFT JOIN neighborhoods d ON rh.destination_id = d.id
		ORDER BY rh.captured_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: latest prices: %w", err)
	}
	return ps.scanRecords(rows)
}

// RoutesByOrigin returns the latest capture for every route starting at
// the given neighborhood, cheapest cab fare first.
func (ps *PostgresStore) RoutesByOrigin(ctx context.Context, originID string, limit int) ([]*models.RouteRecord, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM (
			SELECT DISTINCT ON (route_id) *
			FROM route_history
			WHERE origin_id = $1
			ORDER BY route_id, captured_at DESC
		) rh
		LEFT JOIN neighborhoods o ON rh.origin_id = o.id
		LEFT JOIN neighborhoods d ON rh.destination_id = d.id
		ORDER BY rh.cab_price_number ASC NULLS LAST
		LIMIT $2
	`, originID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: routes by origin %s: %w", originID, err)
	}
	return ps.scanRecords(rows)
}

// RouteHistory returns one route's captures over a trailing day window.
func (ps *PostgresStore) RouteHistory(ctx context.Context, routeID string, days int) ([]*models.RouteRecord, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM route_history rh
		LEFT JOIN neighborhoods o ON rh.origin_id = o.id
		LEFT JOIN neighborhoods d ON rh.destination_id = d.id
		WHERE rh.route_id = $1
		  AND rh.captured_at >= NOW() - make_interval(days => $2)
		ORDER BY rh.captured_at DESC
	`, routeID, days)
	if err != nil {
		return nil, fmt.Errorf("postgres: history %s: %w", routeID, err)
	}
	return ps.scanRecords(rows)
}

// RecentCaptures returns every capture inside the window, feeding the
// analytics report.
func (ps *PostgresStore) RecentCaptures(ctx context.Context, window time.Duration) ([]*models.RouteRecord, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM route_history rh
		LEFT JOIN neighborhoods o ON rh.origin_id = o.id
		LEFT JOIN neighborhoods d ON rh.destination_id = d.id
		WHERE rh.captured_at >= NOW() - make_interval(secs => $1)
		ORDER BY rh.captured_at DESC
	`, window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("postgres: recent captures: %w", err)
	}
	return ps.scanRecords(rows)
}

// Neighborhoods lists the full catalog ordered by district then name.
func (ps *PostgresStore) Neighborhoods(ctx context.Context) ([]*models.Location, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT n.id, n.name, n.district_id, n.latitude, n.longitude
		FROM neighborhoods n
		JOIN districts d ON n.district_id = d.id
		ORDER BY d.name, n.name
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: neighborhoods: %w", err)
	}
	return scanLocations(rows)
}

// SearchNeighborhoods matches the term against neighborhood and
// district names, neighborhood-name matches first.
func (ps *PostgresStore) SearchNeighborhoods(ctx context.Context, term string) ([]*models.Location, error) {
	pattern := "%" + term + "%"
	rows, err := ps.db.QueryContext(ctx, `
		SELECT n.id, n.name, n.district_id, n.latitude, n.longitude
		FROM neighborhoods n
		JOIN districts d ON n.district_id = d.id
		WHERE n.name ILIKE $1 OR d.name ILIKE $1
		ORDER BY CASE WHEN n.name ILIKE $1 THEN 1 ELSE 2 END, n.name
		LIMIT 10
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("postgres: search neighborhoods %q: %w", term, err)
	}
	return scanLocations(rows)
}

func scanLocations(rows *sql.Rows) ([]*models.Location, error) {
	defer rows.Close()

	var locations []*models.Location
	for rows.Next() {
		l := &models.Location{}
		if err := rows.Scan(&l.ID, &l.Name, &l.DistrictID, &l.Latitude, &l.Longitude); err != nil {
			return nil, fmt.Errorf("postgres: scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateEnrichment writes distance/duration onto captures of the route
// newer than the freshness window. Returns the number of rows touched.
func (ps *PostgresStore) UpdateEnrichment(ctx context.Context, routeID string, meters, seconds float64, freshness time.Duration) (int64, error) {
	res, err := ps.db.ExecContext(ctx, `
		UPDATE route_history
		SET distance_meters = $2, duration_seconds = $3, enriched_at = NOW()
		WHERE route_id = $1
		  AND captured_at >= NOW() - make_interval(secs => $4)
	`, routeID, meters, seconds, freshness.Seconds())
	if err != nil {
		return 0, fmt.Errorf("postgres: enrich %s: %w", routeID, err)
	}
	return res.RowsAffected()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
