package api

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/storage"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

// RouteCache fronts the read projections with short-lived entries.
// *storage.Cache implements it.
type RouteCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Handler serves the read-only projections over the persisted captures.
type Handler struct {
	store  storage.RouteReader
	cache  RouteCache
	logger *utils.Logger
}

// NewHandler creates a Handler. The cache is optional; pass nil to
// serve straight from the store.
func NewHandler(store storage.RouteReader, cache RouteCache, logger *utils.Logger) *Handler {
	return &Handler{store: store, cache: cache, logger: logger}
}

func (h *Handler) respond(c *fiber.Ctx, data any, count int) error {
	return c.JSON(fiber.Map{
		"success":   true,
		"data":      data,
		"count":     count,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Health reports service liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

// Routes returns the latest price per route, optionally filtered by
// origin neighborhood (sorted by cab price ascending in that case).
func (h *Handler) Routes(c *fiber.Ctx) error {
	origin := c.Query("origin")
	limit := clamp(c.QueryInt("limit", 100), 1, 500)

	// The clamped limit keys the cache so out-of-range values cannot
	// multiply entries for identical results.
	cacheKey := "routes:" + origin + ":" + strconv.Itoa(limit)
	var records []*models.RouteRecord
	if h.cached(c.Context(), cacheKey, &records) {
		return h.respond(c, records, len(records))
	}

	var err error
	if origin != "" {
		records, err = h.store.RoutesByOrigin(c.Context(), origin, limit)
	} else {
		records, err = h.store.LatestPrices(c.Context(), limit)
	}
	if err != nil {
		h.logger.Error("[api] routes query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "query failed")
	}

	h.remember(c.Context(), cacheKey, records)
	return h.respond(c, records, len(records))
}

// RouteHistory returns one route's captures over a trailing day window.
func (h *Handler) RouteHistory(c *fiber.Ctx) error {
	routeID := c.Params("routeId")
	if routeID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "routeId is required")
	}
	days := clamp(c.QueryInt("days", 7), 1, 30)

	records, err := h.store.RouteHistory(c.Context(), routeID, days)
	if err != nil {
		h.logger.Error("[api] history query failed for %s: %v", routeID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "query failed")
	}
	return h.respond(c, records, len(records))
}

// Neighborhoods lists the catalog, or searches it when ?search= is set.
func (h *Handler) Neighborhoods(c *fiber.Ctx) error {
	search := c.Query("search")

	var (
		locations []*models.Location
		err       error
	)
	if search != "" {
		locations, err = h.store.SearchNeighborhoods(c.Context(), search)
	} else {
		locations, err = h.store.Neighborhoods(c.Context())
	}
	if err != nil {
		h.logger.Error("[api] neighborhoods query failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "query failed")
	}
	return h.respond(c, locations, len(locations))
}

func (h *Handler) cached(ctx context.Context, key string, dest any) bool {
	if h.cache == nil {
		return false
	}
	hit, err := h.cache.Get(ctx, key, dest)
	if err != nil {
		h.logger.Warn("[api] cache read failed: %v", err)
		return false
	}
	return hit
}

func (h *Handler) remember(ctx context.Context, key string, value any) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, key, value); err != nil {
		h.logger.Warn("[api] cache write failed: %v", err)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
