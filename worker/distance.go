package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/UDynamic/urban-logistics-decision-support-system/config"
	"github.com/UDynamic/urban-logistics-decision-support-system/models"
	"github.com/UDynamic/urban-logistics-decision-support-system/storage"
	"github.com/UDynamic/urban-logistics-decision-support-system/utils"
)

// enrichmentFreshness bounds how old a capture may be and still receive
// distance/duration from this worker.
const enrichmentFreshness = 24 * time.Hour

// DistanceWorker consumes enrichment jobs from the queue, resolves
// distance and duration through the routing API, and writes them back
// onto fresh captures of the route.
type DistanceWorker struct {
	cfg    *config.Config
	queue  *storage.Queue
	store  *storage.PostgresStore
	client *resty.Client
	logger *utils.Logger
}

// NewDistanceWorker wires the worker to the queue, store, and routing API.
func NewDistanceWorker(cfg *config.Config, queue *storage.Queue, store *storage.PostgresStore, logger *utils.Logger) *DistanceWorker {
	client := resty.New().
		SetBaseURL(cfg.RoutingAPIURL).
		SetHeader("Api-Key", cfg.RoutingAPIKey).
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &DistanceWorker{
		cfg:    cfg,
		queue:  queue,
		store:  store,
		client: client,
		logger: logger,
	}
}

// Run consumes jobs until the context is cancelled.
func (w *DistanceWorker) Run(ctx context.Context) error {
	deliveries, err := w.queue.Consume(w.cfg.MaxConcurrency)
	if err != nil {
		return fmt.Errorf("worker: start consuming: %w", err)
	}

	w.logger.Info("[worker] Distance worker consuming from %q", w.cfg.EnrichmentQueue)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("[worker] Shutting down")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("worker: delivery stream closed")
			}
			w.handle(ctx, delivery)
		}
	}
}

func (w *DistanceWorker) handle(ctx context.Context, delivery amqp.Delivery) {
	var job models.EnrichmentJob
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		w.logger.Error("[worker] Dropping malformed job: %v", err)
		_ = delivery.Nack(false, false)
		return
	}

	if job.Origin.Latitude == nil || job.Origin.Longitude == nil ||
		job.Destination.Latitude == nil || job.Destination.Longitude == nil {
		w.logger.Warn("[worker] Route %s lacks coordinates, skipping enrichment", job.RouteID)
		_ = delivery.Ack(false)
		return
	}

	meters, seconds, err := w.resolveDistance(ctx, &job)
	if err != nil {
		w.logger.Error("[worker] Routing lookup failed for %s: %v — requeueing", job.RouteID, err)
		_ = delivery.Nack(false, true)
		return
	}

	updated, err := w.store.UpdateEnrichment(ctx, job.RouteID, meters, seconds, enrichmentFreshness)
	if err != nil {
		w.logger.Error("[worker] Enrichment write failed for %s: %v — requeueing", job.RouteID, err)
		_ = delivery.Nack(false, true)
		return
	}

	w.logger.Info("[worker] Enriched %s: %.0fm, %.0fs (%d rows)", job.RouteID, meters, seconds, updated)
	_ = delivery.Ack(false)
}

// routingResponse is the subset of the routing API payload the worker
// reads.
type routingResponse struct {
	Routes []struct {
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

func (w *DistanceWorker) resolveDistance(ctx context.Context, job *models.EnrichmentJob) (meters, seconds float64, err error) {
	var parsed routingResponse

	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"origin":      fmt.Sprintf("%f,%f", *job.Origin.Latitude, *job.Origin.Longitude),
			"destination": fmt.Sprintf("%f,%f", *job.Destination.Latitude, *job.Destination.Longitude),
			"type":        "car",
		}).
		SetResult(&parsed).
		Get("")
	if err != nil {
		return 0, 0, fmt.Errorf("routing request: %w", err)
	}
	if resp.IsError() {
		return 0, 0, fmt.Errorf("routing API returned %s", resp.Status())
	}

	if len(parsed.Routes) == 0 || len(parsed.Routes[0].Legs) == 0 {
		return 0, 0, fmt.Errorf("routing API returned no legs")
	}

	for _, leg := range parsed.Routes[0].Legs {
		meters += leg.Distance.Value
		seconds += leg.Duration.Value
	}
	return meters, seconds, nil
}
