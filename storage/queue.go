package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/UDynamic/urban-logistics-decision-support-system/models"
)

// Queue connects the scraper to the distance-enrichment worker through
// a durable RabbitMQ queue.
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	name    string
}

// NewQueue dials RabbitMQ and declares the durable enrichment queue.
func NewQueue(url, name string) (*Queue, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(30 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("queue: dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue: open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue: declare %q: %w", name, err)
	}

	return &Queue{conn: conn, channel: ch, name: name}, nil
}

// Publish enqueues one enrichment job as a persistent JSON message.
func (q *Queue) Publish(ctx context.Context, job *models.EnrichmentJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: encode job %s: %w", job.RouteID, err)
	}

	err = q.channel.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("queue: publish job %s: %w", job.RouteID, err)
	}
	return nil
}

// Consume opens a delivery stream with manual acknowledgement; the
// prefetch bound keeps one worker from hoarding the queue.
func (q *Queue) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if err := q.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("queue: set qos: %w", err)
	}

	deliveries, err := q.channel.Consume(q.name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue: consume %q: %w", q.name, err)
	}
	return deliveries, nil
}

// Close releases the channel and connection.
func (q *Queue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return fmt.Errorf("queue: close channel: %w", err)
	}
	if err := q.conn.Close(); err != nil {
		return fmt.Errorf("queue: close connection: %w", err)
	}
	return nil
}
