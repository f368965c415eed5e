/**
 * @description
 * Outbox dispatcher: polls the event_outbox table, publishes claimed messages
 * to RabbitMQ and retries failures with exponential backoff. Messages that
 * exhaust their attempts are parked for manual inspection.
 */
package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/vyaparlink/directory-server/internal/store"
	"github.com/vyaparlink/directory-server/pkg/rabbitmq"
)

const (
	defaultBatchSize       = 50
	defaultPollInterval    = 1200 * time.Millisecond
	defaultStaleProcessing = 2 * time.Minute
	maxPublishAttempts     = 12
)

// OutboxStore is the subset of the outbox repository the dispatcher needs.
type OutboxStore interface {
	ClaimOutboxMessages(ctx context.Context, limit int, staleAfterSeconds int) ([]store.OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id int64) error
	MarkOutboxFailed(ctx context.Context, id int64, retryAfterSeconds int, reason string) error
	ParkOutboxMessage(ctx context.Context, id int64, reason string) error
}

// OutboxDispatcher moves outbox rows to the message broker.
type OutboxDispatcher struct {
	repo                OutboxStore
	rabbitURL           string
	batchSize           int
	pollInterval        time.Duration
	staleProcessingTime time.Duration
	producer            *rabbitmq.EventProducer
	metrics             DispatchMetrics
}

// DispatchMetrics counts outbox activity for the metrics endpoint.
type DispatchMetrics interface {
	OutboxPublished()
	OutboxFailed()
}

// NewOutboxDispatcher creates a new dispatcher.
func NewOutboxDispatcher(repo OutboxStore, rabbitURL string, metrics DispatchMetrics) *OutboxDispatcher {
	return &OutboxDispatcher{
		repo:                repo,
		rabbitURL:           rabbitURL,
		batchSize:           defaultBatchSize,
		pollInterval:        defaultPollInterval,
		staleProcessingTime: defaultStaleProcessing,
		metrics:             metrics,
	}
}

// Run polls the outbox until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	defer d.closeProducer()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.flushOnce(ctx); err != nil {
				log.Printf("ERROR: outbox flush failed: %v", err)
			}
		}
	}
}

func (d *OutboxDispatcher) flushOnce(ctx context.Context) error {
	staleAfterSeconds := int(d.staleProcessingTime.Seconds())
	messages, err := d.repo.ClaimOutboxMessages(ctx, d.batchSize, staleAfterSeconds)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	for _, message := range messages {
		if err := d.publishMessage(ctx, message); err != nil {
			d.countFailure()
			if message.Attempts >= maxPublishAttempts {
				log.Printf("ERROR: parking outbox message %d after %d attempts: %v", message.ID, message.Attempts, err)
				_ = d.repo.ParkOutboxMessage(ctx, message.ID, err.Error())
				continue
			}
			retryAfter := retryDelaySeconds(message.Attempts)
			_ = d.repo.MarkOutboxFailed(ctx, message.ID, retryAfter, err.Error())
			continue
		}
		if err := d.repo.MarkOutboxPublished(ctx, message.ID); err != nil {
			log.Printf("WARN: failed to mark outbox message %d as published: %v", message.ID, err)
		}
		if d.metrics != nil {
			d.metrics.OutboxPublished()
		}
	}
	return nil
}

func (d *OutboxDispatcher) publishMessage(ctx context.Context, message store.OutboxMessage) error {
	if d.producer == nil {
		producer, err := rabbitmq.NewEventProducer(d.rabbitURL)
		if err != nil {
			return err
		}
		d.producer = producer
	}

	var payload interface{}
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		return err
	}

	if err := d.producer.Publish(ctx, message.Exchange, message.RoutingKey, payload); err != nil {
		d.closeProducer()
		return err
	}
	return nil
}

func (d *OutboxDispatcher) closeProducer() {
	if d.producer != nil {
		d.producer.Close()
		d.producer = nil
	}
}

func (d *OutboxDispatcher) countFailure() {
	if d.metrics != nil {
		d.metrics.OutboxFailed()
	}
}

func retryDelaySeconds(attempt int) int {
	if attempt < 1 {
		return 1
	}
	delay := 1 << minInt(attempt, 8)
	if delay > 300 {
		return 300
	}
	return delay
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
