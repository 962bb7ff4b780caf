// Package realtime pushes inventory-change notifications to live listeners
// such as storefront stock widgets. Delivery is best effort: a failed publish
// is logged and never fails the business operation that triggered it.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StockChannel is the pub/sub channel storefront listeners subscribe to.
const StockChannel = "ovenline.stock"

// Event is the payload broadcast to listeners.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ReceiptID  int64          `json:"receiptId,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Publisher is the capability injected into services that announce changes.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Broadcaster publishes events over Redis pub/sub.
type Broadcaster struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBroadcaster constructs a Redis-backed publisher.
func NewBroadcaster(client *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{client: client, logger: logger}
}

// Publish sends the event to the stock channel. Errors are returned for
// logging by the caller but carry no correctness obligation.
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	if b == nil || b.client == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, StockChannel, payload).Err(); err != nil {
		if b.logger != nil {
			b.logger.Warn("publish stock event", slog.String("type", event.Type), slog.Any("error", err))
		}
		return err
	}
	return nil
}

// NoopPublisher discards events; used in environments without listeners.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }
