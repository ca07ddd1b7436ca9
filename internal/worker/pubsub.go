// Package worker consumes forecast audit events and persists them.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/aircast/aircast/internal/audit"
)

// ErrInvalidEvent marks a message that can never be stored.
var ErrInvalidEvent = errors.New("invalid forecast event")

// EventStore persists audit events. Saving the same message ID twice must be
// a no-op.
type EventStore interface {
	SaveForecast(ctx context.Context, messageID string, event audit.ForecastEvent) error
}

// ConsumerConfig holds configuration for the audit consumer.
type ConsumerConfig struct {
	ProjectID        string
	SubscriptionName string
	Store            EventStore
	Logger           zerolog.Logger

	// MaxOutstanding caps unacknowledged messages held at once (default 10).
	MaxOutstanding int
}

// Consumer receives forecast events from a Pub/Sub subscription and writes
// them to an EventStore.
type Consumer struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	store            EventStore
	logger           zerolog.Logger

	received atomic.Int64
	stored   atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
}

// Stats is a snapshot of consumer counters.
type Stats struct {
	Received int64 `json:"received"`
	Stored   int64 `json:"stored"`
	Rejected int64 `json:"rejected"`
	Failed   int64 `json:"failed"`
}

// NewConsumer creates a Pub/Sub client for the project and a consumer for
// the subscription.
func NewConsumer(ctx context.Context, cfg ConsumerConfig) (*Consumer, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return NewConsumerWithClient(client, cfg), nil
}

// NewConsumerWithClient consumes through an existing client. The consumer
// takes ownership of the client.
func NewConsumerWithClient(client *pubsub.Client, cfg ConsumerConfig) *Consumer {
	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &Consumer{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		store:            cfg.Store,
		logger:           cfg.Logger,
	}
}

// Start processes messages until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("subscription", c.subscriptionName).
		Msg("starting audit consumer")

	return c.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		c.handleMessage(ctx, msg)
	})
}

// Stats returns the current counters.
func (c *Consumer) Stats() Stats {
	return Stats{
		Received: c.received.Load(),
		Stored:   c.stored.Load(),
		Rejected: c.rejected.Load(),
		Failed:   c.failed.Load(),
	}
}

// Close closes the Pub/Sub client.
func (c *Consumer) Close() error {
	return c.client.Close()
}

func (c *Consumer) handleMessage(ctx context.Context, msg *pubsub.Message) {
	c.received.Add(1)
	startTime := time.Now()

	logger := c.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received audit message")

	event, err := decodeEvent(msg)
	if err != nil {
		// Redelivery cannot fix a malformed payload.
		c.rejected.Add(1)
		logger.Error().Err(err).Msg("dropping audit message")
		msg.Ack()
		return
	}

	if err := c.store.SaveForecast(ctx, msg.ID, event); err != nil {
		c.failed.Add(1)
		logger.Error().Err(err).Msg("failed to store forecast event")
		msg.Nack()
		return
	}

	c.stored.Add(1)
	logger.Debug().
		Str("request_id", event.RequestID).
		Dur("duration", time.Since(startTime)).
		Msg("stored forecast event")

	msg.Ack()
}

func decodeEvent(msg *pubsub.Message) (audit.ForecastEvent, error) {
	var event audit.ForecastEvent

	if t := msg.Attributes["event_type"]; t != "" && t != audit.EventTypeForecast {
		return event, fmt.Errorf("%w: unexpected event type %q", ErrInvalidEvent, t)
	}
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return event, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if event.ComputedAt.IsZero() {
		return event, fmt.Errorf("%w: missing computed_at", ErrInvalidEvent)
	}
	return event, nil
}
