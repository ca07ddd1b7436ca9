package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Publisher sends forecast events somewhere durable. Publish must not block
// on delivery; failures are reported through logs.
type Publisher interface {
	Publish(ctx context.Context, event ForecastEvent) error
	Close() error
}

// NoopPublisher discards events.
type NoopPublisher struct{}

// Publish discards the event.
func (NoopPublisher) Publish(context.Context, ForecastEvent) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// PubSubPublisher publishes forecast events to a Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewPubSubPublisher creates a Pub/Sub client for the project and a
// publisher for the topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return NewPubSubPublisherWithClient(client, cfg.Topic, cfg.Logger), nil
}

// NewPubSubPublisherWithClient publishes through an existing client. The
// publisher takes ownership of the client.
func NewPubSubPublisherWithClient(client *pubsub.Client, topic string, logger zerolog.Logger) *PubSubPublisher {
	publisher := client.Publisher(topic)
	publisher.PublishSettings.DelayThreshold = 50 * time.Millisecond
	publisher.PublishSettings.CountThreshold = 100

	return &PubSubPublisher{
		client:    client,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// Publish enqueues the event and returns without waiting for the server.
func (p *PubSubPublisher) Publish(ctx context.Context, event ForecastEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding forecast event: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": EventTypeForecast,
			"request_id": event.RequestID,
		},
	})

	go func() {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		id, err := result.Get(waitCtx)
		if err != nil {
			p.logger.Warn().Err(err).
				Str("topic", p.topic).
				Str("request_id", event.RequestID).
				Msg("failed to publish forecast event")
			return
		}
		p.logger.Debug().
			Str("topic", p.topic).
			Str("message_id", id).
			Msg("published forecast event")
	}()

	return nil
}

// Flush blocks until every enqueued event has been sent.
func (p *PubSubPublisher) Flush() {
	p.publisher.Flush()
}

// Close flushes pending events and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
