package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// WatermillPublisher adapts a watermill message.Publisher to the
// EventPublisher interface, marshaling the event envelope as JSON.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewKafkaEventPublisher publishes events to Kafka. Used when KAFKA_BROKERS
// is configured.
func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) (*WatermillPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &WatermillPublisher{publisher: publisher, topic: topic}, nil
}

// NewGoChannelEventPublisher publishes events in-process. Used for local
// development when no brokers are configured; subscribers within the same
// process can still observe change events.
func NewGoChannelEventPublisher(topic string, logger *slog.Logger) *WatermillPublisher {
	publisher := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logger),
	)

	return &WatermillPublisher{publisher: publisher, topic: topic}
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
