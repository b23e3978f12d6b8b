// Package events publishes journey transitions onto a watermill message bus
// after they commit. The bus can be an in-process channel, a Redis stream
// or a Kafka topic; consumers see the same JSON payload on each.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/pkordes/smartfare/internal/domain"
)

// Topics, one per transition.
const (
	TopicJourneyStarted = "journey.started"
	TopicJourneyEnded   = "journey.ended"
)

// Topic returns the topic a transition of type t is published on.
func Topic(t domain.TapStatus) string {
	if t == domain.TapEnd {
		return TopicJourneyEnded
	}
	return TopicJourneyStarted
}

// Publisher encodes JourneyEvents and hands them to a watermill publisher.
type Publisher struct {
	pub message.Publisher
	log *slog.Logger
}

// NewPublisher wraps pub.
func NewPublisher(pub message.Publisher, log *slog.Logger) *Publisher {
	return &Publisher{pub: pub, log: log}
}

// Publish sends ev on its transition's topic. The message is keyed by the
// journey id so a partitioned sink keeps one journey's events in order.
func (p *Publisher) Publish(ctx context.Context, ev domain.JourneyEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events.Publisher.Publish: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("journey_id", ev.Journey.ID.String())
	msg.Metadata.Set("passenger_id", ev.Journey.PassengerID.String())

	topic := Topic(ev.Type)
	if err := p.pub.Publish(topic, msg); err != nil {
		return fmt.Errorf("events.Publisher.Publish: %s: %w", topic, err)
	}
	p.log.DebugContext(ctx, "journey event published", "topic", topic, "message_uuid", msg.UUID)
	return nil
}

// Close closes the underlying publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}
