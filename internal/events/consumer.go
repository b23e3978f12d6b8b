package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/pkordes/smartfare/internal/domain"
)

// Handler processes one decoded journey event.
type Handler func(ctx context.Context, ev domain.JourneyEvent) error

// Consume subscribes to both journey topics on sub and calls h for every
// event until ctx is cancelled. A message that does not decode is logged and
// acked; a handler error nacks the message.
func Consume(ctx context.Context, sub message.Subscriber, log *slog.Logger, h Handler) error {
	for _, topic := range []string{TopicJourneyStarted, TopicJourneyEnded} {
		msgs, err := sub.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("events.Consume: subscribe %s: %w", topic, err)
		}
		go drain(ctx, topic, msgs, log, h)
	}
	return nil
}

func drain(ctx context.Context, topic string, msgs <-chan *message.Message, log *slog.Logger, h Handler) {
	for msg := range msgs {
		var ev domain.JourneyEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			log.ErrorContext(ctx, "undecodable journey event", "topic", topic, "message_uuid", msg.UUID, "error", err)
			msg.Ack()
			continue
		}
		if err := h(ctx, ev); err != nil {
			log.ErrorContext(ctx, "journey event handler failed", "topic", topic, "journey_id", ev.Journey.ID, "error", err)
			msg.Nack()
			continue
		}
		msg.Ack()
	}
}

// LogHandler writes every event to log as an audit line.
func LogHandler(log *slog.Logger) Handler {
	return func(ctx context.Context, ev domain.JourneyEvent) error {
		attrs := []any{
			"type", ev.Type,
			"journey_id", ev.Journey.ID,
			"passenger", ev.PassengerName,
			"balance_after", ev.BalanceAfter,
		}
		if ev.Journey.Cost != nil {
			attrs = append(attrs, "cost", *ev.Journey.Cost)
		}
		log.InfoContext(ctx, "journey event", attrs...)
		return nil
	}
}
