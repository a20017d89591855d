package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gamerooms/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StreamName is the JetStream stream holding every published subject
const StreamName = "gamerooms_events"

// MessagePublisher is the transport the event publisher writes to
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// EventEnvelope wraps every event put on the wire
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// NATSEventPublisher forwards bus events to NATS subjects
type NATSEventPublisher struct {
	publisher MessagePublisher
	now       func() time.Time
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(publisher MessagePublisher) *NATSEventPublisher {
	return &NATSEventPublisher{
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Publish wraps the event in an envelope and sends it to its subject
func (p *NATSEventPublisher) Publish(ctx context.Context, event events.Event) error {
	subject := MapEventToSubject(event)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	envelope := EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     string(event.Type()),
		Timestamp:     p.now(),
		SourceService: "gamerooms",
		Payload:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.publisher.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Published event to NATS")

	return nil
}

// Forward subscribes the publisher to every event type on the bus.
// Publish failures are logged; the in-process flow never waits on NATS.
func (p *NATSEventPublisher) Forward(bus *events.Bus) {
	handler := func(ctx context.Context, event events.Event) {
		if err := p.Publish(ctx, event); err != nil {
			log.WithError(err).WithField("eventType", event.Type()).Warn("Failed to forward event to NATS")
		}
	}

	for _, eventType := range []events.EventType{
		events.EventTypeRoomOpened,
		events.EventTypeRoomClosed,
		events.EventTypeLockDenied,
		events.EventTypePointsCredited,
	} {
		bus.Subscribe(eventType, handler)
	}
}
