package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/payloads"
)

// ErrPermanent matches any error wrapped by Permanent.
var ErrPermanent = errors.New("permanent event failure")

type permanentError struct{ err error }

func (e *permanentError) Error() string        { return e.err.Error() }
func (e *permanentError) Unwrap() error        { return e.err }
func (e *permanentError) Is(target error) bool { return target == ErrPermanent }

// Permanent marks err as one that no retry can fix. The relay dead-letters
// such rows; consumers ack such messages.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool { return errors.Is(err, ErrPermanent) }

// EventDescriptor ties an event type to the aggregate it belongs to, the topic
// it ships on and the typed payload it carries.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is a validated envelope with its payload decoded to a *payloads type.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

func describe[T any](eventType enums.OutboxEventType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: eventType.Aggregate(),
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, err
			}
			return &v, nil
		},
	}
}

// NewEventRegistry routes every lifecycle event to the configured lifecycle topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := cfg.LifecycleTopic
	if topic == "" {
		return nil, errors.New("lifecycle topic is required")
	}
	descriptors := []EventDescriptor{
		describe[payloads.RequirementCreatedEvent](enums.EventRequirementCreated, topic),
		describe[payloads.QuotationSubmittedEvent](enums.EventQuotationSubmitted, topic),
		describe[payloads.QuotationUpdatedEvent](enums.EventQuotationUpdated, topic),
		describe[payloads.QuotationAcceptedEvent](enums.EventQuotationAccepted, topic),
	}
	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

func (r *EventRegistry) lookup(eventType enums.OutboxEventType) (EventDescriptor, error) {
	desc, ok := r.entries[eventType]
	if !ok {
		return EventDescriptor{}, Permanent(fmt.Errorf("unsupported event type %q", eventType))
	}
	return desc, nil
}

// Resolve validates an outbox row before it is published.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, err := r.lookup(event.EventType)
	if err != nil {
		return nil, err
	}
	if desc.AggregateType != event.AggregateType {
		return nil, Permanent(fmt.Errorf("%s belongs to %s aggregates, row says %s", event.EventType, desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, Permanent(errors.New("missing aggregate_id"))
	}
	return desc.resolve(event.Payload)
}

// Decode resolves a message pulled from the transport, where the event type
// travels as the event_type attribute.
func (r *EventRegistry) Decode(eventType string, data []byte) (*ResolvedEvent, error) {
	parsed, err := enums.ParseOutboxEventType(eventType)
	if err != nil {
		return nil, Permanent(err)
	}
	desc, err := r.lookup(parsed)
	if err != nil {
		return nil, err
	}
	return desc.resolve(data)
}

func (d EventDescriptor) resolve(raw []byte) (*ResolvedEvent, error) {
	envelope, err := outbox.DecodeEnvelope(raw)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode envelope: %w", err))
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("%s envelope has no data", d.EventType))
	}
	payload, err := d.decode(data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s payload: %w", d.EventType, err))
	}
	return &ResolvedEvent{Descriptor: d, Envelope: envelope, Payload: payload}, nil
}
