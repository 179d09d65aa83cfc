// Package worker feeds lifecycle events from Pub/Sub into the analytics router.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/internal/analytics/router"
	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
)

const (
	consumerName   = "analytics"
	handleDeadline = 30 * time.Second
)

// Handler stores one analytics envelope.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	return fn(ctx, envelope)
}

type claimer interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// disposition is what happens to a Pub/Sub message after processing.
type disposition int

const (
	ack disposition = iota
	nack
)

// Service receives analytics messages and acks each one once its row is stored
// or it is known to be unusable.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	claims       claimer
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, claims claimer, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case claims == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{subscription: subscription, handler: handler, claims: claims, logg: logg}, nil
}

// Run blocks until ctx is cancelled or the subscription fails.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) disposition {
	logCtx := s.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := envelopeFromMessage(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "analytics.envelope.invalid")
		return ack
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":       envelope.EventID,
		"event_type":     envelope.EventType,
		"aggregate_type": envelope.AggregateType,
		"aggregate_id":   envelope.AggregateID,
	})

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(logCtx, "analytics.event_id.invalid")
		return ack
	}

	claimed, err := s.claims.Claim(logCtx, consumerName, eventID)
	if err != nil {
		s.logg.Error(logCtx, "analytics.claim.failed", err)
		return nack
	}
	if !claimed {
		s.logg.Info(logCtx, "analytics.event.duplicate")
		return ack
	}

	handleCtx, cancel := context.WithTimeout(logCtx, handleDeadline)
	defer cancel()
	err = s.handler.Handle(handleCtx, *envelope)
	switch {
	case err == nil:
		s.logg.Info(logCtx, "analytics.event.stored")
		return ack
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Warn(logCtx, "analytics.event.untracked")
		return ack
	default:
		s.logg.Error(logCtx, "analytics.event.failed", err)
		if relErr := s.claims.Release(logCtx, consumerName, eventID); relErr != nil {
			s.logg.Error(logCtx, "analytics.claim.release_failed", relErr)
		}
		return nack
	}
}

// envelopeFromMessage merges the stored outbox envelope with the message
// attributes set by the publisher. The body wins where both carry a value.
func envelopeFromMessage(msg *gcppubsub.Message) (*types.Envelope, error) {
	stored, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}
	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr(outbox.AttrEventType))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr(outbox.AttrAggregateType))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attr(outbox.AttrAggregateID)
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	eventID := firstNonEmpty(strings.TrimSpace(stored.EventID), attr(outbox.AttrEventID))
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		occurredAt, _ = time.Parse(time.RFC3339Nano, attr(outbox.AttrCreatedAt))
	}

	return &types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Payload:       stored.Data,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
