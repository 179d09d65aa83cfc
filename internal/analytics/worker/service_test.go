package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/homequote-backend/internal/analytics/router"
	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
	"github.com/angelmondragon/homequote-backend/pkg/outbox"
)

type stubHandler struct {
	calls    int
	envelope types.Envelope
	err      error
	deadline bool
}

func (h *stubHandler) Handle(ctx context.Context, envelope types.Envelope) error {
	h.calls++
	h.envelope = envelope
	_, h.deadline = ctx.Deadline()
	return h.err
}

type stubClaims struct {
	duplicate bool
	claimErr  error
	claimed   []uuid.UUID
	released  []uuid.UUID
}

func (s *stubClaims) Claim(_ context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	s.claimed = append(s.claimed, eventID)
	return !s.duplicate, s.claimErr
}

func (s *stubClaims) Release(_ context.Context, consumer string, eventID uuid.UUID) error {
	s.released = append(s.released, eventID)
	return nil
}

func newTestService(handler Handler, claims *stubClaims) *Service {
	return &Service{
		handler: handler,
		claims:  claims,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}),
	}
}

func buildMessage(payload outbox.PayloadEnvelope, attrs map[string]string) *gcppubsub.Message {
	data, _ := json.Marshal(payload)
	return &gcppubsub.Message{ID: "msg-1", Data: data, Attributes: attrs}
}

func acceptedMessage() *gcppubsub.Message {
	return buildMessage(outbox.PayloadEnvelope{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"requirement_id":"abc"}`),
	}, map[string]string{
		"event_type":     "quotation_accepted",
		"aggregate_type": "requirement",
		"aggregate_id":   "abc-123",
	})
}

func TestEnvelopeFromMessage(t *testing.T) {
	actorID := uuid.New()
	stored := outbox.PayloadEnvelope{
		EventID:    "evt-1",
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Actor:      &outbox.ActorRef{UserID: actorID, Role: "shop_owner"},
		Data:       json.RawMessage(`{"quotation_id":"q-1"}`),
	}
	env, err := envelopeFromMessage(buildMessage(stored, map[string]string{
		"event_type":     "quotation_submitted",
		"aggregate_type": "quotation",
		"aggregate_id":   " q-1 ",
		"event_id":       "ignored-when-body-has-one",
	}))
	require.NoError(t, err)

	assert.Equal(t, enums.EventQuotationSubmitted, env.EventType)
	assert.Equal(t, enums.AggregateQuotation, env.AggregateType)
	assert.Equal(t, "q-1", env.AggregateID)
	assert.Equal(t, "evt-1", env.EventID)
	assert.Equal(t, stored.OccurredAt, env.OccurredAt)
	require.NotNil(t, env.Actor)
	assert.Equal(t, actorID, env.Actor.UserID)
}

func TestEnvelopeFromMessageFallsBackToAttributes(t *testing.T) {
	eventID := uuid.NewString()
	env, err := envelopeFromMessage(buildMessage(outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}, map[string]string{
		"event_type":     "requirement_created",
		"aggregate_type": "requirement",
		"aggregate_id":   "r-1",
		"event_id":       eventID,
		"created_at":     "2026-03-01T10:00:00Z",
	}))
	require.NoError(t, err)

	assert.Equal(t, eventID, env.EventID)
	assert.True(t, env.OccurredAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestEnvelopeFromMessageRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown event":  {"event_type": "order_created", "aggregate_type": "requirement", "aggregate_id": "r"},
		"unknown agg":    {"event_type": "requirement_created", "aggregate_type": "invoice", "aggregate_id": "r"},
		"missing agg id": {"event_type": "requirement_created", "aggregate_type": "requirement"},
	}
	for name, attrs := range cases {
		_, err := envelopeFromMessage(buildMessage(outbox.PayloadEnvelope{EventID: uuid.NewString()}, attrs))
		assert.Error(t, err, name)
	}
}

func TestProcessStoresClaimedEvent(t *testing.T) {
	handler, claims := &stubHandler{}, &stubClaims{}
	svc := newTestService(handler, claims)

	assert.Equal(t, ack, svc.process(context.Background(), acceptedMessage()))
	assert.Equal(t, 1, handler.calls)
	assert.True(t, handler.deadline, "handler runs under a deadline")
	assert.Len(t, claims.claimed, 1)
	assert.Empty(t, claims.released)
}

func TestProcessSkipsDuplicate(t *testing.T) {
	handler, claims := &stubHandler{}, &stubClaims{duplicate: true}
	svc := newTestService(handler, claims)

	assert.Equal(t, ack, svc.process(context.Background(), acceptedMessage()))
	assert.Zero(t, handler.calls)
}

func TestProcessReleasesClaimOnFailure(t *testing.T) {
	handler, claims := &stubHandler{err: errors.New("bigquery down")}, &stubClaims{}
	svc := newTestService(handler, claims)

	assert.Equal(t, nack, svc.process(context.Background(), acceptedMessage()))
	assert.Len(t, claims.released, 1)
}

func TestProcessNacksWhenClaimFails(t *testing.T) {
	handler, claims := &stubHandler{}, &stubClaims{claimErr: errors.New("redis down")}
	svc := newTestService(handler, claims)

	assert.Equal(t, nack, svc.process(context.Background(), acceptedMessage()))
	assert.Zero(t, handler.calls)
}

func TestProcessAcksUnusableMessages(t *testing.T) {
	handler, claims := &stubHandler{}, &stubClaims{}
	svc := newTestService(handler, claims)

	assert.Equal(t, ack, svc.process(context.Background(), &gcppubsub.Message{Data: []byte("not json")}))
	assert.Empty(t, claims.claimed)

	badID := buildMessage(outbox.PayloadEnvelope{EventID: "not-a-uuid"}, map[string]string{
		"event_type": "requirement_created", "aggregate_type": "requirement", "aggregate_id": "r",
	})
	assert.Equal(t, ack, svc.process(context.Background(), badID))
	assert.Zero(t, handler.calls)
}

func TestProcessAcksUntrackedEvent(t *testing.T) {
	handler, claims := &stubHandler{err: router.ErrUnsupportedEventType}, &stubClaims{}
	svc := newTestService(handler, claims)

	assert.Equal(t, ack, svc.process(context.Background(), acceptedMessage()))
	assert.Empty(t, claims.released)
}
