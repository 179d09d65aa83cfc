// Package idempotency lets Pub/Sub consumers claim an event id before acting
// on it, so redelivered lifecycle events are handled once per consumer.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/homequote-backend/pkg/redis"
)

const defaultTTL = 7 * 24 * time.Hour

// Manager stores claims as `<namespace>:idempotency:evt:<consumer>:<event_id>`.
// The value records which instance claimed the event and when.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	owner string
	now   func() time.Time
}

// NewManager builds a claim manager. A zero ttl falls back to seven days.
func NewManager(store redis.IdempotencyStore, ttl time.Duration, owner string) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if ttl == 0 {
		ttl = defaultTTL
	}
	if strings.TrimSpace(owner) == "" {
		owner = "unknown"
	}
	return &Manager{store: store, ttl: ttl, owner: owner, now: time.Now}, nil
}

// Claim marks the event as taken by consumer. It returns false when another
// delivery already claimed it.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, m.owner+"@"+m.now().UTC().Format(time.RFC3339), m.ttl)
}

// Release drops a claim so the next delivery can retry a failed event.
func (m *Manager) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// ClaimedBy returns the owner marker of an existing claim, or "" when unclaimed.
func (m *Manager) ClaimedBy(ctx context.Context, consumer string, eventID uuid.UUID) (string, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return "", err
	}
	value, err := m.store.Get(ctx, key)
	if errors.Is(err, redislib.Nil) {
		return "", nil
	}
	return value, err
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	consumer = strings.TrimSpace(consumer)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
