package idempotency

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "hq:idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func TestClaimIsExclusivePerConsumer(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, time.Hour, "worker-1")
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	first, err := manager.Claim(ctx, "lifecycle-notifications", eventID)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := manager.Claim(ctx, "lifecycle-notifications", eventID)
	require.NoError(t, err)
	assert.False(t, again)

	other, err := manager.Claim(ctx, "analytics", eventID)
	require.NoError(t, err)
	assert.True(t, other, "consumers claim independently")

	key := "hq:idempotency:evt:lifecycle-notifications:" + eventID.String()
	assert.Equal(t, time.Hour, store.ttls[key])
	assert.True(t, strings.HasPrefix(store.values[key], "worker-1@"))
}

func TestReleaseAllowsRetry(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Hour, "worker-1")
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = manager.Claim(ctx, "analytics", eventID)
	require.NoError(t, err)
	require.NoError(t, manager.Release(ctx, "analytics", eventID))

	claimed, err := manager.Claim(ctx, "analytics", eventID)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimedBy(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Hour, "cron-2")
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	owner, err := manager.ClaimedBy(ctx, "analytics", eventID)
	require.NoError(t, err)
	assert.Empty(t, owner)

	_, err = manager.Claim(ctx, "analytics", eventID)
	require.NoError(t, err)
	owner, err = manager.ClaimedBy(ctx, "analytics", eventID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(owner, "cron-2@"))
}

func TestClaimValidatesInput(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, defaultTTL, manager.ttl)

	_, err = manager.Claim(context.Background(), " ", uuid.New())
	assert.Error(t, err)
	_, err = manager.Claim(context.Background(), "analytics", uuid.Nil)
	assert.Error(t, err)

	_, err = NewManager(nil, time.Hour, "x")
	assert.Error(t, err)
	_, err = NewManager(newMemoryStore(), -time.Second, "x")
	assert.Error(t, err)
}

func TestClaimSurfacesStoreErrors(t *testing.T) {
	store := newMemoryStore()
	store.err = errors.New("redis down")
	manager, err := NewManager(store, time.Hour, "w")
	require.NoError(t, err)

	_, err = manager.Claim(context.Background(), "analytics", uuid.New())
	assert.Error(t, err)
}
