package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	pkgredis "github.com/angelmondragon/homequote-backend/pkg/redis"
)

type fakeMarketplaceService struct {
	calls   int
	lastReq types.MarketplaceQueryRequest
	resp    *types.MarketplaceQueryResponse
	err     error
}

func (f *fakeMarketplaceService) Query(_ context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type memCache struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemCache() *memCache {
	return &memCache{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) AnalyticsCacheKey(parts ...string) string {
	return pkgredis.Key(append([]string{"analytics"}, parts...)...)
}

var fixedNow = time.Date(2026, 3, 31, 12, 30, 45, 0, time.UTC)

func newTestService(fake *fakeMarketplaceService, cache ResultCache) *service {
	svc := newService(fake, cache, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestQueryDefaultsWindowAndCategory(t *testing.T) {
	fake := &fakeMarketplaceService{resp: &types.MarketplaceQueryResponse{ConversionRate: 0.4}}
	svc := newTestService(fake, nil)

	resp, err := svc.Query(context.Background(), types.MarketplaceQueryRequest{Category: "  Plumbing "})
	require.NoError(t, err)
	assert.Same(t, fake.resp, resp)

	assert.Equal(t, "plumbing", fake.lastReq.Category)
	assert.Equal(t, fixedNow.Truncate(time.Minute), fake.lastReq.End)
	assert.Equal(t, 30*24*time.Hour, fake.lastReq.End.Sub(fake.lastReq.Start))
}

func TestQueryServesRepeatsFromCache(t *testing.T) {
	fake := &fakeMarketplaceService{resp: &types.MarketplaceQueryResponse{
		TopCategories:  []types.LabelValue{{Label: "roofing", Value: 3}},
		ConversionRate: 0.25,
	}}
	cache := newMemCache()
	svc := newTestService(fake, cache)
	start := time.Date(2026, 3, 1, 0, 0, 10, 0, time.UTC)
	req := types.MarketplaceQueryRequest{Start: start, End: start.Add(72 * time.Hour)}

	_, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Query(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, 0.25, second.ConversionRate)
	assert.Equal(t, []types.LabelValue{{Label: "roofing", Value: 3}}, second.TopCategories)

	key := "hq:analytics:marketplace:all:2026-03-01T00:00:00Z:2026-03-04T00:00:00Z"
	assert.Contains(t, cache.values, key)
	assert.Equal(t, cacheTTL, cache.ttls[key])
}

func TestQueryFallsThroughOnCacheFailure(t *testing.T) {
	fake := &fakeMarketplaceService{resp: &types.MarketplaceQueryResponse{}}
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	svc := newTestService(fake, cache)

	_, err := svc.Query(context.Background(), types.MarketplaceQueryRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestQueryPropagatesErrorWithoutCaching(t *testing.T) {
	want := errors.New("query failed")
	fake := &fakeMarketplaceService{err: want}
	cache := newMemCache()
	svc := newTestService(fake, cache)

	resp, err := svc.Query(context.Background(), types.MarketplaceQueryRequest{})
	assert.ErrorIs(t, err, want)
	assert.Nil(t, resp)
	assert.Empty(t, cache.values)
}
