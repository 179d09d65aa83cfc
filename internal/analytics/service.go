package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/homequote-backend/internal/analytics/query"
	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	"github.com/angelmondragon/homequote-backend/pkg/bigquery"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

const (
	defaultWindow = 30 * 24 * time.Hour
	cacheTTL      = 5 * time.Minute
)

// Service provides admin analytics reports based on marketplace events.
type Service interface {
	Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error)
}

// ResultCache holds rendered dashboards for a short time. Nil disables caching.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	AnalyticsCacheKey(parts ...string) string
}

type service struct {
	marketplace query.MarketplaceService
	cache       ResultCache
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds an analytics service backed by BigQuery.
func NewService(client *bigquery.Client, project, dataset, table string, cache ResultCache, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	marketplace, err := query.NewMarketplaceService(client, project, dataset, table)
	if err != nil {
		return nil, err
	}
	return newService(marketplace, cache, logg), nil
}

func newService(marketplace query.MarketplaceService, cache ResultCache, logg *logger.Logger) *service {
	return &service{marketplace: marketplace, cache: cache, logg: logg, now: time.Now}
}

// Query fills a missing window with the trailing 30 days and lowercases the
// category before asking BigQuery. Cache failures fall through to a live query.
func (s *service) Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	req = s.normalize(req)
	if cached, ok := s.lookup(ctx, req); ok {
		return cached, nil
	}
	resp, err := s.marketplace.Query(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store(ctx, req, resp)
	return resp, nil
}

func (s *service) normalize(req types.MarketplaceQueryRequest) types.MarketplaceQueryRequest {
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.End.IsZero() {
		req.End = s.now().UTC()
	}
	if req.Start.IsZero() {
		req.Start = req.End.Add(-defaultWindow)
	}
	// Minute granularity lets repeated dashboard loads share a cache entry.
	req.Start = req.Start.UTC().Truncate(time.Minute)
	req.End = req.End.UTC().Truncate(time.Minute)
	return req
}

func (s *service) cacheKey(req types.MarketplaceQueryRequest) string {
	category := req.Category
	if category == "" {
		category = "all"
	}
	return s.cache.AnalyticsCacheKey("marketplace", category,
		req.Start.Format(time.RFC3339), req.End.Format(time.RFC3339))
}

func (s *service) lookup(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(req))
	if err != nil {
		if !errors.Is(err, redislib.Nil) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.cache_read_failed")
		}
		return nil, false
	}
	var resp types.MarketplaceQueryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (s *service) store(ctx context.Context, req types.MarketplaceQueryRequest, resp *types.MarketplaceQueryResponse) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(req), string(payload), cacheTTL); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.cache_write_failed")
	}
}
