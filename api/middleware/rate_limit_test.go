package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
)

type countingStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newCountingStore() *countingStore {
	return &countingStore{counts: map[string]int64{}}
}

func (s *countingStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func (s *countingStore) RateLimitKey(parts ...string) string {
	return "rl:" + strings.Join(parts, ":")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimitEmailRuleKeepsBody(t *testing.T) {
	policy := NewRateLimitPolicy("login", time.Minute, PerEmail(2))
	handler := RateLimit(policy, newCountingStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"email":"owner@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"owner@example.com","password":"pw"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitEmailRuleBlocksCaseInsensitive(t *testing.T) {
	policy := NewRateLimitPolicy("login", time.Minute, PerEmail(1))
	handler := RateLimit(policy, newCountingStore(), nil)(okHandler())

	codes := make([]int, 0, 2)
	for _, email := range []string{"Owner@Example.com", "owner@example.com "} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitIPRuleUsesForwardedHeader(t *testing.T) {
	store := newCountingStore()
	policy := NewRateLimitPolicy("register", time.Minute, PerIP(1))
	handler := RateLimit(policy, store, nil)(okHandler())

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
		req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
		req.RemoteAddr = "10.0.0.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equalf(t, want, rec.Code, "request %d", i)
		if want == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, int64(2), store.counts["rl:register:ip:9.9.9.9"])
}

func TestRateLimitUserRuleSeparatesCallers(t *testing.T) {
	policy := NewRateLimitPolicy("quotations", time.Hour, PerUser(1))
	handler := RateLimit(policy, newCountingStore(), nil)(okHandler())

	first, second := uuid.New(), uuid.New()
	send := func(id uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/requirements/x/quotations", nil)
		req = req.WithContext(WithIdentity(req.Context(), id, enums.RoleShopOwner))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(first))
	assert.Equal(t, http.StatusOK, send(second))
	assert.Equal(t, http.StatusTooManyRequests, send(first))
}

func TestRateLimitStoreFailureIsDependencyError(t *testing.T) {
	store := newCountingStore()
	store.err = pkgerrors.New(pkgerrors.CodeDependency, "redis down")
	handler := RateLimit(NewRateLimitPolicy("login", time.Minute, PerIP(5)), store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	handler := RateLimit(NewRateLimitPolicy("noop", time.Minute, PerIP(0)), newCountingStore(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
