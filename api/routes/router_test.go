package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/homequote-backend/api/controllers"
	"github.com/angelmondragon/homequote-backend/internal/requirements"
	pkgAuth "github.com/angelmondragon/homequote-backend/pkg/auth"
	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
	"github.com/angelmondragon/homequote-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubRequirements struct {
	requirements.Service
	created int
}

func (s *stubRequirements) CreateRequirement(ctx context.Context, actor requirements.Actor, input requirements.CreateRequirementInput) (*requirements.RequirementDTO, error) {
	s.created++
	return &requirements.RequirementDTO{ID: uuid.New(), HomeownerID: actor.UserID, Status: enums.RequirementStatusOpen}, nil
}

func (s *stubRequirements) AdminOverview(ctx context.Context, actor requirements.Actor) (*requirements.OverviewDTO, error) {
	return &requirements.OverviewDTO{}, nil
}

func testConfig(env string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: env, CORSOrigins: "*"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "homequote", ExpirationMinutes: 10},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, reqs *stubRequirements) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRouter(cfg, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), Dependencies{
		Sessions:     stubSessionManager{},
		Readiness:    map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}},
		Gatherer:     reg,
		HTTPMetrics:  metrics.NewHTTPMetrics(reg),
		Requirements: reqs,
	})
}

func bearer(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig("dev"), &stubRequirements{})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/ready", "", "").Code)
}

func TestMetricsRouteExposesHTTPCounters(t *testing.T) {
	router := newTestRouter(t, testConfig("dev"), &stubRequirements{})
	serve(router, http.MethodGet, "/health/live", "", "")

	rec := serve(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, testConfig("dev"), &stubRequirements{})

	for _, path := range []string{"/api/v1/requirements", "/api/v1/me", "/api/v1/notifications", "/api/v1/admin/overview"} {
		rec := serve(router, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestCreateRequirementRoleGate(t *testing.T) {
	cfg := testConfig("dev")
	reqs := &stubRequirements{}
	router := newTestRouter(t, cfg, reqs)
	body := `{"title":"Fence","category":"Carpentry","location":"Reno","description":"40 ft"}`

	rec := serve(router, http.MethodPost, "/api/v1/requirements", bearer(t, cfg, enums.RoleShopOwner), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, reqs.created)

	rec = serve(router, http.MethodPost, "/api/v1/requirements", bearer(t, cfg, enums.RoleHomeowner), body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, reqs.created)
}

func TestQuotationRoutesRequireShopOwner(t *testing.T) {
	cfg := testConfig("dev")
	router := newTestRouter(t, cfg, &stubRequirements{})

	rec := serve(router, http.MethodGet, "/api/v1/quotations/mine", bearer(t, cfg, enums.RoleHomeowner), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	cfg := testConfig("dev")
	router := newTestRouter(t, cfg, &stubRequirements{})

	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/api/v1/admin/overview", bearer(t, cfg, enums.RoleHomeowner), "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/v1/admin/overview", bearer(t, cfg, enums.RoleAdmin), "").Code)
}

func TestAdminRegisterNotMountedInProd(t *testing.T) {
	router := newTestRouter(t, testConfig("prod"), &stubRequirements{})
	body := `{"email":"ops@example.com","password":"Sup3rSecret!","display_name":"Ops"}`

	rec := serve(router, http.MethodPost, "/api/admin/v1/auth/register", "", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
