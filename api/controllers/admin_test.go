package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/internal/requirements"
	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
)

type stubDLQLister struct {
	lastType  enums.OutboxEventType
	lastLimit int
	rows      []models.OutboxDLQ
	err       error
}

func (s *stubDLQLister) List(ctx context.Context, eventType enums.OutboxEventType, limit int) ([]models.OutboxDLQ, error) {
	s.lastType = eventType
	s.lastLimit = limit
	return s.rows, s.err
}

func TestAdminOverview(t *testing.T) {
	svc := &stubRequirementsService{
		adminOverviewFn: func(ctx context.Context, actor requirements.Actor) (*requirements.OverviewDTO, error) {
			if actor.Role != enums.RoleAdmin {
				t.Fatalf("unexpected role %s", actor.Role)
			}
			return &requirements.OverviewDTO{OpenRequirements: 4, TotalQuotations: 9}, nil
		},
	}

	req := withIdentity(newJSONRequest(http.MethodGet, "/api/v1/admin/overview", ""), uuid.New(), enums.RoleAdmin)
	rec := httptest.NewRecorder()
	AdminOverview(svc, testLogger()).ServeHTTP(rec, req)

	data := decodeData[requirements.OverviewDTO](t, rec)
	if data.OpenRequirements != 4 || data.TotalQuotations != 9 {
		t.Fatalf("unexpected overview %+v", data)
	}
}

func TestAdminListDLQ(t *testing.T) {
	repo := &stubDLQLister{rows: []models.OutboxDLQ{{
		ID:          uuid.New(),
		EventID:     uuid.New(),
		EventType:   enums.EventQuotationAccepted,
		ErrorReason: enums.OutboxDLQReasonMaxAttempts,
		Payload:     []byte(`{"ok":true}`),
	}}}

	rec := httptest.NewRecorder()
	AdminListDLQ(repo, testLogger()).ServeHTTP(rec, newJSONRequest(http.MethodGet, "/api/v1/admin/outbox/dlq?event_type=quotation_accepted&limit=5", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if repo.lastType != enums.EventQuotationAccepted || repo.lastLimit != 5 {
		t.Fatalf("unexpected list args %s %d", repo.lastType, repo.lastLimit)
	}
	data := decodeData[[]dlqEntry](t, rec)
	if len(data) != 1 || data[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected entries %+v", data)
	}
}

func TestAdminListDLQRejectsUnknownEventType(t *testing.T) {
	repo := &stubDLQLister{}
	rec := httptest.NewRecorder()
	AdminListDLQ(repo, testLogger()).ServeHTTP(rec, newJSONRequest(http.MethodGet, "/?event_type=bogus", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminListDLQStoreFailure(t *testing.T) {
	repo := &stubDLQLister{err: errors.New("db down")}
	rec := httptest.NewRecorder()
	AdminListDLQ(repo, testLogger()).ServeHTTP(rec, newJSONRequest(http.MethodGet, "/", ""))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if repo.lastLimit != 50 {
		t.Fatalf("expected default limit 50, got %d", repo.lastLimit)
	}
}
