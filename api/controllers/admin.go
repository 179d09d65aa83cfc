package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/api/responses"
	"github.com/angelmondragon/homequote-backend/api/validators"
	"github.com/angelmondragon/homequote-backend/internal/requirements"
	"github.com/angelmondragon/homequote-backend/pkg/db/models"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

type dlqLister interface {
	List(ctx context.Context, eventType enums.OutboxEventType, limit int) ([]models.OutboxDLQ, error)
}

type dlqEntry struct {
	ID            uuid.UUID                  `json:"id"`
	EventID       uuid.UUID                  `json:"event_id"`
	EventType     enums.OutboxEventType      `json:"event_type"`
	AggregateType enums.OutboxAggregateType  `json:"aggregate_type"`
	AggregateID   uuid.UUID                  `json:"aggregate_id"`
	Payload       json.RawMessage            `json:"payload"`
	ErrorReason   enums.OutboxDLQErrorReason `json:"error_reason"`
	ErrorMessage  *string                    `json:"error_message,omitempty"`
	AttemptCount  int                        `json:"attempt_count"`
	FailedAt      time.Time                  `json:"failed_at"`
}

// AdminOverview returns marketplace counters and the open requirement board.
func AdminOverview(svc requirements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requirementActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.AdminOverview(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// AdminListDLQ returns dead-lettered outbox events, newest first.
func AdminListDLQ(repo dlqLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dlq repository unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var eventType enums.OutboxEventType
		if raw := strings.TrimSpace(r.URL.Query().Get("event_type")); raw != "" {
			parsed, err := enums.ParseOutboxEventType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Validation("event_type", "is not a known event type"))
				return
			}
			eventType = parsed
		}

		rows, err := repo.List(r.Context(), eventType, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dlq"))
			return
		}

		items := make([]dlqEntry, 0, len(rows))
		for _, row := range rows {
			items = append(items, dlqEntry{
				ID:            row.ID,
				EventID:       row.EventID,
				EventType:     row.EventType,
				AggregateType: row.AggregateType,
				AggregateID:   row.AggregateID,
				Payload:       row.Payload,
				ErrorReason:   row.ErrorReason,
				ErrorMessage:  row.ErrorMessage,
				AttemptCount:  row.AttemptCount,
				FailedAt:      row.FailedAt,
			})
		}
		responses.WriteSuccess(w, items)
	}
}
