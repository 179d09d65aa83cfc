package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

var (
	ErrUnsupportedEventType = errors.New("unsupported analytics event type")
	ErrEmptyPayload         = errors.New("empty analytics payload")
)

// Writer delivers BigQuery rows produced by the router.
type Writer interface {
	InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error
}

// route decodes one event type's payload and turns it into a row.
type route func(envelope types.Envelope) (types.MarketplaceEventRow, error)

// Router maps each lifecycle event type to a marketplace_events row.
type Router struct {
	writer Writer
	routes map[enums.OutboxEventType]route
	logg   *logger.Logger
}

func NewRouter(writer Writer, logg *logger.Logger) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	return &Router{
		writer: writer,
		logg:   logg,
		routes: map[enums.OutboxEventType]route{
			enums.EventRequirementCreated: decodeAs(requirementCreatedRow),
			enums.EventQuotationSubmitted: decodeAs(quotationSubmittedRow),
			enums.EventQuotationUpdated:   decodeAs(quotationUpdatedRow),
			enums.EventQuotationAccepted:  decodeAs(quotationAcceptedRow),
		},
	}, nil
}

func decodeAs[T any](build func(types.Envelope, T) types.MarketplaceEventRow) route {
	return func(envelope types.Envelope) (types.MarketplaceEventRow, error) {
		var event T
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return types.MarketplaceEventRow{}, fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
		}
		row := build(envelope, event)
		if err := attachPayload(&row, event); err != nil {
			return types.MarketplaceEventRow{}, err
		}
		return row, nil
	}
}

// Handle writes the row for envelope. Unsupported types are reported with
// ErrUnsupportedEventType so the caller can ack and drop them.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	build, ok := r.routes[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyPayload, envelope.EventType)
	}
	row, err := build(envelope)
	if err != nil {
		return err
	}

	logCtx := r.logg.WithFields(ctx, map[string]any{
		"event_id":       row.EventID,
		"event_type":     row.EventType,
		"requirement_id": row.RequirementID,
		"quotation_id":   row.QuotationID,
	})
	if err := r.writer.InsertMarketplace(logCtx, row); err != nil {
		r.logg.Error(logCtx, "analytics.insert_failed", err)
		return err
	}
	r.logg.Debug(logCtx, "analytics.row_inserted")
	return nil
}
