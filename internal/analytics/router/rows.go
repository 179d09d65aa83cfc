package router

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/homequote-backend/internal/analytics/writer"
	"github.com/angelmondragon/homequote-backend/pkg/outbox/payloads"
)

// baseRow copies the envelope identity and actor onto a fresh row.
func baseRow(envelope types.Envelope) types.MarketplaceEventRow {
	row := types.MarketplaceEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
	}
	if envelope.Actor != nil {
		row.ActorID = idString(envelope.Actor.UserID)
		row.ActorRole = envelope.Actor.Role
	}
	return row
}

func attachPayload(row *types.MarketplaceEventRow, event any) error {
	encoded, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return fmt.Errorf("encode %s payload json: %w", row.EventType, err)
	}
	row.Payload = encoded
	return nil
}

func requirementCreatedRow(envelope types.Envelope, e payloads.RequirementCreatedEvent) types.MarketplaceEventRow {
	row := baseRow(envelope)
	row.RequirementID = idString(e.RequirementID)
	row.HomeownerID = idString(e.HomeownerID)
	row.Category = e.Category
	row.Location = e.Location
	return row
}

// quotationRow fills the columns every quotation event shares.
func quotationRow(envelope types.Envelope, requirementID, quotationID, homeownerID, shopOwnerID uuid.UUID, category string, amount decimal.Decimal) types.MarketplaceEventRow {
	row := baseRow(envelope)
	row.RequirementID = idString(requirementID)
	row.QuotationID = idString(quotationID)
	row.HomeownerID = idString(homeownerID)
	row.ShopOwnerID = idString(shopOwnerID)
	row.Category = category
	row.Amount = amountRat(amount)
	return row
}

func quotationSubmittedRow(envelope types.Envelope, e payloads.QuotationSubmittedEvent) types.MarketplaceEventRow {
	return quotationRow(envelope, e.RequirementID, e.QuotationID, e.HomeownerID, e.ShopOwnerID, e.Category, e.Amount)
}

func quotationUpdatedRow(envelope types.Envelope, e payloads.QuotationUpdatedEvent) types.MarketplaceEventRow {
	return quotationRow(envelope, e.RequirementID, e.QuotationID, e.HomeownerID, e.ShopOwnerID, e.Category, e.Amount)
}

// quotationAcceptedRow dates the row at the purchase, not at publish time.
func quotationAcceptedRow(envelope types.Envelope, e payloads.QuotationAcceptedEvent) types.MarketplaceEventRow {
	row := quotationRow(envelope, e.RequirementID, e.QuotationID, e.HomeownerID, e.ShopOwnerID, e.Category, e.Amount)
	if !e.PurchasedAt.IsZero() {
		row.OccurredAt = e.PurchasedAt.UTC()
	}
	return row
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func amountRat(amount decimal.Decimal) *big.Rat {
	return amount.Rat()
}
