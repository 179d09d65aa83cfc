package types

import (
	"math/big"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// MarketplaceEventRow mirrors the marketplace_events BigQuery schema. Nullable
// columns are empty strings or a nil Amount.
type MarketplaceEventRow struct {
	EventID       string
	EventType     string
	OccurredAt    time.Time
	RequirementID string
	QuotationID   string
	HomeownerID   string
	ShopOwnerID   string
	ActorID       string
	ActorRole     string
	Category      string
	Location      string
	Amount        *big.Rat
	Payload       cbigquery.NullJSON
}

// Save implements bigquery.ValueSaver. The event id doubles as the insert id so
// redelivered messages are deduplicated by the streaming API.
func (r *MarketplaceEventRow) Save() (map[string]cbigquery.Value, string, error) {
	values := map[string]cbigquery.Value{
		"event_id":       r.EventID,
		"event_type":     r.EventType,
		"occurred_at":    r.OccurredAt,
		"requirement_id": nullable(r.RequirementID),
		"quotation_id":   nullable(r.QuotationID),
		"homeowner_id":   nullable(r.HomeownerID),
		"shop_owner_id":  nullable(r.ShopOwnerID),
		"actor_id":       nullable(r.ActorID),
		"actor_role":     nullable(r.ActorRole),
		"category":       nullable(r.Category),
		"location":       nullable(r.Location),
		"amount":         nil,
		"payload":        nil,
	}
	if r.Amount != nil {
		values["amount"] = r.Amount
	}
	if r.Payload.Valid {
		values["payload"] = r.Payload.JSONVal
	}
	return values, r.EventID, nil
}

func nullable(value string) cbigquery.Value {
	if value == "" {
		return nil
	}
	return value
}
