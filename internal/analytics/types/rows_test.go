package types

import (
	"math/big"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

func TestMarketplaceEventRowSaveUsesEventIDAsInsertID(t *testing.T) {
	row := &MarketplaceEventRow{
		EventID:       "evt-1",
		EventType:     "quotation_accepted",
		OccurredAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RequirementID: "req-1",
		Amount:        big.NewRat(25050, 100),
		Payload:       cbigquery.NullJSON{Valid: true, JSONVal: `{"a":1}`},
	}

	values, insertID, err := row.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if insertID != "evt-1" {
		t.Fatalf("expected event id as insert id, got %q", insertID)
	}
	if values["requirement_id"] != "req-1" {
		t.Fatalf("unexpected requirement_id %v", values["requirement_id"])
	}
	if values["quotation_id"] != nil {
		t.Fatalf("empty quotation id should be null, got %v", values["quotation_id"])
	}
	amount, ok := values["amount"].(*big.Rat)
	if !ok || amount.FloatString(2) != "250.50" {
		t.Fatalf("unexpected amount %v", values["amount"])
	}
	if values["payload"] != `{"a":1}` {
		t.Fatalf("unexpected payload %v", values["payload"])
	}
}

func TestMarketplaceEventRowSaveNullAmount(t *testing.T) {
	values, _, err := (&MarketplaceEventRow{EventID: "evt-2", EventType: "requirement_created"}).Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if values["amount"] != nil || values["payload"] != nil {
		t.Fatalf("expected null amount and payload, got %v %v", values["amount"], values["payload"])
	}
}
