package bigquery

import "cloud.google.com/go/bigquery"

// MarketplaceEventsSchema describes one row per lifecycle event.
func MarketplaceEventsSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "event_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "event_type", Type: bigquery.StringFieldType, Required: true},
		{Name: "occurred_at", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "requirement_id", Type: bigquery.StringFieldType},
		{Name: "quotation_id", Type: bigquery.StringFieldType},
		{Name: "homeowner_id", Type: bigquery.StringFieldType},
		{Name: "shop_owner_id", Type: bigquery.StringFieldType},
		{Name: "actor_id", Type: bigquery.StringFieldType},
		{Name: "actor_role", Type: bigquery.StringFieldType},
		{Name: "category", Type: bigquery.StringFieldType},
		{Name: "location", Type: bigquery.StringFieldType},
		{Name: "amount", Type: bigquery.NumericFieldType},
		{Name: "payload", Type: bigquery.JSONFieldType},
	}
}
