package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/homequote-backend/pkg/config"
)

func TestNewClientRequiresConfiguration(t *testing.T) {
	cases := map[string]struct {
		gcp config.GCPConfig
		bq  config.BigQueryConfig
	}{
		"no project": {bq: config.BigQueryConfig{Dataset: "hq", MarketplaceEventsTable: "events"}},
		"no dataset": {gcp: config.GCPConfig{ProjectID: "p"}, bq: config.BigQueryConfig{MarketplaceEventsTable: "events"}},
		"no table":   {gcp: config.GCPConfig{ProjectID: "p"}, bq: config.BigQueryConfig{Dataset: "hq", MarketplaceEventsTable: "  "}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tc.gcp, tc.bq, nil)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestCredentialOptions(t *testing.T) {
	assert.Len(t, credentialOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Len(t, credentialOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Empty(t, credentialOptions(config.GCPConfig{}))
}

func TestEventsTableMetadata(t *testing.T) {
	meta := eventsTableMetadata()

	require.NotNil(t, meta.TimePartitioning)
	assert.Equal(t, "occurred_at", meta.TimePartitioning.Field)
	assert.Equal(t, []string{"event_type", "category"}, meta.Clustering.Fields)

	byName := map[string]*bigquery.FieldSchema{}
	for _, field := range meta.Schema {
		byName[field.Name] = field
	}
	require.Contains(t, byName, "event_id")
	assert.True(t, byName["event_id"].Required)
	assert.Equal(t, bigquery.NumericFieldType, byName["amount"].Type)
	assert.Equal(t, bigquery.TimestampFieldType, byName["occurred_at"].Type)
	assert.Equal(t, bigquery.JSONFieldType, byName["payload"].Type)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})))
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
	assert.False(t, isNotFound(errors.New("plain")))
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	ctx := context.Background()

	assert.ErrorIs(t, c.Ping(ctx), errNoClient)
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, (&Client{}).InsertRows(ctx, "events", []any{1}), errNoClient)
	_, err := (&Client{}).Query(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, errNoClient)
}
