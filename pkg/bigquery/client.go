package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	ErrNotConfigured = errors.New("bigquery is not configured")
	errNoClient      = errors.New("bigquery client not initialized")
)

// Client owns the analytics dataset: the marketplace events table is
// checked (or created) on startup, rows are streamed into it and the admin
// analytics queries read from it.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	events  string
	logg    *logger.Logger
}

// NewClient connects to BigQuery and makes sure the events table is usable.
// A missing table is created when cfg.AutoCreateTables is set.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	datasetID := strings.TrimSpace(cfg.Dataset)
	events := strings.TrimSpace(cfg.MarketplaceEventsTable)
	if project == "" || datasetID == "" || events == "" {
		return nil, fmt.Errorf("%w: project, dataset and events table are required", ErrNotConfigured)
	}

	bq, err := bigquery.NewClient(ctx, project, credentialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("open bigquery: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(datasetID), events: events, logg: logg}

	checkCtx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	if err := c.ensureEventsTable(checkCtx, cfg.AutoCreateTables); err != nil {
		_ = bq.Close()
		return nil, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"dataset": datasetID,
		"table":   events,
	}), "bigquery.ready")
	return c, nil
}

func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

func (c *Client) ensureEventsTable(ctx context.Context, autoCreate bool) error {
	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q not found", c.dataset.DatasetID)
		}
		return fmt.Errorf("read dataset %q: %w", c.dataset.DatasetID, err)
	}

	table := c.dataset.Table(c.events)
	_, err := table.Metadata(ctx)
	switch {
	case err == nil:
		return nil
	case !isNotFound(err):
		return fmt.Errorf("read table %q: %w", c.events, err)
	case !autoCreate:
		return fmt.Errorf("table %q not found", c.events)
	}

	if err := table.Create(ctx, eventsTableMetadata()); err != nil {
		return fmt.Errorf("create table %q: %w", c.events, err)
	}
	c.logg.Info(c.logg.WithField(ctx, "table", c.events), "bigquery.table_created")
	return nil
}

// eventsTableMetadata partitions by day of the event and clusters on the
// columns the admin dashboard filters by.
func eventsTableMetadata() *bigquery.TableMetadata {
	return &bigquery.TableMetadata{
		Schema: MarketplaceEventsSchema(),
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "occurred_at",
		},
		Clustering: &bigquery.Clustering{Fields: []string{"event_type", "category"}},
	}
}

// Ping reads dataset metadata. It does not touch the events table.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNoClient
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()
	_, err := c.dataset.Metadata(ctx)
	return err
}

// InsertRows streams rows into table. Partial failures come back as
// bigquery.PutMultiError so callers can retry just the rejected rows.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errNoClient
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errors.New("table name is required")
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

// Query runs a parameterised statement and returns its row iterator.
func (c *Client) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	if c == nil || c.bq == nil {
		return nil, errNoClient
	}
	if strings.TrimSpace(sql) == "" {
		return nil, errors.New("query is empty")
	}
	q := c.bq.Query(sql)
	q.Parameters = params
	return q.Read(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
