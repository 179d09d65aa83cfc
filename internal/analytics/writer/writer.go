// Package writer streams marketplace analytics rows into BigQuery.
//
// Rows are written synchronously so the Pub/Sub message is only acked once
// its row is stored. Each row carries its event id as the insert id, which
// lets BigQuery drop duplicates from redeliveries and retries.
package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
)

// Config selects the target table and retry budget.
type Config struct {
	Table string
	Retry RetryPolicy
}

// RetryPolicy bounds retries of transient insert failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 250 * time.Millisecond
	}
	if p.MaximumBackoff < p.InitialBackoff {
		p.MaximumBackoff = max(2*time.Second, p.InitialBackoff)
	}
	return p
}

// delay returns the full-jitter backoff before attempt n (1-based).
func (p RetryPolicy) delay(n int) time.Duration {
	ceiling := p.InitialBackoff << (n - 1)
	if ceiling <= 0 || ceiling > p.MaximumBackoff {
		ceiling = p.MaximumBackoff
	}
	return time.Duration(rand.Int64N(int64(ceiling)) + 1)
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter inserts marketplace rows, retrying only the rows that failed.
type BigQueryWriter struct {
	client tableInserter
	table  string
	retry  RetryPolicy
	sleep  func(context.Context, time.Duration) error
}

// New builds a writer on top of the shared BigQuery client.
func New(client tableInserter, cfg Config) (*BigQueryWriter, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		return nil, errors.New("marketplace table is required")
	}
	return &BigQueryWriter{client: client, table: table, retry: cfg.Retry.withDefaults(), sleep: sleepCtx}, nil
}

// InsertMarketplace stores one lifecycle event row.
func (w *BigQueryWriter) InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error {
	return w.Insert(ctx, []types.MarketplaceEventRow{row})
}

// Insert stores rows. On a partial failure only the rejected rows are retried.
func (w *BigQueryWriter) Insert(ctx context.Context, rows []types.MarketplaceEventRow) error {
	pending := make([]*types.MarketplaceEventRow, len(rows))
	for i := range rows {
		pending[i] = &rows[i]
	}

	for attempt := 1; len(pending) > 0; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := make([]any, len(pending))
		for i, row := range pending {
			batch[i] = row
		}

		err := w.client.InsertRows(ctx, w.table, batch)
		if err == nil {
			return nil
		}
		if attempt >= w.retry.MaxAttempts || !retryable(err) {
			return fmt.Errorf("insert %d rows into %s: %w", len(pending), w.table, err)
		}
		pending = failedRows(pending, err)

		if err := w.sleep(ctx, w.retry.delay(attempt)); err != nil {
			return err
		}
	}
	return nil
}

// failedRows narrows pending to the rows named in a PutMultiError. Any other
// error means the whole request failed.
func failedRows(pending []*types.MarketplaceEventRow, err error) []*types.MarketplaceEventRow {
	var multi cbigquery.PutMultiError
	if !errors.As(err, &multi) || len(multi) == 0 {
		return pending
	}
	failed := make([]*types.MarketplaceEventRow, 0, len(multi))
	for _, rowErr := range multi {
		if rowErr.RowIndex >= 0 && rowErr.RowIndex < len(pending) {
			failed = append(failed, pending[rowErr.RowIndex])
		}
	}
	if len(failed) == 0 {
		return pending
	}
	return failed
}

func retryable(err error) bool {
	var multi cbigquery.PutMultiError
	if errors.As(err, &multi) {
		for _, rowErr := range multi {
			for _, inner := range rowErr.Errors {
				if !retryable(inner) {
					return false
				}
			}
		}
		return len(multi) > 0
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EncodeJSON prepares a payload for a BigQuery JSON column. Raw JSON passes
// through untouched and empty input becomes NULL.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
