package writer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
)

type insertCall struct {
	table    string
	eventIDs []string
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	call := insertCall{table: table}
	for _, row := range rows {
		call.eventIDs = append(call.eventIDs, row.(*types.MarketplaceEventRow).EventID)
	}
	f.calls = append(f.calls, call)
	if n := len(f.calls) - 1; n < len(f.responses) {
		return f.responses[n]
	}
	return nil
}

func newTestWriter(t *testing.T) (*BigQueryWriter, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	w, err := New(fake, Config{Table: "marketplace_events"})
	require.NoError(t, err)
	w.sleep = func(context.Context, time.Duration) error { return nil }
	return w, fake
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, Config{Table: "t"})
	assert.Error(t, err)
	_, err = New(&fakeInserter{}, Config{Table: " "})
	assert.Error(t, err)
}

func TestInsertRetriesTransientFailure(t *testing.T) {
	w, fake := newTestWriter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusServiceUnavailable}}

	require.NoError(t, w.InsertMarketplace(context.Background(), types.MarketplaceEventRow{EventID: "evt-1"}))

	require.Len(t, fake.calls, 2)
	assert.Equal(t, "marketplace_events", fake.calls[1].table)
}

func TestInsertStopsOnPermanentFailure(t *testing.T) {
	w, fake := newTestWriter(t)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	err := w.InsertMarketplace(context.Background(), types.MarketplaceEventRow{EventID: "evt-1"})

	require.Error(t, err)
	assert.Len(t, fake.calls, 1)
}

func TestInsertGivesUpAfterMaxAttempts(t *testing.T) {
	w, fake := newTestWriter(t)
	unavailable := status.Error(codes.Unavailable, "down")
	fake.responses = []error{unavailable, unavailable, unavailable, unavailable}

	err := w.InsertMarketplace(context.Background(), types.MarketplaceEventRow{EventID: "evt-1"})

	require.Error(t, err)
	assert.Len(t, fake.calls, 3)
}

func TestInsertRetriesOnlyRejectedRows(t *testing.T) {
	w, fake := newTestWriter(t)
	fake.responses = []error{cbigquery.PutMultiError{
		{RowIndex: 1, Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusServiceUnavailable}}},
	}}

	rows := []types.MarketplaceEventRow{{EventID: "a"}, {EventID: "b"}, {EventID: "c"}}
	require.NoError(t, w.Insert(context.Background(), rows))

	require.Len(t, fake.calls, 2)
	assert.Equal(t, []string{"a", "b", "c"}, fake.calls[0].eventIDs)
	assert.Equal(t, []string{"b"}, fake.calls[1].eventIDs)
}

func TestInsertHonoursCancelledContext(t *testing.T) {
	w, fake := newTestWriter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.InsertMarketplace(ctx, types.MarketplaceEventRow{EventID: "evt-1"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.calls)
}

func TestRetryable(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"plain":            {errors.New("boom"), false},
		"http 429":         {&googleapi.Error{Code: http.StatusTooManyRequests}, true},
		"http 404":         {&googleapi.Error{Code: http.StatusNotFound}, false},
		"grpc unavailable": {status.Error(codes.Unavailable, "down"), true},
		"grpc invalid":     {status.Error(codes.InvalidArgument, "bad"), false},
		"row invalid": {cbigquery.PutMultiError{
			{RowIndex: 0, Errors: cbigquery.MultiError{&googleapi.Error{Code: http.StatusBadRequest}}},
		}, false},
	}
	for name, tc := range cases {
		assert.Equal(t, tc.want, retryable(tc.err), name)
	}
}

func TestRetryDelayStaysWithinCeiling(t *testing.T) {
	policy := RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaximumBackoff: 300 * time.Millisecond}.withDefaults()
	for attempt := 1; attempt <= 6; attempt++ {
		d := policy.delay(attempt)
		assert.Positive(t, d)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestEncodeJSON(t *testing.T) {
	nj, err := EncodeJSON(map[string]any{"category": "roofing"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"roofing"}`, nj.JSONVal)

	nj, err = EncodeJSON(nil)
	require.NoError(t, err)
	assert.False(t, nj.Valid)

	nj, err = EncodeJSON(json.RawMessage(`{"amount":"120.50"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"amount":"120.50"}`, nj.JSONVal)

	nj, err = EncodeJSON([]byte{})
	require.NoError(t, err)
	assert.False(t, nj.Valid)
}
