package query

import (
	"context"
	"errors"
	"math/big"
	"reflect"
	"strings"
	"testing"
	"time"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
)

type fakeReader struct {
	rows []map[string]any
}

func (f *fakeReader) Next(dst any) error {
	if len(f.rows) == 0 {
		return iterator.Done
	}
	row := f.rows[0]
	f.rows = f.rows[1:]
	v := reflect.ValueOf(dst).Elem()
	for name, value := range row {
		field := v.FieldByName(name)
		if field.IsValid() {
			field.Set(reflect.ValueOf(value))
		}
	}
	return nil
}

type fakeRunner struct {
	sqls   []string
	params [][]cloudbigquery.QueryParameter
	rows   func(sql string) []map[string]any
	err    error
}

func (f *fakeRunner) Query(_ context.Context, sql string, params []cloudbigquery.QueryParameter) (rowReader, error) {
	f.sqls = append(f.sqls, sql)
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	var rows []map[string]any
	if f.rows != nil {
		rows = f.rows(sql)
	}
	return &fakeReader{rows: rows}, nil
}

func newTestMarketplaceService(runner queryRunner) *marketplaceService {
	return &marketplaceService{runner: runner, tableRef: "`proj.homequote.marketplace_events`"}
}

func TestMarketplaceQueryAggregatesFunnel(t *testing.T) {
	runner := &fakeRunner{rows: func(sql string) []map[string]any {
		switch {
		case strings.Contains(sql, "AS requirements"):
			return []map[string]any{{"Requirements": int64(10), "Quotations": int64(30), "Purchases": int64(4)}}
		case strings.Contains(sql, "SUM(COALESCE(amount"):
			return []map[string]any{{"Day": "2026-03-01", "Amount": big.NewRat(30025, 100)}}
		case strings.Contains(sql, "event_type = 'quotation_submitted'"):
			return []map[string]any{{"Day": "2026-03-01", "Value": int64(7)}, {"Day": "2026-03-02", "Value": int64(3)}}
		case strings.Contains(sql, "category AS label"):
			return []map[string]any{{"Label": "plumbing", "Value": int64(6)}}
		}
		return nil
	}}
	svc := newTestMarketplaceService(runner)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	resp, err := svc.Query(context.Background(), types.MarketplaceQueryRequest{Start: start, End: start.Add(48 * time.Hour)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(runner.sqls) != 7 {
		t.Fatalf("expected 7 queries, got %d", len(runner.sqls))
	}
	if len(resp.QuotationsSubmitted) != 2 || resp.QuotationsSubmitted[0].Value != 7 {
		t.Fatalf("unexpected quotation series %+v", resp.QuotationsSubmitted)
	}
	if len(resp.RequirementsPosted) != 0 {
		t.Fatalf("expected empty requirement series, got %+v", resp.RequirementsPosted)
	}
	if len(resp.PurchasedAmount) != 1 || resp.PurchasedAmount[0].Amount != "300.25" {
		t.Fatalf("unexpected amounts %+v", resp.PurchasedAmount)
	}
	if len(resp.TopCategories) != 1 || resp.TopCategories[0].Label != "plumbing" {
		t.Fatalf("unexpected top categories %+v", resp.TopCategories)
	}
	if resp.QuotesPerPurchase != 7.5 {
		t.Fatalf("unexpected quotes per purchase %v", resp.QuotesPerPurchase)
	}
	if resp.ConversionRate != 0.4 {
		t.Fatalf("unexpected conversion rate %v", resp.ConversionRate)
	}
	for _, sql := range runner.sqls {
		if strings.Contains(sql, "@category") {
			t.Fatalf("category filter should be absent without a category: %s", sql)
		}
	}
}

func TestMarketplaceQueryCategoryFilter(t *testing.T) {
	runner := &fakeRunner{}
	svc := newTestMarketplaceService(runner)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := svc.Query(context.Background(), types.MarketplaceQueryRequest{Category: "roofing", Start: start, End: start.Add(time.Hour)}); err != nil {
		t.Fatalf("query: %v", err)
	}
	for i, sql := range runner.sqls {
		if !strings.Contains(sql, "AND category = @category") {
			t.Fatalf("query %d missing category filter: %s", i, sql)
		}
		found := false
		for _, p := range runner.params[i] {
			if p.Name == "category" && p.Value == "roofing" {
				found = true
			}
		}
		if !found {
			t.Fatalf("query %d missing category param", i)
		}
	}
}

func TestMarketplaceQueryValidation(t *testing.T) {
	svc := newTestMarketplaceService(&fakeRunner{})
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cases := []types.MarketplaceQueryRequest{
		{},
		{Start: start, End: start.Add(-time.Hour)},
		{Start: start, End: start.AddDate(2, 0, 0)},
	}
	for i, req := range cases {
		_, err := svc.Query(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestMarketplaceQueryPropagatesRunnerError(t *testing.T) {
	svc := newTestMarketplaceService(&fakeRunner{err: errors.New("quota exceeded")})
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Query(context.Background(), types.MarketplaceQueryRequest{Start: start, End: start.Add(time.Hour)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewMarketplaceServiceRequiresTable(t *testing.T) {
	if _, err := NewMarketplaceService(nil, "p", "d", "t"); err == nil {
		t.Fatal("expected error without client")
	}
}
