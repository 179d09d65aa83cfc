package query

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	cloudbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/angelmondragon/homequote-backend/internal/analytics/types"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
)

const maxQueryWindowDays = 366

const (
	dailyCountSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  COUNT(DISTINCT event_id) AS value
FROM %s
WHERE event_type = '%s'
  AND occurred_at BETWEEN @start AND @end%s
GROUP BY day
ORDER BY day ASC
`

	dailyPurchasedAmountSQL = `
SELECT
  FORMAT_DATE('%%F', DATE(occurred_at)) AS day,
  SUM(COALESCE(amount, 0)) AS amount
FROM %s
WHERE event_type = 'quotation_accepted'
  AND occurred_at BETWEEN @start AND @end%s
GROUP BY day
ORDER BY day ASC
`

	topLabelsSQL = `
SELECT %s AS label, COUNT(DISTINCT requirement_id) AS value
FROM %s
WHERE event_type = 'requirement_created'
  AND %s IS NOT NULL
  AND occurred_at BETWEEN @start AND @end%s
GROUP BY label
ORDER BY value DESC
LIMIT 5
`

	funnelSQL = `
SELECT
  COUNT(DISTINCT IF(event_type = 'requirement_created', requirement_id, NULL)) AS requirements,
  COUNT(DISTINCT IF(event_type = 'quotation_submitted', quotation_id, NULL)) AS quotations,
  COUNT(DISTINCT IF(event_type = 'quotation_accepted', requirement_id, NULL)) AS purchases
FROM %s
WHERE occurred_at BETWEEN @start AND @end%s
`
)

// MarketplaceService provides dashboard data from BigQuery marketplace_events.
type MarketplaceService interface {
	Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error)
}

type rowReader interface {
	Next(dst any) error
}

type queryRunner interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (rowReader, error)
}

type marketplaceService struct {
	runner   queryRunner
	tableRef string
}

// bigQueryRunner adapts the shared client whose Query returns a concrete iterator.
type bigQueryRunner struct {
	query func(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
}

func (r bigQueryRunner) Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (rowReader, error) {
	return r.query(ctx, sql, params)
}

type bigQueryClient interface {
	Query(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (*cloudbigquery.RowIterator, error)
}

// NewMarketplaceService builds a service backed by BigQuery.
func NewMarketplaceService(client bigQueryClient, project, dataset, table string) (MarketplaceService, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	if project == "" || dataset == "" || table == "" {
		return nil, errors.New("project, dataset and table are required")
	}
	return &marketplaceService{
		runner:   bigQueryRunner{query: client.Query},
		tableRef: fmt.Sprintf("`%s.%s.%s`", project, dataset, table),
	}, nil
}

func (s *marketplaceService) Query(ctx context.Context, req types.MarketplaceQueryRequest) (*types.MarketplaceQueryResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	filter := categoryClause(req.Category)
	params := baseParams(req)

	requirements, err := s.querySeries(ctx, fmt.Sprintf(dailyCountSQL, s.tableRef, "requirement_created", filter), params)
	if err != nil {
		return nil, err
	}
	quotations, err := s.querySeries(ctx, fmt.Sprintf(dailyCountSQL, s.tableRef, "quotation_submitted", filter), params)
	if err != nil {
		return nil, err
	}
	purchases, err := s.querySeries(ctx, fmt.Sprintf(dailyCountSQL, s.tableRef, "quotation_accepted", filter), params)
	if err != nil {
		return nil, err
	}
	purchasedAmount, err := s.queryAmounts(ctx, fmt.Sprintf(dailyPurchasedAmountSQL, s.tableRef, filter), params)
	if err != nil {
		return nil, err
	}
	topCategories, err := s.queryTopLabels(ctx, fmt.Sprintf(topLabelsSQL, "category", s.tableRef, "category", filter), params)
	if err != nil {
		return nil, err
	}
	topLocations, err := s.queryTopLabels(ctx, fmt.Sprintf(topLabelsSQL, "location", s.tableRef, "location", filter), params)
	if err != nil {
		return nil, err
	}
	funnel, err := s.queryFunnel(ctx, fmt.Sprintf(funnelSQL, s.tableRef, filter), params)
	if err != nil {
		return nil, err
	}

	return &types.MarketplaceQueryResponse{
		RequirementsPosted:  requirements,
		QuotationsSubmitted: quotations,
		Purchases:           purchases,
		PurchasedAmount:     purchasedAmount,
		TopCategories:       topCategories,
		TopLocations:        topLocations,
		QuotesPerPurchase:   ratio(funnel.Quotations, funnel.Purchases),
		ConversionRate:      ratio(funnel.Purchases, funnel.Requirements),
	}, nil
}

func validateRequest(req types.MarketplaceQueryRequest) error {
	if req.Start.IsZero() || req.End.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "start and end are required")
	}
	if req.End.Before(req.Start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	if req.End.Sub(req.Start).Hours() > 24*maxQueryWindowDays {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("window must be at most %d days", maxQueryWindowDays))
	}
	return nil
}

func categoryClause(category string) string {
	if strings.TrimSpace(category) == "" {
		return ""
	}
	return "\n  AND category = @category"
}

func baseParams(req types.MarketplaceQueryRequest) []cloudbigquery.QueryParameter {
	params := []cloudbigquery.QueryParameter{
		{Name: "start", Value: req.Start},
		{Name: "end", Value: req.End},
	}
	if category := strings.TrimSpace(req.Category); category != "" {
		params = append(params, cloudbigquery.QueryParameter{Name: "category", Value: category})
	}
	return params
}

func ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

type seriesRow struct {
	Day   string `bigquery:"day"`
	Value int64  `bigquery:"value"`
}

type amountRow struct {
	Day    string   `bigquery:"day"`
	Amount *big.Rat `bigquery:"amount"`
}

type labelRow struct {
	Label string `bigquery:"label"`
	Value int64  `bigquery:"value"`
}

// collect drains rows into R and maps each one to T.
func collect[R, T any](ctx context.Context, runner queryRunner, what, sql string, params []cloudbigquery.QueryParameter, convert func(R) T) ([]T, error) {
	rows, err := runner.Query(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	out := []T{}
	for {
		var row R
		err := rows.Next(&row)
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row: %w", what, err)
		}
		out = append(out, convert(row))
	}
}

func (s *marketplaceService) querySeries(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.TimeSeriesPoint, error) {
	return collect(ctx, s.runner, "series", sql, params, func(r seriesRow) types.TimeSeriesPoint {
		return types.TimeSeriesPoint{Date: r.Day, Value: r.Value}
	})
}

func (s *marketplaceService) queryAmounts(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.AmountPoint, error) {
	return collect(ctx, s.runner, "amounts", sql, params, func(r amountRow) types.AmountPoint {
		amount := "0.00"
		if r.Amount != nil {
			amount = r.Amount.FloatString(2)
		}
		return types.AmountPoint{Date: r.Day, Amount: amount}
	})
}

func (s *marketplaceService) queryTopLabels(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) ([]types.LabelValue, error) {
	return collect(ctx, s.runner, "top labels", sql, params, func(r labelRow) types.LabelValue {
		return types.LabelValue{Label: r.Label, Value: r.Value}
	})
}

type funnelRow struct {
	Requirements int64 `bigquery:"requirements"`
	Quotations   int64 `bigquery:"quotations"`
	Purchases    int64 `bigquery:"purchases"`
}

func (s *marketplaceService) queryFunnel(ctx context.Context, sql string, params []cloudbigquery.QueryParameter) (funnelRow, error) {
	iter, err := s.runner.Query(ctx, sql, params)
	if err != nil {
		return funnelRow{}, fmt.Errorf("query funnel: %w", err)
	}
	var row funnelRow
	err = iter.Next(&row)
	if errors.Is(err, iterator.Done) {
		return funnelRow{}, nil
	}
	if err != nil {
		return funnelRow{}, fmt.Errorf("read funnel row: %w", err)
	}
	return row, nil
}
