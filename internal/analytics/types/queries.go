package types

import "time"

// MarketplaceQueryRequest is the admin KPI window, optionally narrowed to a category.
type MarketplaceQueryRequest struct {
	Category string
	Start    time.Time
	End      time.Time
}

// TimeSeriesPoint describes a single date/value pair returned by the query service.
type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// AmountPoint is a daily sum of quotation amounts, kept as a decimal string.
type AmountPoint struct {
	Date   string `json:"date"`
	Amount string `json:"amount"`
}

// LabelValue represents a top-N entry such as a category or location.
type LabelValue struct {
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// MarketplaceQueryResponse wraps the marketplace KPIs for the admin dashboard.
type MarketplaceQueryResponse struct {
	RequirementsPosted  []TimeSeriesPoint `json:"requirements_posted"`
	QuotationsSubmitted []TimeSeriesPoint `json:"quotations_submitted"`
	Purchases           []TimeSeriesPoint `json:"purchases"`
	PurchasedAmount     []AmountPoint     `json:"purchased_amount"`
	TopCategories       []LabelValue      `json:"top_categories"`
	TopLocations        []LabelValue      `json:"top_locations"`
	QuotesPerPurchase   float64           `json:"quotes_per_purchase"`
	ConversionRate      float64           `json:"conversion_rate"`
}
