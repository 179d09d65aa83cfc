package requirements

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/angelmondragon/homequote-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Limits bounds the content accepted on requirements and quotations.
type Limits struct {
	MaxPhotos            int
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxTermsLength       int
	MaxAmount            decimal.Decimal
}

// DefaultLimits mirrors the configuration defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxPhotos:            10,
		MaxTitleLength:       140,
		MaxDescriptionLength: 4000,
		MaxTermsLength:       4000,
		MaxAmount:            decimal.NewFromInt(10_000_000),
	}
}

// LimitsFromConfig converts marketplace configuration into Limits.
func LimitsFromConfig(cfg config.MarketplaceConfig) (Limits, error) {
	limits := DefaultLimits()
	if cfg.MaxPhotosPerRequirement > 0 {
		limits.MaxPhotos = cfg.MaxPhotosPerRequirement
	}
	if cfg.MaxTitleLength > 0 {
		limits.MaxTitleLength = cfg.MaxTitleLength
	}
	if cfg.MaxDescriptionLength > 0 {
		limits.MaxDescriptionLength = cfg.MaxDescriptionLength
	}
	if cfg.MaxTermsLength > 0 {
		limits.MaxTermsLength = cfg.MaxTermsLength
	}
	if strings.TrimSpace(cfg.MaxAmount) != "" {
		max, err := decimal.NewFromString(strings.TrimSpace(cfg.MaxAmount))
		if err != nil {
			return Limits{}, fmt.Errorf("parse max quotation amount: %w", err)
		}
		if !max.IsPositive() {
			return Limits{}, fmt.Errorf("max quotation amount must be positive")
		}
		limits.MaxAmount = max
	}
	return limits, nil
}

type requirementFields struct {
	title       string
	category    string
	location    string
	description string
	photos      []string
}

func (l Limits) validateRequirement(input CreateRequirementInput) (requirementFields, error) {
	fields := requirementFields{
		title:       strings.TrimSpace(input.Title),
		category:    strings.TrimSpace(input.Category),
		location:    strings.TrimSpace(input.Location),
		description: strings.TrimSpace(input.Description),
	}
	required := []struct {
		name  string
		value string
	}{
		{"title", fields.title},
		{"category", fields.category},
		{"location", fields.location},
		{"description", fields.description},
	}
	for _, field := range required {
		if field.value == "" {
			return requirementFields{}, pkgerrors.Validation(field.name, "is required")
		}
	}
	if utf8.RuneCountInString(fields.title) > l.MaxTitleLength {
		return requirementFields{}, pkgerrors.Validation("title", fmt.Sprintf("must be at most %d characters", l.MaxTitleLength))
	}
	if utf8.RuneCountInString(fields.description) > l.MaxDescriptionLength {
		return requirementFields{}, pkgerrors.Validation("description", fmt.Sprintf("must be at most %d characters", l.MaxDescriptionLength))
	}
	if len(input.PhotoURLs) > l.MaxPhotos {
		return requirementFields{}, pkgerrors.Validation("photo_urls", fmt.Sprintf("must contain at most %d entries", l.MaxPhotos))
	}
	fields.photos = make([]string, 0, len(input.PhotoURLs))
	for _, raw := range input.PhotoURLs {
		trimmed := strings.TrimSpace(raw)
		if !isHTTPURL(trimmed) {
			return requirementFields{}, pkgerrors.Validation("photo_urls", fmt.Sprintf("contains invalid url %q", raw))
		}
		fields.photos = append(fields.photos, trimmed)
	}
	return fields, nil
}

func (l Limits) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.Validation("amount", "must be greater than zero")
	}
	if amount.GreaterThan(l.MaxAmount) {
		return pkgerrors.Validation("amount", fmt.Sprintf("must not exceed %s", l.MaxAmount.String()))
	}
	if !amount.Equal(amount.Round(2)) {
		return pkgerrors.Validation("amount", "must have at most two decimal places")
	}
	return nil
}

func (l Limits) validateTerms(terms string) (string, error) {
	trimmed := strings.TrimSpace(terms)
	if trimmed == "" {
		return "", pkgerrors.Validation("terms", "is required")
	}
	if utf8.RuneCountInString(trimmed) > l.MaxTermsLength {
		return "", pkgerrors.Validation("terms", fmt.Sprintf("must be at most %d characters", l.MaxTermsLength))
	}
	return trimmed, nil
}

func validateDeliveryDate(date time.Time, now time.Time) (time.Time, error) {
	if date.IsZero() {
		return time.Time{}, pkgerrors.Validation("delivery_date", "is required")
	}
	day := truncateDay(date)
	if day.Before(truncateDay(now)) {
		return time.Time{}, pkgerrors.Validation("delivery_date", "must not be in the past")
	}
	return day, nil
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func isHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// ParseDeliveryDate accepts YYYY-MM-DD or RFC3339 input.
func ParseDeliveryDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, pkgerrors.Validation("delivery_date", "is required")
	}
	if parsed, err := time.Parse(deliveryDateLayout, trimmed); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return parsed, nil
	}
	return time.Time{}, pkgerrors.Validation("delivery_date", "must be formatted as YYYY-MM-DD")
}

func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
