package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Business holds the metrics used to score an investment opportunity.
// Jobs carry the payload as raw JSON; this struct is the known schema a
// payload is validated against and decoded into at scoring time. Unknown
// fields are tolerated, missing numeric fields default to zero.
type Business struct {
	Name           string  `json:"name"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
	MonthlyProfit  float64 `json:"monthly_profit"`
	GrowthRate     float64 `json:"growth_rate"`
	MarketSize     float64 `json:"market_size"`
	Industry       string  `json:"industry"`
	YearsOperated  float64 `json:"years_operated"`
}

// Validate checks the business metrics for values that can never score.
// GrowthRate may be negative (shrinking businesses are scorable).
func (b *Business) Validate() error {
	if b.Name == "" {
		return errors.New("name is required")
	}
	if b.MonthlyRevenue < 0 {
		return errors.New("monthly_revenue must be >= 0")
	}
	if b.MonthlyProfit < 0 {
		return errors.New("monthly_profit must be >= 0")
	}
	if b.MarketSize < 0 {
		return errors.New("market_size must be >= 0")
	}
	if b.YearsOperated < 0 {
		return errors.New("years_operated must be >= 0")
	}
	return nil
}

// ValidateBusinessPayload checks that raw is a JSON object matching the
// Business schema. The payload itself stays opaque on the job; only the
// scorer decodes it again.
func ValidateBusinessPayload(raw json.RawMessage) error {
	if len(raw) == 0 {
		return errors.New("business data is required")
	}
	var b Business
	if err := json.Unmarshal(raw, &b); err != nil {
		return fmt.Errorf("business data is not a valid business object: %w", err)
	}
	return b.Validate()
}

// ScoreResult is the outcome of scoring a business: an overall score on a
// 0-100 scale (industry multipliers can push component scores above 100)
// and human-readable reasoning, one line per scored component.
type ScoreResult struct {
	Score     float64  `json:"score"`
	Reasoning []string `json:"reasoning"`
}

// ParseBusiness decodes a validated payload into Business metrics.
func ParseBusiness(raw json.RawMessage) (Business, error) {
	var b Business
	if err := json.Unmarshal(raw, &b); err != nil {
		return Business{}, fmt.Errorf("decode business data: %w", err)
	}
	return b, nil
}
