// Package scoring implements the deterministic threshold heuristics that
// evaluate small-business investment opportunities.
package scoring

import (
	"context"
	"math"

	"github.com/dealscope/scoreq/internal/domain/model"
)

// Component weights for the overall score.
const (
	weightRevenue    = 0.3
	weightGrowth     = 0.25
	weightMarket     = 0.25
	weightExperience = 0.2
)

// industryMultipliers adjust the market score for industry dynamics.
// Unlisted industries score at 1.0.
var industryMultipliers = map[string]float64{
	"SaaS":        1.2,
	"E-commerce":  1.1,
	"Marketplace": 1.15,
	"Mobile App":  1.0,
	"Web App":     1.0,
	"Service":     0.9,
}

// ThresholdScorer scores businesses with fixed threshold tables. It is
// pure and deterministic: the same business always yields the same result.
type ThresholdScorer struct{}

// NewThresholdScorer creates a ThresholdScorer.
func NewThresholdScorer() *ThresholdScorer {
	return &ThresholdScorer{}
}

// Score evaluates the business and returns the weighted overall score,
// rounded to two decimal places, with one reasoning line per component.
func (s *ThresholdScorer) Score(ctx context.Context, business model.Business) (model.ScoreResult, error) {
	if err := ctx.Err(); err != nil {
		return model.ScoreResult{}, err
	}

	revenue := scoreRevenue(business.MonthlyRevenue)
	growth := scoreGrowth(business.GrowthRate)
	market := scoreMarket(business.MarketSize, business.Industry)
	experience := scoreExperience(business.YearsOperated)

	overall := revenue*weightRevenue +
		growth*weightGrowth +
		market*weightMarket +
		experience*weightExperience

	return model.ScoreResult{
		Score:     math.Round(overall*100) / 100,
		Reasoning: buildReasoning(revenue, growth, market, experience),
	}, nil
}

func scoreRevenue(monthlyRevenue float64) float64 {
	switch {
	case monthlyRevenue < 1000:
		return 20
	case monthlyRevenue < 5000:
		return 40
	case monthlyRevenue < 15000:
		return 60
	case monthlyRevenue < 50000:
		return 80
	default:
		return 95
	}
}

func scoreGrowth(growthRate float64) float64 {
	switch {
	case growthRate < 0:
		return 10
	case growthRate < 5:
		return 30
	case growthRate < 15:
		return 60
	case growthRate < 30:
		return 80
	default:
		return 95
	}
}

func scoreMarket(marketSize float64, industry string) float64 {
	multiplier, ok := industryMultipliers[industry]
	if !ok {
		multiplier = 1.0
	}

	switch {
	case marketSize < 100_000:
		return 30 * multiplier
	case marketSize < 1_000_000:
		return 50 * multiplier
	case marketSize < 10_000_000:
		return 70 * multiplier
	default:
		return 90 * multiplier
	}
}

func scoreExperience(yearsOperated float64) float64 {
	switch {
	case yearsOperated < 1:
		return 30
	case yearsOperated < 3:
		return 50
	case yearsOperated < 5:
		return 70
	default:
		return 85
	}
}

func buildReasoning(revenue, growth, market, experience float64) []string {
	reasoning := make([]string, 0, 4)

	switch {
	case revenue >= 80:
		reasoning = append(reasoning, "Strong revenue generation with healthy profitability")
	case revenue >= 60:
		reasoning = append(reasoning, "Moderate revenue with decent profit margins")
	default:
		reasoning = append(reasoning, "Revenue needs improvement for better investment appeal")
	}

	switch {
	case growth >= 80:
		reasoning = append(reasoning, "Excellent growth trajectory indicating market opportunity")
	case growth >= 60:
		reasoning = append(reasoning, "Steady growth with potential for acceleration")
	default:
		reasoning = append(reasoning, "Growth is limited, may need strategic improvements")
	}

	switch {
	case market >= 80:
		reasoning = append(reasoning, "Large addressable market with favorable industry dynamics")
	case market >= 60:
		reasoning = append(reasoning, "Decent market size with reasonable competition")
	default:
		reasoning = append(reasoning, "Market opportunity may be limited")
	}

	switch {
	case experience >= 80:
		reasoning = append(reasoning, "Proven track record with established operations")
	case experience >= 60:
		reasoning = append(reasoning, "Some operational experience with growth potential")
	default:
		reasoning = append(reasoning, "Newer operation requiring additional validation")
	}

	return reasoning
}
