// internal/engine/scoring/rules.go
package scoring

import (
	"context"
	"math"
	"sort"

	"candidate-risk-engine/internal/engine/features"
	"candidate-risk-engine/internal/models"
)

// Feature weights for the rule-based reference scorer. They sum to 1.0 so the
// weighted sum of normalized features stays in [0,1].
const (
	weightInactivity       = 0.30
	weightSentimentDecline = 0.20
	weightLowEngagement    = 0.15
	weightResponseLatency  = 0.10
	weightStageStagnation  = 0.10
	weightEarlyStage       = 0.05
	weightShortMessages    = 0.05
	weightWeekendShift     = 0.025
	weightOffHours         = 0.025
)

// Normalization saturation points. Values at or beyond these contribute the
// full weight.
const (
	inactivitySaturationHours = 24.0
	latencySaturationHours    = 24.0
	stagnationSaturationHours = 168.0 // one week in the same stage
	engagementSaturationCount = 20.0
	messageLengthSaturation   = 200.0
	sentimentDropSaturation   = 0.5
)

// MaterialityThreshold is the minimum share of the total score a factor must
// contribute to be reported.
const MaterialityThreshold = 0.1

// MaxReportedFactors caps the ranked factor list.
const MaxReportedFactors = 3

// RuleBasedScorer is the deterministic reference implementation: a weighted
// sum of normalized features with named constant weights.
type RuleBasedScorer struct{}

func NewRuleBasedScorer() *RuleBasedScorer {
	return &RuleBasedScorer{}
}

// Score computes the drop-off probability and the ranked material factors.
// Purely arithmetic, so the context is never consulted.
func (s *RuleBasedScorer) Score(_ context.Context, v features.Vector) (float64, []models.Factor, error) {
	contributions := [features.FeatureCount]float64{
		features.FeatHoursSinceLastMessage:   weightInactivity * saturate(v[features.FeatHoursSinceLastMessage], inactivitySaturationHours),
		features.FeatMessageCount:            weightLowEngagement * (1 - saturate(v[features.FeatMessageCount], engagementSaturationCount)),
		features.FeatAvgResponseLatencyHours: weightResponseLatency * saturate(v[features.FeatAvgResponseLatencyHours], latencySaturationHours),
		features.FeatStageDurationHours:      weightStageStagnation * saturate(v[features.FeatStageDurationHours], stagnationSaturationHours),
		features.FeatStageCompletionRatio:    weightEarlyStage * (1 - clamp01(v[features.FeatStageCompletionRatio])),
		features.FeatAvgMessageLength:        weightShortMessages * (1 - saturate(v[features.FeatAvgMessageLength], messageLengthSaturation)),
		features.FeatWeekendActivityScore:    weightWeekendShift * clamp01(v[features.FeatWeekendActivityScore]),
		features.FeatTimeOfDayScore:          weightOffHours * (1 - clamp01(v[features.FeatTimeOfDayScore])),
		features.FeatSentimentTrend:          weightSentimentDecline * saturate(math.Max(0, -v[features.FeatSentimentTrend]), sentimentDropSaturation),
	}

	var probability float64
	for _, c := range contributions {
		probability += c
	}
	probability = clamp01(probability)

	return probability, rankFactors(contributions, probability), nil
}

// rankFactors returns factors whose share of the total score exceeds the
// materiality threshold, sorted descending, capped at MaxReportedFactors.
func rankFactors(contributions [features.FeatureCount]float64, probability float64) []models.Factor {
	if probability == 0 {
		return nil
	}

	factors := make([]models.Factor, 0, features.FeatureCount)
	for i, c := range contributions {
		share := c / probability
		if share > MaterialityThreshold {
			factors = append(factors, models.Factor{
				Name:         features.Name(i),
				Contribution: share,
			})
		}
	}

	sort.Slice(factors, func(i, j int) bool {
		return factors[i].Contribution > factors[j].Contribution
	})

	if len(factors) > MaxReportedFactors {
		factors = factors[:MaxReportedFactors]
	}
	return factors
}

func saturate(value, saturation float64) float64 {
	if value <= 0 {
		return 0
	}
	return clamp01(value / saturation)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
