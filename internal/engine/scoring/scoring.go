// Package scoring maps feature vectors to drop-off risk probabilities.
//
// The Scorer interface keeps the rule-based reference implementation and a
// trained model interchangeable; callers never depend on which one is wired.
package scoring

import (
	"context"

	"candidate-risk-engine/internal/engine/features"
	"candidate-risk-engine/internal/models"
)

// Scorer maps a feature vector to a probability in [0,1] plus the top
// contributing factors. Implementations return ScorerUnavailableError when
// invoked before initialization; callers treat that as retryable. The context
// bounds remote model calls so a cancelled tick does not leave them in flight.
type Scorer interface {
	Score(ctx context.Context, v features.Vector) (float64, []models.Factor, error)
}

// Breakpoints holds the risk categorization thresholds. Closed-open
// intervals: a probability exactly on a breakpoint belongs to the higher band.
type Breakpoints struct {
	High   float64
	Medium float64
	Low    float64
}

// DefaultBreakpoints matches the standard 0.3/0.6/0.8 bands.
var DefaultBreakpoints = Breakpoints{High: 0.8, Medium: 0.6, Low: 0.3}

// LevelFor categorizes a probability. Pure and monotonic.
func LevelFor(p float64, bp Breakpoints) models.RiskLevel {
	switch {
	case p >= bp.High:
		return models.RiskHigh
	case p >= bp.Medium:
		return models.RiskMedium
	case p >= bp.Low:
		return models.RiskLow
	default:
		return models.RiskMinimal
	}
}

// RecommendedActions maps the top factors of an assessment to operator
// guidance included in notification payloads.
func RecommendedActions(level models.RiskLevel, factors []models.Factor) []string {
	actions := make([]string, 0, len(factors)+1)
	for _, f := range factors {
		switch f.Name {
		case features.FeatureNames[features.FeatHoursSinceLastMessage]:
			actions = append(actions, "Reach out directly; the candidate has gone quiet")
		case features.FeatureNames[features.FeatSentimentTrend]:
			actions = append(actions, "Review recent conversation; sentiment is declining")
		case features.FeatureNames[features.FeatStageDurationHours]:
			actions = append(actions, "Unblock the current stage; the candidate has been stuck")
		case features.FeatureNames[features.FeatAvgResponseLatencyHours]:
			actions = append(actions, "Consider async-friendly follow-ups; replies are slowing")
		case features.FeatureNames[features.FeatMessageCount]:
			actions = append(actions, "Increase engagement; conversation volume is low")
		}
	}
	if level == models.RiskHigh {
		actions = append(actions, "Offer a human takeover of the conversation")
	}
	return actions
}
