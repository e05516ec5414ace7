// internal/engine/scoring/rules_test.go
package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-risk-engine/internal/engine/features"
	"candidate-risk-engine/internal/models"
)

func TestLevelForBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		want        models.RiskLevel
	}{
		{"exactly at high breakpoint", 0.8, models.RiskHigh},
		{"just below high breakpoint", 0.7999, models.RiskMedium},
		{"exactly at medium breakpoint", 0.6, models.RiskMedium},
		{"just below medium breakpoint", 0.5999, models.RiskLow},
		{"exactly at low breakpoint", 0.3, models.RiskLow},
		{"just below low breakpoint", 0.2999, models.RiskMinimal},
		{"zero", 0, models.RiskMinimal},
		{"one", 1, models.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFor(tt.probability, DefaultBreakpoints))
		})
	}
}

func TestScoreFullySaturatedRisk(t *testing.T) {
	// Every feature at its riskiest value: the weights sum to 1.0 so the
	// probability must be exactly 1.
	var v features.Vector
	v[features.FeatHoursSinceLastMessage] = 48
	v[features.FeatMessageCount] = 0
	v[features.FeatAvgResponseLatencyHours] = 48
	v[features.FeatStageDurationHours] = 400
	v[features.FeatStageCompletionRatio] = 0
	v[features.FeatAvgMessageLength] = 0
	v[features.FeatWeekendActivityScore] = 1
	v[features.FeatTimeOfDayScore] = 0
	v[features.FeatSentimentTrend] = -1

	p, _, err := NewRuleBasedScorer().Score(context.Background(), v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p, 1e-9)
}

func TestScoreZeroVector(t *testing.T) {
	// A vector with no observed activity still carries the no-data penalties
	// (low engagement, early stage, short messages, off hours) but stays
	// below the LOW breakpoint.
	p, _, err := NewRuleBasedScorer().Score(context.Background(), features.Vector{})
	require.NoError(t, err)
	assert.InDelta(t, 0.275, p, 1e-9)
	assert.Equal(t, models.RiskMinimal, LevelFor(p, DefaultBreakpoints))
}

func TestScoreIdleDecliningSentimentScenario(t *testing.T) {
	// A candidate stuck in the technical challenge for a week, idle for 25
	// hours, slow to reply and with clearly declining sentiment must land in
	// the HIGH band.
	var v features.Vector
	v[features.FeatHoursSinceLastMessage] = 25
	v[features.FeatMessageCount] = 3
	v[features.FeatAvgResponseLatencyHours] = 20
	v[features.FeatStageDurationHours] = 168
	v[features.FeatStageCompletionRatio] = 1.0 / 3.0
	v[features.FeatAvgMessageLength] = 40
	v[features.FeatWeekendActivityScore] = 0
	v[features.FeatTimeOfDayScore] = 1
	v[features.FeatSentimentTrend] = -0.6

	p, factors, err := NewRuleBasedScorer().Score(context.Background(), v)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, p, 0.8)
	assert.Equal(t, models.RiskHigh, LevelFor(p, DefaultBreakpoints))

	require.Len(t, factors, MaxReportedFactors)
	assert.Equal(t, "hours_since_last_message", factors[0].Name)
	assert.Equal(t, "sentiment_trend", factors[1].Name)
	assert.Equal(t, "message_count", factors[2].Name)
}

func TestScoreFactorsSortedAndMaterial(t *testing.T) {
	var v features.Vector
	v[features.FeatHoursSinceLastMessage] = 30
	v[features.FeatMessageCount] = 18
	v[features.FeatAvgMessageLength] = 180
	v[features.FeatStageCompletionRatio] = 0.8
	v[features.FeatTimeOfDayScore] = 1

	_, factors, err := NewRuleBasedScorer().Score(context.Background(), v)
	require.NoError(t, err)
	require.NotEmpty(t, factors)

	for i := 1; i < len(factors); i++ {
		assert.GreaterOrEqual(t, factors[i-1].Contribution, factors[i].Contribution,
			"factors must be sorted by contribution descending")
	}
	for _, f := range factors {
		assert.Greater(t, f.Contribution, MaterialityThreshold,
			"factor %s below materiality threshold", f.Name)
	}
	assert.LessOrEqual(t, len(factors), MaxReportedFactors)

	// Inactivity dominates this vector.
	assert.Equal(t, "hours_since_last_message", factors[0].Name)
}

func TestScoreSentimentImprovementNotPenalized(t *testing.T) {
	var improving, flat features.Vector
	improving[features.FeatSentimentTrend] = 0.5
	flat[features.FeatSentimentTrend] = 0

	scorer := NewRuleBasedScorer()
	pImproving, _, err := scorer.Score(context.Background(), improving)
	require.NoError(t, err)
	pFlat, _, err := scorer.Score(context.Background(), flat)
	require.NoError(t, err)

	assert.Equal(t, pFlat, pImproving, "positive sentiment trend must not add risk")
}

func TestRecommendedActions(t *testing.T) {
	factors := []models.Factor{
		{Name: "hours_since_last_message", Contribution: 0.4},
		{Name: "sentiment_trend", Contribution: 0.3},
	}

	actions := RecommendedActions(models.RiskHigh, factors)
	require.Len(t, actions, 3)
	assert.Contains(t, actions[0], "gone quiet")
	assert.Contains(t, actions[1], "sentiment")
	assert.Contains(t, actions[2], "human takeover")

	actions = RecommendedActions(models.RiskMedium, factors)
	require.Len(t, actions, 2)
}
