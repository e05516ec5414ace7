// internal/engine/features/extractor_test.go
package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-risk-engine/internal/engine/journey"
	"candidate-risk-engine/internal/models"
)

var refTime = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC) // a Tuesday

func testCandidate() *models.Candidate {
	return &models.Candidate{
		ID:             "cand-1",
		CurrentState:   journey.StateTechnicalChallenge,
		StateEnteredAt: refTime.Add(-72 * time.Hour),
		LastActivityAt: refTime.Add(-10 * time.Hour),
	}
}

func inbound(id string, age time.Duration, content string, sentiment float64) models.Message {
	return models.Message{
		ID:          id,
		CandidateID: "cand-1",
		Direction:   models.DirectionInbound,
		Content:     content,
		Sentiment:   sentiment,
		Timestamp:   refTime.Add(-age),
	}
}

func outbound(id string, age time.Duration) models.Message {
	return models.Message{
		ID:          id,
		CandidateID: "cand-1",
		Direction:   models.DirectionOutbound,
		Content:     "checking in",
		Timestamp:   refTime.Add(-age),
	}
}

func TestExtractZeroMessages(t *testing.T) {
	e := NewExtractor(Config{})
	c := testCandidate()

	v := e.Extract(c, nil, refTime)

	// Falls back to the candidate's recorded activity.
	assert.InDelta(t, 10, v[FeatHoursSinceLastMessage], 1e-9)
	assert.Equal(t, 0.0, v[FeatMessageCount])
	assert.Equal(t, 0.0, v[FeatAvgResponseLatencyHours])
	assert.InDelta(t, 72, v[FeatStageDurationHours], 1e-9)
	assert.InDelta(t, 1.0/3.0, v[FeatStageCompletionRatio], 1e-9)
	assert.Equal(t, 0.0, v[FeatAvgMessageLength])
	assert.Equal(t, 0.0, v[FeatSentimentTrend])
}

func TestExtractZeroMessagesNoActivityRecord(t *testing.T) {
	e := NewExtractor(Config{})
	c := testCandidate()
	c.LastActivityAt = time.Time{}

	v := e.Extract(c, nil, refTime)
	assert.InDelta(t, 72, v[FeatHoursSinceLastMessage], 1e-9,
		"must fall back to stage entry time")
}

func TestExtractHoursSinceLastInbound(t *testing.T) {
	e := NewExtractor(Config{})
	history := []models.Message{
		inbound("m1", 30*time.Hour, "hello", 0),
		outbound("m2", 28*time.Hour),
		inbound("m3", 25*time.Hour, "still here", 0),
	}

	v := e.Extract(testCandidate(), history, refTime)
	assert.InDelta(t, 25, v[FeatHoursSinceLastMessage], 1e-9)
	assert.Equal(t, 3.0, v[FeatMessageCount])
}

func TestExtractResponseLatency(t *testing.T) {
	e := NewExtractor(Config{})
	history := []models.Message{
		outbound("m1", 20*time.Hour),
		inbound("m2", 16*time.Hour, "reply one", 0), // 4h latency
		outbound("m3", 10*time.Hour),
		inbound("m4", 2*time.Hour, "reply two", 0), // 8h latency
	}

	v := e.Extract(testCandidate(), history, refTime)
	assert.InDelta(t, 6, v[FeatAvgResponseLatencyHours], 1e-9)
}

func TestExtractSentimentTrendDeclining(t *testing.T) {
	e := NewExtractor(Config{})
	history := []models.Message{
		inbound("m1", 40*time.Hour, "this looks great", 0.8),
		inbound("m2", 30*time.Hour, "ok I guess", 0.4),
		inbound("m3", 20*time.Hour, "not sure about this", -0.2),
		inbound("m4", 10*time.Hour, "losing interest", -0.6),
	}

	v := e.Extract(testCandidate(), history, refTime)
	// Newer half mean (-0.4) minus older half mean (0.6).
	assert.InDelta(t, -1.0, v[FeatSentimentTrend], 1e-9)
}

func TestExtractSentimentTrendNeedsTwoScored(t *testing.T) {
	e := NewExtractor(Config{})
	history := []models.Message{
		inbound("m1", 10*time.Hour, "only one scored message", -0.9),
		inbound("m2", 5*time.Hour, "unscored", 0),
	}

	v := e.Extract(testCandidate(), history, refTime)
	assert.Equal(t, 0.0, v[FeatSentimentTrend])
}

func TestExtractAvgMessageLengthInboundOnly(t *testing.T) {
	e := NewExtractor(Config{})
	history := []models.Message{
		inbound("m1", 10*time.Hour, "1234567890", 0), // 10 chars
		inbound("m2", 8*time.Hour, "12345678901234567890", 0), // 20 chars
		outbound("m3", 6*time.Hour), // ignored
	}

	v := e.Extract(testCandidate(), history, refTime)
	assert.InDelta(t, 15, v[FeatAvgMessageLength], 1e-9)
}

func TestExtractWindowBounds(t *testing.T) {
	e := NewExtractor(Config{MaxMessages: 2, MaxAge: 24 * time.Hour})
	history := []models.Message{
		inbound("old", 48*time.Hour, "outside the age window", 0),
		inbound("m1", 20*time.Hour, "a", 0),
		inbound("m2", 10*time.Hour, "b", 0),
		inbound("m3", 5*time.Hour, "c", 0),
	}

	v := e.Extract(testCandidate(), history, refTime)
	assert.Equal(t, 2.0, v[FeatMessageCount], "window must keep the newest messages only")
	assert.InDelta(t, 5, v[FeatHoursSinceLastMessage], 1e-9)
}

func TestExtractFutureMessagesExcluded(t *testing.T) {
	e := NewExtractor(Config{})
	history := []models.Message{
		inbound("m1", 10*time.Hour, "past", 0),
		inbound("m2", -2*time.Hour, "from the future", 0),
	}

	v := e.Extract(testCandidate(), history, refTime)
	assert.Equal(t, 1.0, v[FeatMessageCount])
}

func TestExtractTimeOfDayAndWeekend(t *testing.T) {
	e := NewExtractor(Config{})
	saturdayNight := time.Date(2026, 3, 7, 23, 0, 0, 0, time.UTC)
	mondayMorning := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	history := []models.Message{
		{ID: "m1", CandidateID: "cand-1", Direction: models.DirectionInbound, Content: "late", Timestamp: saturdayNight},
		{ID: "m2", CandidateID: "cand-1", Direction: models.DirectionInbound, Content: "early", Timestamp: mondayMorning},
	}

	v := e.Extract(testCandidate(), history, refTime)
	assert.InDelta(t, 0.5, v[FeatWeekendActivityScore], 1e-9)
	assert.InDelta(t, 0.5, v[FeatTimeOfDayScore], 1e-9)
}

func TestSchemaStability(t *testing.T) {
	require.Equal(t, "v2", SchemaVersion)
	require.Equal(t, 9, FeatureCount)
	for i := 0; i < FeatureCount; i++ {
		assert.NotEmpty(t, Name(i))
	}
	assert.Equal(t, "unknown", Name(FeatureCount))
	assert.Equal(t, "unknown", Name(-1))
}
