// Package features builds the risk feature vector from a candidate's state
// and a bounded window of conversation history.
//
// The vector schema is fixed and versioned: the extractor and every scorer
// implementation must agree on feature order and names. Changing the order,
// adding or removing a feature requires bumping SchemaVersion.
package features

// SchemaVersion identifies the vector layout below.
const SchemaVersion = "v2"

// Feature indices into a Vector. Order is part of the schema.
const (
	FeatHoursSinceLastMessage = iota
	FeatMessageCount
	FeatAvgResponseLatencyHours
	FeatStageDurationHours
	FeatStageCompletionRatio
	FeatAvgMessageLength
	FeatWeekendActivityScore
	FeatTimeOfDayScore
	FeatSentimentTrend

	FeatureCount
)

// FeatureNames maps indices to stable names used in factors and the
// analytics feed.
var FeatureNames = [FeatureCount]string{
	FeatHoursSinceLastMessage:   "hours_since_last_message",
	FeatMessageCount:            "message_count",
	FeatAvgResponseLatencyHours: "avg_response_latency_hours",
	FeatStageDurationHours:      "stage_duration_hours",
	FeatStageCompletionRatio:    "stage_completion_ratio",
	FeatAvgMessageLength:        "avg_message_length",
	FeatWeekendActivityScore:    "weekend_activity_score",
	FeatTimeOfDayScore:          "time_of_day_score",
	FeatSentimentTrend:          "sentiment_trend",
}

// Vector is one candidate's feature values in schema order.
type Vector [FeatureCount]float64

// Name returns the schema name for index i.
func Name(i int) string {
	if i < 0 || i >= FeatureCount {
		return "unknown"
	}
	return FeatureNames[i]
}
