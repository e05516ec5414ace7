// internal/models/assessment.go
package models

import "time"

// RiskLevel buckets a drop-off probability.
type RiskLevel string

const (
	RiskMinimal RiskLevel = "MINIMAL"
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
)

// Factor names a feature's contribution to a risk score.
type Factor struct {
	Name         string  `json:"name"`
	Contribution float64 `json:"contribution"`
}

// RiskAssessment is a scored, timestamped judgment of a candidate's
// likelihood of disengaging. Immutable once created.
type RiskAssessment struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidateId"`
	Probability float64   `json:"probability"`
	Level       RiskLevel `json:"level"`
	Factors     []Factor  `json:"factors,omitempty"`
	AssessedAt  time.Time `json:"assessedAt"`
}
