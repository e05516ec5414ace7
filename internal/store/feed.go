// internal/store/feed.go
package store

import (
	"context"
	"encoding/json"

	"candidate-risk-engine/internal/common/database"
	"candidate-risk-engine/internal/models"
)

// AssessmentFeed mirrors every assessment into Elasticsearch so the analytics
// dashboard can query risk history without touching Postgres.
type AssessmentFeed struct {
	es    *database.ElasticsearchClient
	index string
}

func NewAssessmentFeed(es *database.ElasticsearchClient, index string) *AssessmentFeed {
	if index == "" {
		index = "risk-assessments"
	}
	return &AssessmentFeed{es: es, index: index}
}

// RecordAssessment indexes the assessment document keyed by assessment id.
func (f *AssessmentFeed) RecordAssessment(ctx context.Context, a models.RiskAssessment) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return f.es.Index(ctx, f.index, a.ID, doc)
}
