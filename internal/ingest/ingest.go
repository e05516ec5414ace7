// Package ingest validates and normalizes activity payloads arriving from
// the conversation pipeline before they touch candidate state.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"candidate-risk-engine/internal/common/errors"
	"candidate-risk-engine/internal/models"
)

// activitySchema is the wire contract for conversation events. Unknown fields
// are rejected so producer drift surfaces as validation errors, not as
// silently dropped data.
const activitySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["messageId", "candidateId", "direction", "content", "timestamp"],
  "properties": {
    "messageId":   { "type": "string", "minLength": 1 },
    "candidateId": { "type": "string", "minLength": 1 },
    "direction":   { "type": "string", "enum": ["inbound", "outbound"] },
    "content":     { "type": "string" },
    "sentiment":   { "type": "number", "minimum": -1, "maximum": 1 },
    "timestamp":   { "type": "string", "format": "date-time" }
  }
}`

type activityPayload struct {
	MessageID   string  `json:"messageId"`
	CandidateID string  `json:"candidateId"`
	Direction   string  `json:"direction"`
	Content     string  `json:"content"`
	Sentiment   float64 `json:"sentiment"`
	Timestamp   string  `json:"timestamp"`
}

// Parser validates raw activity payloads against the wire schema.
type Parser struct {
	schema *gojsonschema.Schema
}

func NewParser() (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(activitySchema))
	if err != nil {
		return nil, fmt.Errorf("ingest: compile activity schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse validates raw and converts it to a Message. Validation failures
// return InvalidActivityPayloadError with every violated constraint listed.
func (p *Parser) Parse(raw []byte) (models.Message, error) {
	result, err := p.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return models.Message{}, errors.NewInvalidActivityPayloadError(err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return models.Message{}, errors.NewInvalidActivityPayloadError(strings.Join(details, "; "))
	}

	var payload activityPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.Message{}, errors.NewInvalidActivityPayloadError(err.Error())
	}

	ts, err := time.Parse(time.RFC3339, payload.Timestamp)
	if err != nil {
		return models.Message{}, errors.NewInvalidActivityPayloadError(fmt.Sprintf("timestamp: %v", err))
	}

	return models.Message{
		ID:          payload.MessageID,
		CandidateID: payload.CandidateID,
		Direction:   models.Direction(payload.Direction),
		Content:     payload.Content,
		Sentiment:   payload.Sentiment,
		Timestamp:   ts.UTC(),
	}, nil
}
