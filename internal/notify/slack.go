// internal/notify/slack.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	httpclient "candidate-risk-engine/internal/common/http"
	"candidate-risk-engine/internal/engine/escalation"
	"candidate-risk-engine/internal/models"
)

// SlackSender posts risk alerts to an incoming-webhook URL.
type SlackSender struct {
	webhookURL string
	client     *httpclient.Client
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Fields []slackField `json:"fields,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func NewSlackSender(webhookURL string, timeout time.Duration) *SlackSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SlackSender{
		webhookURL: webhookURL,
		client:     httpclient.NewClient(timeout),
	}
}

func (s *SlackSender) Send(ctx context.Context, candidateID string, payload escalation.Payload) error {
	headline := fmt.Sprintf("Candidate %s at %s drop-off risk (score %.2f)",
		candidateID, payload.RiskLevel, payload.RiskScore)
	if payload.Urgent {
		headline = ":rotating_light: " + headline
	}

	fields := []slackField{
		{Title: "Risk level", Value: string(payload.RiskLevel), Short: true},
		{Title: "Score", Value: fmt.Sprintf("%.2f", payload.RiskScore), Short: true},
	}
	if len(payload.Factors) > 0 {
		names := make([]string, 0, len(payload.Factors))
		for _, f := range payload.Factors {
			names = append(names, fmt.Sprintf("%s (%.2f)", f.Name, f.Contribution))
		}
		fields = append(fields, slackField{Title: "Top factors", Value: strings.Join(names, ", ")})
	}
	if len(payload.RecommendedActions) > 0 {
		fields = append(fields, slackField{
			Title: "Recommended actions",
			Value: "- " + strings.Join(payload.RecommendedActions, "\n- "),
		})
	}

	body, err := json.Marshal(slackMessage{
		Text: headline,
		Attachments: []slackAttachment{
			{Color: colorForLevel(payload.RiskLevel), Fields: fields},
		},
	})
	if err != nil {
		return err
	}

	resp, err := s.client.PostJSON(ctx, s.webhookURL, body)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	resp.Body.Close()
	return nil
}

func colorForLevel(level models.RiskLevel) string {
	switch level {
	case models.RiskHigh:
		return "#d00000"
	case models.RiskMedium:
		return "#e8a000"
	default:
		return "#2eb67d"
	}
}
