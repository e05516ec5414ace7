// internal/notify/email.go
package notify

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"

	awsclient "candidate-risk-engine/internal/common/aws"
	"candidate-risk-engine/internal/engine/escalation"
)

// EmailSender delivers risk alerts to the hiring lead through SES.
type EmailSender struct {
	ses       *awsclient.SESClient
	fromEmail string
	leadEmail string
}

func NewEmailSender(sesClient *awsclient.SESClient, fromEmail, leadEmail string) *EmailSender {
	return &EmailSender{
		ses:       sesClient,
		fromEmail: fromEmail,
		leadEmail: leadEmail,
	}
}

func (e *EmailSender) Send(ctx context.Context, candidateID string, payload escalation.Payload) error {
	to := payload.Target
	if to == "" {
		to = e.leadEmail
	}
	if to == "" {
		return fmt.Errorf("email: no recipient configured")
	}

	subject := fmt.Sprintf("[%s risk] Candidate %s may be disengaging", payload.RiskLevel, candidateID)
	if payload.Urgent {
		subject = "URGENT: " + subject
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Candidate %s was assessed at %s drop-off risk (score %.2f).\n\n",
		candidateID, payload.RiskLevel, payload.RiskScore)
	if len(payload.Factors) > 0 {
		body.WriteString("Top contributing factors:\n")
		for _, f := range payload.Factors {
			fmt.Fprintf(&body, "  - %s (contribution %.2f)\n", f.Name, f.Contribution)
		}
		body.WriteString("\n")
	}
	if len(payload.RecommendedActions) > 0 {
		body.WriteString("Recommended actions:\n")
		for _, a := range payload.RecommendedActions {
			fmt.Fprintf(&body, "  - %s\n", a)
		}
	}

	_, err := e.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source: awssdk.String(e.fromEmail),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: awssdk.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: awssdk.String(body.String())},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
