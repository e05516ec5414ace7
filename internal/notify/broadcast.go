// internal/notify/broadcast.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	awsclient "candidate-risk-engine/internal/common/aws"
	"candidate-risk-engine/internal/engine/escalation"
)

// BroadcastSender publishes unacknowledged high-risk alerts to the whole
// recruitment team via an SNS topic.
type BroadcastSender struct {
	sns      *awsclient.SNSClient
	topicARN string
}

func NewBroadcastSender(snsClient *awsclient.SNSClient, topicARN string) *BroadcastSender {
	return &BroadcastSender{sns: snsClient, topicARN: topicARN}
}

func (b *BroadcastSender) Send(ctx context.Context, candidateID string, payload escalation.Payload) error {
	body, err := json.Marshal(map[string]interface{}{
		"candidateId":        candidateID,
		"riskLevel":          payload.RiskLevel,
		"riskScore":          payload.RiskScore,
		"factors":            payload.Factors,
		"recommendedActions": payload.RecommendedActions,
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Unacknowledged %s risk alert: candidate %s", payload.RiskLevel, candidateID)

	_, err = b.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(b.topicARN),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
