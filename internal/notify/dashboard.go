// internal/notify/dashboard.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"candidate-risk-engine/internal/common/database"
	"candidate-risk-engine/internal/engine/escalation"
	"candidate-risk-engine/internal/models"
)

const (
	riskFlagKeyPrefix     = "risk:flags:"
	inactiveFlagKeyPrefix = "risk:inactive:"
)

// DashboardSender surfaces alerts on the recruiter dashboard by writing
// TTL-bounded flags to Redis. The dashboard polls these keys; expiry clears
// stale flags without any engine involvement.
type DashboardSender struct {
	redis   *database.RedisClient
	flagTTL time.Duration
}

func NewDashboardSender(redis *database.RedisClient, flagTTL time.Duration) *DashboardSender {
	if flagTTL <= 0 {
		flagTTL = 24 * time.Hour
	}
	return &DashboardSender{redis: redis, flagTTL: flagTTL}
}

func (d *DashboardSender) Send(ctx context.Context, candidateID string, payload escalation.Payload) error {
	doc, err := json.Marshal(map[string]interface{}{
		"candidateId":        candidateID,
		"riskLevel":          payload.RiskLevel,
		"riskScore":          payload.RiskScore,
		"factors":            payload.Factors,
		"recommendedActions": payload.RecommendedActions,
		"flaggedAt":          time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	key := riskFlagKeyPrefix + candidateID
	if err := d.redis.Client.Set(ctx, key, doc, d.flagTTL).Err(); err != nil {
		return fmt.Errorf("dashboard flag: %w", err)
	}
	return nil
}

// FlagInactive marks a candidate surfaced by the inactivity sweep. Satisfies
// the coordinator's InactivityNotifier.
func (d *DashboardSender) FlagInactive(ctx context.Context, c *models.Candidate, idle time.Duration) error {
	doc, err := json.Marshal(map[string]interface{}{
		"candidateId": c.ID,
		"state":       c.CurrentState,
		"idleHours":   idle.Hours(),
		"flaggedAt":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	key := inactiveFlagKeyPrefix + c.ID
	if err := d.redis.Client.Set(ctx, key, doc, d.flagTTL).Err(); err != nil {
		return fmt.Errorf("inactive flag: %w", err)
	}
	return nil
}
