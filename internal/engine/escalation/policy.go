// Package escalation converts risk assessments into ordered, time-bounded
// notification sequences with acknowledgment-aware cancellation.
package escalation

import (
	"fmt"
	"time"

	"candidate-risk-engine/internal/common/config"
	"candidate-risk-engine/internal/models"
)

// Channel identifies a notification transport handled by the external sender.
type Channel string

const (
	ChannelSlack     Channel = "slack"
	ChannelEmail     Channel = "email"
	ChannelBroadcast Channel = "broadcast"
	ChannelDashboard Channel = "dashboard"
)

// Step is one notification action in an escalation sequence. Delay is
// measured from completion of the previous step; zero means immediate.
type Step struct {
	Channels []Channel
	Target   string
	Delay    time.Duration
	Urgent   bool
}

// Policy maps a risk level to its ordered step list. Levels absent from the
// table produce no escalation.
type Policy map[models.RiskLevel][]Step

// Payload is the dispatch request body handed to the notification sender.
// The engine decides what to send and when; rendering and transport belong
// to the sender.
type Payload struct {
	RiskLevel          models.RiskLevel `json:"riskLevel"`
	RiskScore          float64          `json:"riskScore"`
	Factors            []models.Factor  `json:"factors,omitempty"`
	RecommendedActions []string         `json:"recommendedActions,omitempty"`
	Target             string           `json:"target,omitempty"`
	Urgent             bool             `json:"urgent,omitempty"`
}

// PolicyFromConfig builds the runtime policy table from configuration.
func PolicyFromConfig(cfg config.EscalationConfig) (Policy, error) {
	policies := cfg.Policies
	if len(policies) == 0 {
		policies = config.DefaultEscalationPolicies()
	}

	policy := make(Policy, len(policies))
	for levelName, stepCfgs := range policies {
		level := models.RiskLevel(levelName)
		switch level {
		case models.RiskHigh, models.RiskMedium, models.RiskLow, models.RiskMinimal:
		default:
			return nil, fmt.Errorf("escalation: unknown risk level %q in policy table", levelName)
		}

		steps := make([]Step, 0, len(stepCfgs))
		for i, sc := range stepCfgs {
			if len(sc.Channels) == 0 {
				return nil, fmt.Errorf("escalation: policy %s step %d has no channels", levelName, i)
			}
			channels := make([]Channel, 0, len(sc.Channels))
			for _, name := range sc.Channels {
				ch := Channel(name)
				switch ch {
				case ChannelSlack, ChannelEmail, ChannelBroadcast, ChannelDashboard:
					channels = append(channels, ch)
				default:
					return nil, fmt.Errorf("escalation: unknown channel %q in policy %s", name, levelName)
				}
			}
			steps = append(steps, Step{
				Channels: channels,
				Target:   sc.Target,
				Delay:    sc.Delay,
				Urgent:   sc.Urgent,
			})
		}
		policy[level] = steps
	}
	return policy, nil
}

// escalates reports whether the level is high enough to open a task.
func escalates(level models.RiskLevel) bool {
	return level == models.RiskHigh || level == models.RiskMedium
}
