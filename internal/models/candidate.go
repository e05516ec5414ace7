// internal/models/candidate.go
package models

import (
	"time"

	"candidate-risk-engine/internal/engine/journey"
)

// Candidate is the engine's view of a person moving through the funnel.
// Mutated only through the Coordinator: journey state via the state machine,
// risk fields via assessment.
type Candidate struct {
	ID             string        `json:"id"`
	Name           string        `json:"name,omitempty"`
	Email          string        `json:"email,omitempty"`
	CurrentState   journey.State `json:"currentState"`
	StateEnteredAt time.Time     `json:"stateEnteredAt"`
	LastActivityAt time.Time     `json:"lastActivityAt"`
	LastRiskScore  float64       `json:"lastRiskScore"`
	LastAssessedAt time.Time     `json:"lastAssessedAt"`

	// Transitions is the append-only audit log of journey state changes.
	Transitions []journey.TransitionRecord `json:"transitions,omitempty"`
}

// Active reports whether the candidate still participates in scheduled
// assessment passes.
func (c *Candidate) Active() bool {
	return !journey.IsTerminal(c.CurrentState)
}

// Clone returns a deep copy safe to hand out of the registry.
func (c *Candidate) Clone() *Candidate {
	cp := *c
	cp.Transitions = make([]journey.TransitionRecord, len(c.Transitions))
	copy(cp.Transitions, c.Transitions)
	return &cp
}
