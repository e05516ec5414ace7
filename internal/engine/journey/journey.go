// Package journey models a candidate's progress through the recruitment
// funnel as a fixed state set with a static transition table.
package journey

import (
	"fmt"
	"time"

	"candidate-risk-engine/internal/common/errors"
)

// State is a candidate's current stage in the recruitment funnel.
type State string

const (
	StateInitialContact     State = "initial_contact"
	StateScreening          State = "screening"
	StateTechnicalChallenge State = "technical_challenge"
	StateTechnicalReview    State = "technical_review"
	StateCulturalFit        State = "cultural_fit"
	StateFinalReview        State = "final_review"
	StateHired              State = "hired"
	StateDisqualified       State = "disqualified"
)

// funnelOrder lists the non-terminal pipeline stages in progression order,
// used for the stage-completion-ratio feature.
var funnelOrder = []State{
	StateInitialContact,
	StateScreening,
	StateTechnicalChallenge,
	StateTechnicalReview,
	StateCulturalFit,
	StateFinalReview,
}

// Trigger is an event name that may move a candidate between states.
type Trigger string

const (
	TriggerScreeningStarted  Trigger = "screening_started"
	TriggerChallengeSent     Trigger = "challenge_sent"
	TriggerSolutionSubmitted Trigger = "solution_submitted"
	TriggerReviewPassed      Trigger = "review_passed"
	TriggerCultureFitPassed  Trigger = "culture_fit_passed"
	TriggerOfferAccepted     Trigger = "offer_accepted"
	TriggerDisqualify        Trigger = "disqualify"
)

// transitions is the static adjacency table keyed by current state. Every
// non-terminal state carries an explicit disqualify path.
var transitions = map[State]map[Trigger]State{
	StateInitialContact: {
		TriggerScreeningStarted: StateScreening,
		TriggerDisqualify:       StateDisqualified,
	},
	StateScreening: {
		TriggerChallengeSent: StateTechnicalChallenge,
		TriggerDisqualify:    StateDisqualified,
	},
	StateTechnicalChallenge: {
		TriggerSolutionSubmitted: StateTechnicalReview,
		TriggerDisqualify:        StateDisqualified,
	},
	StateTechnicalReview: {
		TriggerReviewPassed: StateCulturalFit,
		TriggerDisqualify:   StateDisqualified,
	},
	StateCulturalFit: {
		TriggerCultureFitPassed: StateFinalReview,
		TriggerDisqualify:       StateDisqualified,
	},
	StateFinalReview: {
		TriggerOfferAccepted: StateHired,
		TriggerDisqualify:    StateDisqualified,
	},
}

// TransitionRecord is the audit entry appended on every successful transition.
type TransitionRecord struct {
	State     State     `json:"state"`
	Previous  State     `json:"previous"`
	Trigger   Trigger   `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s State) bool {
	return s == StateHired || s == StateDisqualified
}

// IsValid reports whether s is a member of the fixed state set.
func IsValid(s State) bool {
	if IsTerminal(s) {
		return true
	}
	_, ok := transitions[s]
	return ok
}

// Transition validates trigger against the static table for current and
// returns the next state. It has no side effects; the caller applies the
// result and records the TransitionRecord.
func Transition(current State, trigger Trigger) (State, error) {
	outgoing, ok := transitions[current]
	if !ok {
		return current, errors.NewInvalidTransitionError(string(current), string(trigger))
	}
	next, ok := outgoing[trigger]
	if !ok {
		return current, errors.NewInvalidTransitionError(string(current), string(trigger))
	}
	return next, nil
}

// Progress returns how far along the funnel s is, in [0,1]. Terminal states
// count as complete.
func Progress(s State) float64 {
	if IsTerminal(s) {
		return 1
	}
	for i, stage := range funnelOrder {
		if stage == s {
			return float64(i) / float64(len(funnelOrder))
		}
	}
	return 0
}

// ValidateTable checks the transition table at startup: every non-terminal
// state must have at least one outgoing transition including an explicit
// disqualification path, and every target must be a known state.
func ValidateTable() error {
	for _, stage := range funnelOrder {
		outgoing, ok := transitions[stage]
		if !ok || len(outgoing) == 0 {
			return fmt.Errorf("journey: state %s has no outgoing transitions", stage)
		}
		if _, ok := outgoing[TriggerDisqualify]; !ok {
			return fmt.Errorf("journey: state %s has no disqualify path", stage)
		}
		for trigger, target := range outgoing {
			if !IsValid(target) {
				return fmt.Errorf("journey: transition (%s, %s) targets unknown state %s", stage, trigger, target)
			}
		}
	}
	for state := range transitions {
		if IsTerminal(state) {
			return fmt.Errorf("journey: terminal state %s must not have outgoing transitions", state)
		}
	}
	return nil
}
