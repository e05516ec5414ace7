// internal/engine/journey/journey_test.go
package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-risk-engine/internal/common/errors"
)

func TestTransitionHappyPath(t *testing.T) {
	tests := []struct {
		name    string
		current State
		trigger Trigger
		want    State
	}{
		{"initial contact to screening", StateInitialContact, TriggerScreeningStarted, StateScreening},
		{"screening to technical challenge", StateScreening, TriggerChallengeSent, StateTechnicalChallenge},
		{"challenge to technical review", StateTechnicalChallenge, TriggerSolutionSubmitted, StateTechnicalReview},
		{"review to cultural fit", StateTechnicalReview, TriggerReviewPassed, StateCulturalFit},
		{"cultural fit to final review", StateCulturalFit, TriggerCultureFitPassed, StateFinalReview},
		{"final review to hired", StateFinalReview, TriggerOfferAccepted, StateHired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.current, tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestTransitionDisqualifyFromEveryStage(t *testing.T) {
	for _, stage := range funnelOrder {
		next, err := Transition(stage, TriggerDisqualify)
		require.NoError(t, err, "stage %s", stage)
		assert.Equal(t, StateDisqualified, next)
	}
}

func TestTransitionInvalidTrigger(t *testing.T) {
	tests := []struct {
		name    string
		current State
		trigger Trigger
	}{
		{"skip ahead from initial contact", StateInitialContact, TriggerSolutionSubmitted},
		{"backwards trigger", StateTechnicalReview, TriggerScreeningStarted},
		{"unknown trigger", StateScreening, Trigger("coffee_break")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.current, tt.trigger)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTransition))
			assert.Equal(t, tt.current, next, "state must be unchanged on rejection")
		})
	}
}

func TestTransitionFromTerminalStateRejected(t *testing.T) {
	for _, terminal := range []State{StateHired, StateDisqualified} {
		for _, trigger := range []Trigger{TriggerScreeningStarted, TriggerDisqualify, TriggerOfferAccepted} {
			next, err := Transition(terminal, trigger)
			require.Error(t, err, "terminal %s trigger %s", terminal, trigger)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTransition))
			assert.Equal(t, terminal, next)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StateHired))
	assert.True(t, IsTerminal(StateDisqualified))
	for _, stage := range funnelOrder {
		assert.False(t, IsTerminal(stage), "stage %s", stage)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(StateInitialContact))
	assert.True(t, IsValid(StateHired))
	assert.False(t, IsValid(State("limbo")))
	assert.False(t, IsValid(State("")))
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(StateInitialContact))
	assert.InDelta(t, 1.0/3.0, Progress(StateTechnicalChallenge), 1e-9)
	assert.InDelta(t, 5.0/6.0, Progress(StateFinalReview), 1e-9)
	assert.Equal(t, 1.0, Progress(StateHired))
	assert.Equal(t, 1.0, Progress(StateDisqualified))
}

func TestValidateTable(t *testing.T) {
	require.NoError(t, ValidateTable())
}
