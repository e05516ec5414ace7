// internal/engine/escalation/task.go
package escalation

import (
	"time"

	"candidate-risk-engine/internal/models"
)

// task is one candidate's in-flight escalation sequence. All fields are
// guarded by the engine's mutex; timers re-check the generation under that
// lock before acting, so a timer that fires after cancellation is a detected
// no-op.
type task struct {
	id          string
	candidateID string
	level       models.RiskLevel
	score       float64
	factors     []models.Factor
	actions     []string

	steps     []Step
	stepIndex int

	// generation is bumped on every cancellation; pending timers carry the
	// generation they were scheduled under.
	generation uint64

	timer     *time.Timer
	acked     bool
	createdAt time.Time
}

// exhausted reports whether every step has been executed. An exhausted task
// stays registered (blocking re-creation) until acknowledgment, terminal
// state, or the risk level dropping below the escalation threshold destroys
// it.
func (t *task) exhausted() bool {
	return t.stepIndex >= len(t.steps)
}

// stopTimer stops any pending step timer. Safe to call with no timer armed.
func (t *task) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
