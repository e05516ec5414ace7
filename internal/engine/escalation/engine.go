// internal/engine/escalation/engine.go
package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"candidate-risk-engine/internal/common/errors"
	"candidate-risk-engine/internal/common/logger"
	"candidate-risk-engine/internal/common/metrics"
	"candidate-risk-engine/internal/engine/scoring"
	"candidate-risk-engine/internal/models"
)

// Sender delivers one notification dispatch request. Implementations live in
// the notify package; the engine never renders or transmits anything itself.
type Sender interface {
	Dispatch(ctx context.Context, candidateID string, channel Channel, payload Payload) error
}

// Effect describes what an assessment did to the candidate's escalation task.
type Effect int

const (
	EffectNone Effect = iota
	EffectCreated
	EffectCancelled
)

// Config tunes dispatch retries.
type Config struct {
	MaxDispatchAttempts int
	BackoffBase         time.Duration
	BackoffFactor       int
}

// Engine owns the active-task set. At most one active task exists per
// candidate; that invariant is what prevents notification storms.
type Engine struct {
	mu    sync.Mutex
	tasks map[string]*task

	policy   Policy
	sender   Sender
	cfg      Config
	logger   logger.Logger
	reporter *errors.Reporter

	// wg tracks in-flight step executions for Drain.
	wg sync.WaitGroup
}

func NewEngine(policy Policy, sender Sender, cfg Config, log logger.Logger) *Engine {
	if cfg.MaxDispatchAttempts <= 0 {
		cfg.MaxDispatchAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 4
	}
	return &Engine{
		tasks:    make(map[string]*task),
		policy:   policy,
		sender:   sender,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "escalation"}),
		reporter: errors.NewReporter(log),
	}
}

// OnAssessment applies the policy table to a fresh assessment.
//
// HIGH/MEDIUM opens a task unless one is already active (no-op then);
// anything below MEDIUM cancels an active task. Step 1 executes immediately;
// later steps are armed on timers and advance only while unacknowledged.
func (e *Engine) OnAssessment(ctx context.Context, a models.RiskAssessment) Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, hasTask := e.tasks[a.CandidateID]

	if !escalates(a.Level) {
		effect := EffectNone
		if hasTask {
			e.cancelLocked(existing, "risk dropped below escalation threshold")
			effect = EffectCancelled
		}
		// Levels below MEDIUM never open a task, but a policy row for them
		// (LOW's dashboard flag) still dispatches once, fire and forget.
		if steps, ok := e.policy[a.Level]; ok && len(steps) > 0 {
			e.dispatchOnce(ctx, a, steps[0])
		}
		return effect
	}

	if hasTask {
		// At most one active escalation task per candidate.
		return EffectNone
	}

	steps, ok := e.policy[a.Level]
	if !ok || len(steps) == 0 {
		return EffectNone
	}

	t := &task{
		id:          uuid.NewString(),
		candidateID: a.CandidateID,
		level:       a.Level,
		score:       a.Probability,
		factors:     a.Factors,
		actions:     scoring.RecommendedActions(a.Level, a.Factors),
		steps:       steps,
		createdAt:   a.AssessedAt,
	}
	e.tasks[a.CandidateID] = t
	metrics.EscalationTasksActive.Inc()

	e.logger.Info("escalation task created", map[string]interface{}{
		"candidateId": a.CandidateID,
		"taskId":      t.id,
		"riskLevel":   string(a.Level),
		"steps":       len(steps),
	})

	e.runStepLocked(ctx, t, t.generation)
	return EffectCreated
}

// Acknowledge cancels all remaining steps for the candidate's task. Both
// operator takeover and renewed candidate activity arrive here. Returns
// whether a task was cancelled.
func (e *Engine) Acknowledge(candidateID, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[candidateID]
	if !ok {
		return false
	}
	t.acked = true
	e.cancelLocked(t, reason)
	return true
}

// CancelForCandidate destroys any active task, e.g. when the candidate
// reaches a terminal journey state.
func (e *Engine) CancelForCandidate(candidateID, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[candidateID]
	if !ok {
		return false
	}
	e.cancelLocked(t, reason)
	return true
}

// HasActiveTask reports whether the candidate currently has a task.
func (e *Engine) HasActiveTask(candidateID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.tasks[candidateID]
	return ok
}

// ActiveTaskCount returns the size of the active-task set.
func (e *Engine) ActiveTaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Drain waits for in-flight step executions to finish. Used on shutdown and
// in tests.
func (e *Engine) Drain() {
	e.wg.Wait()
}

// dispatchOnce sends a single untracked step, used for sub-escalation levels
// whose policy row has no timers or acknowledgment semantics.
func (e *Engine) dispatchOnce(ctx context.Context, a models.RiskAssessment, step Step) {
	payload := Payload{
		RiskLevel:          a.Level,
		RiskScore:          a.Probability,
		Factors:            a.Factors,
		RecommendedActions: scoring.RecommendedActions(a.Level, a.Factors),
		Target:             step.Target,
		Urgent:             step.Urgent,
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for _, ch := range step.Channels {
			if err := e.dispatchWithRetry(ctx, a.CandidateID, ch, payload); err != nil {
				e.reporter.Report(a.CandidateID, err)
				metrics.EscalationStepsDispatched.WithLabelValues(string(ch), "failed").Inc()
				continue
			}
			metrics.EscalationStepsDispatched.WithLabelValues(string(ch), "sent").Inc()
		}
	}()
}

// cancelLocked removes the task and stops its pending timer atomically with
// the state change that caused cancellation. The generation bump turns any
// already-fired timer into a detected no-op.
func (e *Engine) cancelLocked(t *task, reason string) {
	t.generation++
	t.stopTimer()
	delete(e.tasks, t.candidateID)
	metrics.EscalationTasksActive.Dec()

	e.logger.Info("escalation task cancelled", map[string]interface{}{
		"candidateId": t.candidateID,
		"taskId":      t.id,
		"stepIndex":   t.stepIndex,
		"reason":      reason,
	})
}

// runStepLocked dispatches the current step asynchronously and arms the
// timer for the next one. Caller holds e.mu.
func (e *Engine) runStepLocked(ctx context.Context, t *task, gen uint64) {
	if t.exhausted() {
		return
	}

	step := t.steps[t.stepIndex]
	stepIndex := t.stepIndex
	t.stepIndex++

	payload := Payload{
		RiskLevel:          t.level,
		RiskScore:          t.score,
		Factors:            t.factors,
		RecommendedActions: t.actions,
		Target:             step.Target,
		Urgent:             step.Urgent,
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.dispatchStep(ctx, t, step, stepIndex, payload)
	}()

	if t.stepIndex < len(t.steps) {
		next := t.steps[t.stepIndex]
		t.timer = time.AfterFunc(next.Delay, func() {
			e.onStepTimer(ctx, t, gen)
		})
	}
}

// onStepTimer advances the task when its delay elapses, unless the
// generation shows the task was acknowledged or cancelled in the meantime.
// Races resolve in favor of cancellation.
func (e *Engine) onStepTimer(ctx context.Context, t *task, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.tasks[t.candidateID]
	if !ok || current != t || t.generation != gen || t.acked {
		return
	}
	e.runStepLocked(ctx, t, gen)
}

// dispatchStep sends the step on every configured channel, retrying each
// channel independently with exponential backoff. A channel exhausting its
// retry budget marks that dispatch failed; the remaining channels and steps
// proceed unaffected.
func (e *Engine) dispatchStep(ctx context.Context, t *task, step Step, stepIndex int, payload Payload) {
	for _, ch := range step.Channels {
		if err := e.dispatchWithRetry(ctx, t.candidateID, ch, payload); err != nil {
			e.reporter.Report(t.candidateID, err)
			metrics.EscalationStepsDispatched.WithLabelValues(string(ch), "failed").Inc()
			continue
		}
		metrics.EscalationStepsDispatched.WithLabelValues(string(ch), "sent").Inc()
		e.logger.Info("escalation step dispatched", map[string]interface{}{
			"candidateId": t.candidateID,
			"taskId":      t.id,
			"stepIndex":   stepIndex,
			"channel":     string(ch),
			"riskLevel":   string(t.level),
		})
	}
}

func (e *Engine) dispatchWithRetry(ctx context.Context, candidateID string, ch Channel, payload Payload) error {
	var lastErr error
	delay := e.cfg.BackoffBase

	for attempt := 1; attempt <= e.cfg.MaxDispatchAttempts; attempt++ {
		lastErr = e.sender.Dispatch(ctx, candidateID, ch, payload)
		if lastErr == nil {
			return nil
		}

		if attempt < e.cfg.MaxDispatchAttempts {
			metrics.DispatchRetries.WithLabelValues(string(ch)).Inc()
			select {
			case <-ctx.Done():
				return errors.NewDispatchFailedError(string(ch), attempt, ctx.Err())
			case <-time.After(delay):
			}
			delay *= time.Duration(e.cfg.BackoffFactor)
		}
	}
	return errors.NewDispatchFailedError(string(ch), e.cfg.MaxDispatchAttempts, lastErr)
}
