// Package coordinator serializes all candidate mutations and runs the
// assessment pipeline end to end: extract, score, persist, escalate.
package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"candidate-risk-engine/internal/common/errors"
	"candidate-risk-engine/internal/common/logger"
	"candidate-risk-engine/internal/common/metrics"
	"candidate-risk-engine/internal/common/observability"
	"candidate-risk-engine/internal/engine/escalation"
	"candidate-risk-engine/internal/engine/features"
	"candidate-risk-engine/internal/engine/journey"
	"candidate-risk-engine/internal/engine/scoring"
	"candidate-risk-engine/internal/models"
)

// AssessmentSink receives every completed assessment. Sink failures are
// logged and never fail the assessment itself.
type AssessmentSink interface {
	RecordAssessment(ctx context.Context, a models.RiskAssessment) error
}

// MessageSink persists accepted activity events.
type MessageSink interface {
	RecordMessage(ctx context.Context, m models.Message) error
}

// Deduper is an optional cross-restart duplicate guard in front of the
// in-memory seen-set, typically Redis-backed.
type Deduper interface {
	// FirstSeen returns false when the message id was already registered.
	FirstSeen(ctx context.Context, candidateID, messageID string) (bool, error)
}

// InactivityNotifier surfaces sweep results to operators without a score
// recompute, typically as a dashboard flag.
type InactivityNotifier interface {
	FlagInactive(ctx context.Context, c *models.Candidate, idle time.Duration) error
}

// Coordinator is the single entry point for candidate mutations. Operations
// on the same candidate id are serialized; different candidates proceed
// concurrently.
type Coordinator struct {
	registry  *Registry
	extractor *features.Extractor
	scorer    scoring.Scorer
	bp        scoring.Breakpoints
	esc       *escalation.Engine

	sinks       []AssessmentSink
	messageSink MessageSink
	dedup       Deduper
	inactive    InactivityNotifier

	obs      *observability.Observability
	logger   logger.Logger
	reporter *errors.Reporter

	now func() time.Time
}

// Options collects the optional collaborators.
type Options struct {
	Sinks              []AssessmentSink
	MessageSink        MessageSink
	Deduper            Deduper
	InactivityNotifier InactivityNotifier
	Observability      *observability.Observability
}

func New(registry *Registry, extractor *features.Extractor, scorer scoring.Scorer, bp scoring.Breakpoints, esc *escalation.Engine, opts Options, log logger.Logger) *Coordinator {
	return &Coordinator{
		registry:    registry,
		extractor:   extractor,
		scorer:      scorer,
		bp:          bp,
		esc:         esc,
		sinks:       opts.Sinks,
		messageSink: opts.MessageSink,
		dedup:       opts.Deduper,
		inactive:    opts.InactivityNotifier,
		obs:         opts.Observability,
		logger:      log.WithFields(map[string]interface{}{"component": "coordinator"}),
		reporter:    errors.NewReporter(log),
		now:         time.Now,
	}
}

// Register adds a candidate to the monitored population. A zero state starts
// the journey at initial contact.
func (co *Coordinator) Register(c *models.Candidate) error {
	if c.CurrentState == "" {
		c.CurrentState = journey.StateInitialContact
	}
	if !journey.IsValid(c.CurrentState) {
		return errors.NewInvalidTransitionError(string(c.CurrentState), "register")
	}
	if c.StateEnteredAt.IsZero() {
		c.StateEnteredAt = co.now()
	}

	co.registry.Put(c.Clone())
	co.logger.Info("candidate registered", map[string]interface{}{
		"candidateId": c.ID,
		"state":       string(c.CurrentState),
	})
	return nil
}

// RegisterActivity records one conversation event. Duplicate message ids are
// idempotent no-ops reported as DuplicateMessageError. Renewed candidate
// activity implicitly acknowledges any in-flight escalation.
func (co *Coordinator) RegisterActivity(ctx context.Context, m models.Message) error {
	lock := co.registry.lockFor(m.CandidateID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := co.registry.Get(m.CandidateID); !ok {
		return errors.NewCandidateNotFoundError(m.CandidateID)
	}

	if co.dedup != nil {
		first, err := co.dedup.FirstSeen(ctx, m.CandidateID, m.ID)
		if err != nil {
			// Dedup store down: fall through to the in-memory guard.
			co.reporter.Report(m.CandidateID, err)
		} else if !first {
			return errors.NewDuplicateMessageError(m.ID)
		}
	}
	if !co.registry.markSeen(m.CandidateID, m.ID) {
		return errors.NewDuplicateMessageError(m.ID)
	}

	co.registry.appendMessage(m)
	if m.Direction == models.DirectionInbound {
		co.registry.update(m.CandidateID, func(c *models.Candidate) {
			if m.Timestamp.After(c.LastActivityAt) {
				c.LastActivityAt = m.Timestamp
			}
		})
		co.esc.Acknowledge(m.CandidateID, "candidate responded")
	}

	if co.messageSink != nil {
		if err := co.messageSink.RecordMessage(ctx, m); err != nil {
			co.reporter.Report(m.CandidateID, errors.NewDatabaseWriteFailedError(err))
		}
	}
	return nil
}

// SeedHistory rebuilds a candidate's activity window from already-persisted
// messages, e.g. on warm start after a restart. The cross-restart dedup store
// is deliberately not consulted: its entries outlive the process and would
// reject every replayed id, leaving the feature window empty. Seeded messages
// only feed the in-memory window and seen-set; they are not re-persisted and
// never acknowledge escalations. Returns the number of messages seeded.
func (co *Coordinator) SeedHistory(candidateID string, history []models.Message) int {
	lock := co.registry.lockFor(candidateID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok := co.registry.Get(candidateID); !ok {
		return 0
	}

	var seeded int
	for _, m := range history {
		if m.CandidateID != candidateID {
			continue
		}
		if !co.registry.markSeen(candidateID, m.ID) {
			continue
		}
		co.registry.appendMessage(m)
		if m.Direction == models.DirectionInbound {
			co.registry.update(candidateID, func(c *models.Candidate) {
				if m.Timestamp.After(c.LastActivityAt) {
					c.LastActivityAt = m.Timestamp
				}
			})
		}
		seeded++
	}

	co.logger.Debug("activity window seeded", map[string]interface{}{
		"candidateId": candidateID,
		"messages":    seeded,
	})
	return seeded
}

// Transition moves a candidate through the journey state machine. An invalid
// trigger leaves the state untouched and returns InvalidTransitionError.
// Reaching a terminal state destroys any active escalation task.
func (co *Coordinator) Transition(ctx context.Context, candidateID string, trigger journey.Trigger) error {
	lock := co.registry.lockFor(candidateID)
	lock.Lock()
	defer lock.Unlock()

	current, ok := co.registry.Get(candidateID)
	if !ok {
		return errors.NewCandidateNotFoundError(candidateID)
	}

	next, err := journey.Transition(current.CurrentState, trigger)
	if err != nil {
		return err
	}

	now := co.now()
	co.registry.update(candidateID, func(c *models.Candidate) {
		c.Transitions = append(c.Transitions, journey.TransitionRecord{
			State:     next,
			Previous:  c.CurrentState,
			Trigger:   trigger,
			Timestamp: now,
		})
		c.CurrentState = next
		c.StateEnteredAt = now
	})

	co.logger.Info("journey transition", map[string]interface{}{
		"candidateId": candidateID,
		"from":        string(current.CurrentState),
		"to":          string(next),
		"trigger":     string(trigger),
	})

	if journey.IsTerminal(next) {
		co.esc.CancelForCandidate(candidateID, "journey reached terminal state")
	}
	return nil
}

// RequestTakeoverAck records an operator taking over the conversation,
// cancelling all remaining escalation steps. Returns false when no task was
// active.
func (co *Coordinator) RequestTakeoverAck(candidateID, operator string) bool {
	acked := co.esc.Acknowledge(candidateID, "operator takeover")
	if acked {
		co.logger.Info("takeover acknowledged", map[string]interface{}{
			"candidateId": candidateID,
			"operator":    operator,
		})
	}
	return acked
}

// Assess runs the full pipeline for one candidate. Called by the scheduler
// with a snapshot copy; the live record is re-read under the candidate lock
// so activity that arrived after the snapshot is included. Scoring itself is
// read-only and may block on a remote model call, so it runs outside the
// lock; activity and transitions for the candidate proceed while a model
// call is in flight.
func (co *Coordinator) Assess(ctx context.Context, snapshot *models.Candidate) error {
	lock := co.registry.lockFor(snapshot.ID)
	lock.Lock()

	c, ok := co.registry.Get(snapshot.ID)
	if !ok {
		lock.Unlock()
		return errors.NewCandidateNotFoundError(snapshot.ID)
	}
	if !c.Active() {
		// Reached a terminal state between snapshot and assessment.
		lock.Unlock()
		return nil
	}

	start := co.now()
	history := co.registry.History(c.ID)
	lock.Unlock()

	vector := co.extractor.Extract(c, history, start)
	probability, factors, err := co.scorer.Score(ctx, vector)
	if err != nil {
		if co.obs != nil {
			co.obs.RecordAssessmentDuration(ctx, co.now().Sub(start), "failed")
		}
		if errors.IsCode(err, errors.ErrCodeScorerUnavailable) {
			return err
		}
		return errors.NewScoringFailedError(c.ID, err)
	}

	level := scoring.LevelFor(probability, co.bp)
	assessment := models.RiskAssessment{
		ID:          uuid.NewString(),
		CandidateID: c.ID,
		Probability: probability,
		Level:       level,
		Factors:     factors,
		AssessedAt:  start,
	}

	lock.Lock()
	defer lock.Unlock()

	if live, ok := co.registry.Get(c.ID); !ok || !live.Active() {
		// The candidate left the monitored population while the scorer ran;
		// the result is stale and must not escalate or persist.
		return nil
	}

	co.registry.update(c.ID, func(live *models.Candidate) {
		live.LastRiskScore = probability
		live.LastAssessedAt = start
	})

	for _, sink := range co.sinks {
		if err := sink.RecordAssessment(ctx, assessment); err != nil {
			co.reporter.Report(c.ID, errors.NewDatabaseWriteFailedError(err))
		}
	}

	co.esc.OnAssessment(ctx, assessment)

	metrics.AssessmentsCompleted.WithLabelValues(string(level)).Inc()
	if co.obs != nil {
		co.obs.RecordAssessment(ctx, string(level))
		co.obs.RecordAssessmentDuration(ctx, co.now().Sub(start), "completed")
	}

	co.logger.Debug("assessment completed", map[string]interface{}{
		"candidateId": c.ID,
		"probability": probability,
		"riskLevel":   string(level),
		"factors":     len(factors),
	})
	return nil
}

// OnInactive handles an inactivity sweep hit. It flags the candidate for
// operators without recomputing the score.
func (co *Coordinator) OnInactive(ctx context.Context, c *models.Candidate) {
	last := c.LastActivityAt
	if last.IsZero() {
		last = c.StateEnteredAt
	}
	idle := co.now().Sub(last)

	co.logger.Warn("candidate inactive beyond threshold", map[string]interface{}{
		"candidateId": c.ID,
		"state":       string(c.CurrentState),
		"idleHours":   idle.Hours(),
	})

	if co.inactive != nil {
		if err := co.inactive.FlagInactive(ctx, c, idle); err != nil {
			co.reporter.Report(c.ID, err)
		}
	}
}

// Registry exposes the underlying registry, e.g. for the scheduler snapshot.
func (co *Coordinator) Registry() *Registry {
	return co.registry
}

// SetClock overrides the reference clock. Test use only.
func (co *Coordinator) SetClock(now func() time.Time) {
	co.now = now
}
