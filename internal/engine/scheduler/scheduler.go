// Package scheduler drives periodic risk assessment over the active
// candidate population and the slower inactivity sweep.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"candidate-risk-engine/internal/common/errors"
	"candidate-risk-engine/internal/common/logger"
	"candidate-risk-engine/internal/common/metrics"
	"candidate-risk-engine/internal/models"
)

// Registry supplies a point-in-time snapshot of active (non-terminal)
// candidates. Candidates added mid-tick appear on the next tick.
type Registry interface {
	Snapshot() ([]*models.Candidate, error)
}

// Assessor runs the extract-score-escalate pipeline for one candidate.
// Implemented by the coordinator.
type Assessor interface {
	Assess(ctx context.Context, c *models.Candidate) error
}

// InactivityHandler receives candidates flagged by the sweep without a full
// score recompute.
type InactivityHandler interface {
	OnInactive(ctx context.Context, c *models.Candidate)
}

// Config holds the scheduling cadence and pool bounds.
type Config struct {
	AssessmentInterval      time.Duration
	InactivitySweepInterval time.Duration
	InactivityThreshold     time.Duration
	// WorkerPoolSize bounds per-tick concurrency; the effective pool is
	// min(candidateCount, WorkerPoolSize).
	WorkerPoolSize int
}

// Scheduler runs assessment ticks on a fixed cadence. Overlapping ticks are
// skipped, never queued, bounding load under a slow scorer.
type Scheduler struct {
	cfg      Config
	registry Registry
	assessor Assessor
	inactive InactivityHandler
	logger   logger.Logger
	reporter *errors.Reporter

	// now is the reference clock, injectable for deterministic tests.
	now func() time.Time

	tickRunning  atomic.Bool
	sweepRunning atomic.Bool
}

func New(cfg Config, registry Registry, assessor Assessor, inactive InactivityHandler, log logger.Logger) *Scheduler {
	if cfg.AssessmentInterval <= 0 {
		cfg.AssessmentInterval = 15 * time.Minute
	}
	if cfg.InactivitySweepInterval <= 0 {
		cfg.InactivitySweepInterval = 6 * time.Hour
	}
	if cfg.InactivityThreshold <= 0 {
		cfg.InactivityThreshold = 24 * time.Hour
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 32
	}
	return &Scheduler{
		cfg:      cfg,
		registry: registry,
		assessor: assessor,
		inactive: inactive,
		logger:   log.WithFields(map[string]interface{}{"component": "scheduler"}),
		reporter: errors.NewReporter(log),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, firing assessment ticks and inactivity
// sweeps on their configured intervals.
func (s *Scheduler) Run(ctx context.Context) {
	assessTicker := time.NewTicker(s.cfg.AssessmentInterval)
	defer assessTicker.Stop()
	sweepTicker := time.NewTicker(s.cfg.InactivitySweepInterval)
	defer sweepTicker.Stop()

	s.logger.Info("scheduler started", map[string]interface{}{
		"assessmentInterval": s.cfg.AssessmentInterval.String(),
		"sweepInterval":      s.cfg.InactivitySweepInterval.String(),
		"poolSize":           s.cfg.WorkerPoolSize,
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped", nil)
			return
		case <-assessTicker.C:
			go s.RunTick(ctx)
		case <-sweepTicker.C:
			go s.RunSweep(ctx)
		}
	}
}

// RunTick executes one assessment pass. If a previous tick is still running,
// this firing is skipped entirely: no duplicate assessments are produced for
// the interval.
func (s *Scheduler) RunTick(ctx context.Context) {
	if !s.tickRunning.CompareAndSwap(false, true) {
		metrics.SchedulerTicks.WithLabelValues("skipped_overlap").Inc()
		s.logger.Warn("assessment tick skipped, previous tick still running", nil)
		return
	}
	defer s.tickRunning.Store(false)

	start := s.now()

	snapshot, err := s.registry.Snapshot()
	if err != nil {
		// Fatal for this tick only; the next scheduled tick retries.
		s.reporter.Report("", errors.NewRegistryUnavailableError(err))
		metrics.SchedulerTicks.WithLabelValues("failed").Inc()
		return
	}

	if len(snapshot) > 0 {
		s.assessAll(ctx, snapshot)
	}

	elapsed := s.now().Sub(start)
	metrics.SchedulerTicks.WithLabelValues("completed").Inc()
	metrics.TickDuration.Observe(elapsed.Seconds())

	s.logger.Info("assessment tick completed", map[string]interface{}{
		"candidates": len(snapshot),
		"elapsed":    elapsed.String(),
	})
}

// assessAll fans the snapshot out over a bounded worker pool. One
// candidate's failure is logged and skipped; it never aborts the tick.
func (s *Scheduler) assessAll(ctx context.Context, snapshot []*models.Candidate) {
	poolSize := s.cfg.WorkerPoolSize
	if len(snapshot) < poolSize {
		poolSize = len(snapshot)
	}

	work := make(chan *models.Candidate)
	var wg sync.WaitGroup

	for i := 0; i < poolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				if err := s.assessor.Assess(ctx, c); err != nil {
					stdErr := s.reporter.Report(c.ID, err)
					metrics.AssessmentsFailed.WithLabelValues(string(stdErr.Code)).Inc()
				}
			}
		}()
	}

	for _, c := range snapshot {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return
		case work <- c:
		}
	}
	close(work)
	wg.Wait()
}

// RunSweep flags candidates inactive beyond the threshold. It reuses the
// registry snapshot but performs no scoring.
func (s *Scheduler) RunSweep(ctx context.Context) {
	if !s.sweepRunning.CompareAndSwap(false, true) {
		return
	}
	defer s.sweepRunning.Store(false)

	snapshot, err := s.registry.Snapshot()
	if err != nil {
		s.reporter.Report("", errors.NewRegistryUnavailableError(err))
		return
	}

	now := s.now()
	flagged := 0
	for _, c := range snapshot {
		last := c.LastActivityAt
		if last.IsZero() {
			last = c.StateEnteredAt
		}
		if last.IsZero() || now.Sub(last) < s.cfg.InactivityThreshold {
			continue
		}
		flagged++
		metrics.InactiveCandidatesFlagged.Inc()
		s.inactive.OnInactive(ctx, c)
	}

	if flagged > 0 {
		s.logger.Info("inactivity sweep completed", map[string]interface{}{
			"scanned": len(snapshot),
			"flagged": flagged,
		})
	}
}

// SetClock overrides the reference clock. Test use only.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}
