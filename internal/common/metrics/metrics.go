// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssessmentsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_assessments_completed_total",
			Help: "Total number of risk assessments produced, by risk level",
		},
		[]string{"risk_level"},
	)

	AssessmentsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_assessments_failed_total",
			Help: "Total number of per-candidate assessment failures",
		},
		[]string{"error_code"},
	)

	SchedulerTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_scheduler_ticks_total",
			Help: "Scheduler tick outcomes (completed, skipped_overlap, failed)",
		},
		[]string{"outcome"},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "engine_tick_duration_seconds",
			Help: "Duration of one full assessment pass over the active population",
		},
	)

	EscalationTasksActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_escalation_tasks_active",
			Help: "Number of escalation tasks currently in flight",
		},
	)

	EscalationStepsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_escalation_steps_dispatched_total",
			Help: "Escalation notification steps dispatched, by channel and status",
		},
		[]string{"channel", "status"},
	)

	DispatchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_dispatch_retries_total",
			Help: "Notification dispatch retry attempts, by channel",
		},
		[]string{"channel"},
	)

	InactiveCandidatesFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_inactive_candidates_flagged_total",
			Help: "Candidates flagged by the inactivity sweep",
		},
	)
)
