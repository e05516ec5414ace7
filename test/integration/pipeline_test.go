// test/integration/pipeline_test.go
//
// End-to-end pipeline test wired entirely in-process: ingest -> coordinator
// -> scheduler tick -> scoring -> escalation -> notification channels, with
// miniredis standing in for the dashboard and dedup stores.
package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-risk-engine/internal/common/database"
	"candidate-risk-engine/internal/common/logger"
	"candidate-risk-engine/internal/engine/coordinator"
	"candidate-risk-engine/internal/engine/escalation"
	"candidate-risk-engine/internal/engine/features"
	"candidate-risk-engine/internal/engine/journey"
	"candidate-risk-engine/internal/engine/scheduler"
	"candidate-risk-engine/internal/engine/scoring"
	"candidate-risk-engine/internal/ingest"
	"candidate-risk-engine/internal/models"
	"candidate-risk-engine/internal/notify"
	"candidate-risk-engine/internal/store"
)

var now = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

// captureSender records slack/email/broadcast sends so assertions can see
// what operators would have received.
type captureSender struct {
	mu    sync.Mutex
	sends []escalation.Payload
}

func (c *captureSender) Send(ctx context.Context, candidateID string, payload escalation.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, payload)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

type memorySink struct {
	mu          sync.Mutex
	assessments []models.RiskAssessment
}

func (s *memorySink) RecordAssessment(ctx context.Context, a models.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, a)
	return nil
}

func (s *memorySink) latestFor(candidateID string) (models.RiskAssessment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.assessments) - 1; i >= 0; i-- {
		if s.assessments[i].CandidateID == candidateID {
			return s.assessments[i], true
		}
	}
	return models.RiskAssessment{}, false
}

type harness struct {
	coord     *coordinator.Coordinator
	sched     *scheduler.Scheduler
	esc       *escalation.Engine
	parser    *ingest.Parser
	sink      *memorySink
	slack     *captureSender
	email     *captureSender
	miniredis *miniredis.Miniredis
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.NewTestLogger(t)

	mr := miniredis.RunT(t)
	redisClient := &database.RedisClient{
		Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
	}
	t.Cleanup(func() { redisClient.Close() })

	slack := &captureSender{}
	email := &captureSender{}
	dashboard := notify.NewDashboardSender(redisClient, time.Hour)

	router := notify.NewRouter(log)
	router.Register(escalation.ChannelSlack, slack)
	router.Register(escalation.ChannelEmail, email)
	router.Register(escalation.ChannelDashboard, dashboard)

	policy := escalation.Policy{
		models.RiskHigh: {
			{Channels: []escalation.Channel{escalation.ChannelSlack, escalation.ChannelEmail}, Urgent: true},
		},
		models.RiskMedium: {
			{Channels: []escalation.Channel{escalation.ChannelSlack, escalation.ChannelDashboard}},
		},
		models.RiskLow: {
			{Channels: []escalation.Channel{escalation.ChannelDashboard}},
		},
	}
	esc := escalation.NewEngine(policy, router, escalation.Config{
		MaxDispatchAttempts: 3,
		BackoffBase:         time.Millisecond,
		BackoffFactor:       2,
	}, log)

	sink := &memorySink{}
	coord := coordinator.New(
		coordinator.NewRegistry(200),
		features.NewExtractor(features.Config{}),
		scoring.NewRuleBasedScorer(),
		scoring.DefaultBreakpoints,
		esc,
		coordinator.Options{
			Sinks:              []coordinator.AssessmentSink{sink},
			Deduper:            store.NewMessageDedup(redisClient, time.Hour),
			InactivityNotifier: dashboard,
		},
		log,
	)
	coord.SetClock(func() time.Time { return now })

	sched := scheduler.New(scheduler.Config{
		InactivityThreshold: 24 * time.Hour,
		WorkerPoolSize:      4,
	}, coord.Registry(), coord, coord, log)
	sched.SetClock(func() time.Time { return now })

	parser, err := ingest.NewParser()
	require.NoError(t, err)

	return &harness{
		coord: coord, sched: sched, esc: esc,
		parser: parser, sink: sink,
		slack: slack, email: email, miniredis: mr,
	}
}

func (h *harness) ingestActivity(t *testing.T, candidateID, messageID string, age time.Duration, content string, sentiment float64) {
	t.Helper()
	raw := fmt.Sprintf(`{
		"messageId": %q,
		"candidateId": %q,
		"direction": "inbound",
		"content": %q,
		"sentiment": %v,
		"timestamp": %q
	}`, messageID, candidateID, content, sentiment, now.Add(-age).Format(time.RFC3339))

	msg, err := h.parser.Parse([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, h.coord.RegisterActivity(context.Background(), msg))
}

func TestDisengagingCandidateEscalatesAndRecovers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.coord.Register(&models.Candidate{
		ID:             "cand-risky",
		Name:           "Riley",
		CurrentState:   journey.StateTechnicalChallenge,
		StateEnteredAt: now.Add(-168 * time.Hour),
	}))

	// Sparse, slowing, increasingly negative conversation, then 25 hours of
	// silence.
	h.ingestActivity(t, "cand-risky", "m1", 80*time.Hour, "excited to start!", 0.8)
	h.ingestActivity(t, "cand-risky", "m2", 50*time.Hour, "it is a lot of work", -0.1)
	h.ingestActivity(t, "cand-risky", "m3", 25*time.Hour, "not sure I have time for this", -0.7)

	h.sched.RunTick(ctx)
	h.esc.Drain()

	a, ok := h.sink.latestFor("cand-risky")
	require.True(t, ok)
	assert.Equal(t, models.RiskHigh, a.Level)
	assert.GreaterOrEqual(t, a.Probability, 0.8)
	assert.NotEmpty(t, a.Factors)

	assert.Equal(t, 1, h.slack.count())
	assert.Equal(t, 1, h.email.count())
	assert.True(t, h.esc.HasActiveTask("cand-risky"))

	// The candidate replies: the task is acknowledged and destroyed.
	h.ingestActivity(t, "cand-risky", "m4", 0, "sorry, was traveling. Submitting tonight!", 0.6)
	assert.False(t, h.esc.HasActiveTask("cand-risky"))

	// Re-assessment must not re-notify at the same counts unless risk is
	// still high; with fresh activity the score drops out of HIGH.
	h.sched.RunTick(ctx)
	h.esc.Drain()

	fresh, ok := h.sink.latestFor("cand-risky")
	require.True(t, ok)
	assert.NotEqual(t, models.RiskHigh, fresh.Level)
}

func TestEngagedCandidateNeverEscalates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.coord.Register(&models.Candidate{
		ID:             "cand-engaged",
		Name:           "Noor",
		CurrentState:   journey.StateScreening,
		StateEnteredAt: now.Add(-20 * time.Hour),
	}))

	for i := 0; i < 12; i++ {
		h.ingestActivity(t, "cand-engaged", fmt.Sprintf("m%d", i),
			time.Duration(i)*time.Hour,
			"Here is a thoughtful, detailed reply about the role and my background with plenty of substance.",
			0.6)
	}

	h.sched.RunTick(ctx)
	h.esc.Drain()

	a, ok := h.sink.latestFor("cand-engaged")
	require.True(t, ok)
	assert.NotEqual(t, models.RiskHigh, a.Level)
	assert.Equal(t, 0, h.slack.count())
	assert.Equal(t, 0, h.email.count())
	assert.False(t, h.esc.HasActiveTask("cand-engaged"))
}

func TestHiredCandidateLeavesMonitoredPopulation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.coord.Register(&models.Candidate{
		ID:             "cand-done",
		CurrentState:   journey.StateFinalReview,
		StateEnteredAt: now.Add(-2 * time.Hour),
	}))

	require.NoError(t, h.coord.Transition(ctx, "cand-done", journey.TriggerOfferAccepted))

	h.sched.RunTick(ctx)
	h.esc.Drain()

	_, assessed := h.sink.latestFor("cand-done")
	assert.False(t, assessed, "terminal candidates are excluded from assessment")
}

func TestInactivitySweepWritesDashboardFlag(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.coord.Register(&models.Candidate{
		ID:             "cand-quiet",
		CurrentState:   journey.StateScreening,
		StateEnteredAt: now.Add(-30 * time.Hour),
	}))

	h.sched.RunSweep(ctx)

	assert.True(t, h.miniredis.Exists("risk:inactive:cand-quiet"),
		"sweep must flag the candidate on the dashboard")
}

func TestDuplicateDeliveryAcrossDedupStore(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.coord.Register(&models.Candidate{
		ID:             "cand-dup",
		CurrentState:   journey.StateScreening,
		StateEnteredAt: now.Add(-10 * time.Hour),
	}))

	h.ingestActivity(t, "cand-dup", "msg-once", time.Hour, "hello", 0.2)

	msg := models.Message{
		ID:          "msg-once",
		CandidateID: "cand-dup",
		Direction:   models.DirectionInbound,
		Content:     "hello",
		Sentiment:   0.2,
		Timestamp:   now.Add(-time.Hour),
	}
	err := h.coord.RegisterActivity(context.Background(), msg)
	require.Error(t, err, "redelivery of the same message id must be rejected")
	assert.Len(t, h.coord.Registry().History("cand-dup"), 1)
}
