// cmd/risk-engine/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	awsclient "candidate-risk-engine/internal/common/aws"
	"candidate-risk-engine/internal/common/config"
	"candidate-risk-engine/internal/common/database"
	"candidate-risk-engine/internal/common/logger"
	"candidate-risk-engine/internal/common/observability"
	"candidate-risk-engine/internal/engine/coordinator"
	"candidate-risk-engine/internal/engine/escalation"
	"candidate-risk-engine/internal/engine/features"
	"candidate-risk-engine/internal/engine/journey"
	"candidate-risk-engine/internal/engine/scheduler"
	"candidate-risk-engine/internal/engine/scoring"
	"candidate-risk-engine/internal/notify"
	"candidate-risk-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewStructured("info", "json").Error("failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting risk engine", map[string]interface{}{
		"name":        cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	if err := journey.ValidateTable(); err != nil {
		log.Error("journey transition table invalid", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// Infrastructure connections, each retried with backoff so the engine
	// survives dependencies coming up after it.
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		log.Error("failed to open postgres", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer pg.Close()
	if err := retryWithBackoff(ctx, "postgres", 5, func() error { return pg.Ping(ctx) }, log); err != nil {
		os.Exit(1)
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		log.Error("failed to open redis", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer rdb.Close()
	if err := retryWithBackoff(ctx, "redis", 5, func() error { return rdb.Ping(ctx) }, log); err != nil {
		os.Exit(1)
	}

	var feed *store.AssessmentFeed
	if cfg.Database.Elasticsearch.FeedEnabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			log.Error("failed to open elasticsearch", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		if err := retryWithBackoff(ctx, "elasticsearch", 5, es.Ping, log); err != nil {
			os.Exit(1)
		}
		feed = store.NewAssessmentFeed(es, cfg.Database.Elasticsearch.FeedIndex)
	}

	pgStore := store.NewPostgresStore(pg.DB, log)

	// Scorer selection: the rule-based reference implementation or a trained
	// model behind HTTP, both behind the same interface.
	var scorer scoring.Scorer
	switch cfg.Risk.Scorer {
	case "remote":
		remote := scoring.NewRemoteScorer(cfg.Risk.Remote.BaseURL, cfg.Risk.Remote.Timeout)
		if err := remote.Init(ctx); err != nil {
			// Not fatal: Score reports unavailable and the scheduler retries.
			log.Warn("remote scorer not ready", map[string]interface{}{"error": err.Error()})
		}
		scorer = remote
	default:
		scorer = scoring.NewRuleBasedScorer()
	}

	// Notification channels.
	router := notify.NewRouter(log)
	dashboard := notify.NewDashboardSender(rdb, cfg.Notifications.Dashboard.FlagTTL)
	router.Register(escalation.ChannelDashboard, dashboard)

	if cfg.Notifications.Slack.Enabled {
		router.Register(escalation.ChannelSlack,
			notify.NewSlackSender(cfg.Notifications.Slack.WebhookURL, cfg.Notifications.Slack.Timeout))
	}
	if cfg.Notifications.Email.Enabled {
		sesClient, err := awsclient.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			log.Error("failed to create ses client", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		router.Register(escalation.ChannelEmail,
			notify.NewEmailSender(sesClient, cfg.Notifications.Email.FromEmail, cfg.Notifications.Email.LeadEmail))
	}
	if cfg.Notifications.Broadcast.Enabled {
		snsClient, err := awsclient.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			log.Error("failed to create sns client", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		router.Register(escalation.ChannelBroadcast,
			notify.NewBroadcastSender(snsClient, cfg.Notifications.Broadcast.TopicARN))
	}

	// Escalation engine.
	policy, err := escalation.PolicyFromConfig(cfg.Escalation)
	if err != nil {
		log.Error("invalid escalation policy", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	escEngine := escalation.NewEngine(policy, router, escalation.Config{
		MaxDispatchAttempts: cfg.Escalation.MaxDispatchAttempts,
		BackoffBase:         cfg.Escalation.BackoffBase,
		BackoffFactor:       cfg.Escalation.BackoffFactor,
	}, log)

	// Coordinator and registry warm start.
	registry := coordinator.NewRegistry(cfg.Engine.HistoryWindowMessages * 4)
	extractor := features.NewExtractor(features.Config{
		MaxMessages: cfg.Engine.HistoryWindowMessages,
		MaxAge:      cfg.Engine.HistoryWindowAge,
	})
	breakpoints := scoring.Breakpoints{
		High:   cfg.Risk.HighThreshold,
		Medium: cfg.Risk.MediumThreshold,
		Low:    cfg.Risk.LowThreshold,
	}

	sinks := []coordinator.AssessmentSink{pgStore}
	if feed != nil {
		sinks = append(sinks, feed)
	}

	coord := coordinator.New(registry, extractor, scorer, breakpoints, escEngine, coordinator.Options{
		Sinks:              sinks,
		MessageSink:        pgStore,
		Deduper:            store.NewMessageDedup(rdb, 0),
		InactivityNotifier: dashboard,
		Observability:      obs,
	}, log)

	if err := warmStart(ctx, pgStore, coord, cfg.Engine.HistoryWindowMessages, log); err != nil {
		log.Warn("warm start incomplete, continuing with empty registry", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Scheduler.
	sched := scheduler.New(scheduler.Config{
		AssessmentInterval:      cfg.Engine.AssessmentInterval,
		InactivitySweepInterval: cfg.Engine.InactivitySweepInterval,
		InactivityThreshold:     cfg.Engine.InactivityThreshold,
		WorkerPoolSize:          cfg.Engine.WorkerPoolSize,
	}, registry, coord, coord, log)

	go serveMetrics(cfg.App.MetricsAddr, log)
	go sched.Run(ctx)

	log.Info("risk engine running", map[string]interface{}{
		"candidates":  registry.Count(),
		"scorer":      cfg.Risk.Scorer,
		"metricsAddr": cfg.App.MetricsAddr,
	})

	<-ctx.Done()
	log.Info("shutting down", nil)
	escEngine.Drain()
}

// warmStart rebuilds the monitored population and activity windows from the
// durable store. Persisted messages are seeded, not registered: the dedup
// store keeps its entries across restarts and would reject every replayed id
// on the RegisterActivity path.
func warmStart(ctx context.Context, pgStore *store.PostgresStore, coord *coordinator.Coordinator, historyLimit int, log logger.Logger) error {
	candidates, err := pgStore.LoadActiveCandidates(ctx)
	if err != nil {
		return err
	}

	var seeded int
	for _, c := range candidates {
		if err := coord.Register(c); err != nil {
			log.Warn("skipping candidate on warm start", map[string]interface{}{
				"candidateId": c.ID,
				"error":       err.Error(),
			})
			continue
		}
		messages, err := pgStore.RecentMessages(ctx, c.ID, historyLimit)
		if err != nil {
			log.Warn("failed to load message history", map[string]interface{}{
				"candidateId": c.ID,
				"error":       err.Error(),
			})
			continue
		}
		seeded += coord.SeedHistory(c.ID, messages)
	}

	log.Info("warm start complete", map[string]interface{}{
		"candidates": len(candidates),
		"messages":   seeded,
	})
	return nil
}

func serveMetrics(addr string, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Info("metrics server listening", map[string]interface{}{"addr": addr})
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", map[string]interface{}{"error": err.Error()})
	}
}

// retryWithBackoff retries op with exponential backoff until it succeeds or
// attempts are exhausted.
func retryWithBackoff(ctx context.Context, name string, attempts int, op func() error, log logger.Logger) error {
	delay := time.Second
	var err error
	for i := 1; i <= attempts; i++ {
		if err = op(); err == nil {
			if i > 1 {
				log.Info("dependency available", map[string]interface{}{"dependency": name, "attempt": i})
			}
			return nil
		}
		log.Warn("dependency not ready", map[string]interface{}{
			"dependency": name,
			"attempt":    i,
			"error":      err.Error(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	log.Error("dependency unavailable after retries", map[string]interface{}{
		"dependency": name,
		"error":      err.Error(),
	})
	return err
}
