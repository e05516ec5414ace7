// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Engine        EngineConfig       `mapstructure:"engine"`
	Risk          RiskConfig         `mapstructure:"risk"`
	Escalation    EscalationConfig   `mapstructure:"escalation"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	FeedIndex     string   `mapstructure:"feed_index"`
	FeedEnabled   bool     `mapstructure:"feed_enabled"`
}

// EngineConfig holds the scheduling and population-scan settings.
type EngineConfig struct {
	AssessmentInterval      time.Duration `mapstructure:"assessment_interval"`
	InactivitySweepInterval time.Duration `mapstructure:"inactivity_sweep_interval"`
	InactivityThreshold     time.Duration `mapstructure:"inactivity_threshold"`
	WorkerPoolSize          int           `mapstructure:"worker_pool_size"`
	HistoryWindowMessages   int           `mapstructure:"history_window_messages"`
	HistoryWindowAge        time.Duration `mapstructure:"history_window_age"`
}

// RiskConfig holds scoring breakpoints and scorer selection.
type RiskConfig struct {
	HighThreshold   float64 `mapstructure:"high_threshold"`
	MediumThreshold float64 `mapstructure:"medium_threshold"`
	LowThreshold    float64 `mapstructure:"low_threshold"`

	// Scorer is "rules" or "remote".
	Scorer string       `mapstructure:"scorer"`
	Remote RemoteScorer `mapstructure:"remote"`
}

type RemoteScorer struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EscalationConfig holds the per-level step tables and dispatch retry policy.
type EscalationConfig struct {
	// Policies maps a risk level name (HIGH, MEDIUM, LOW) to its ordered steps.
	Policies map[string][]StepConfig `mapstructure:"policies"`

	MaxDispatchAttempts int           `mapstructure:"max_dispatch_attempts"`
	BackoffBase         time.Duration `mapstructure:"backoff_base"`
	BackoffFactor       int           `mapstructure:"backoff_factor"`
}

// StepConfig is one notification step in an escalation sequence. Delay is
// measured from completion of the previous step; zero means immediate.
type StepConfig struct {
	Channels []string      `mapstructure:"channels"`
	Target   string        `mapstructure:"target"`
	Delay    time.Duration `mapstructure:"delay"`
	Urgent   bool          `mapstructure:"urgent"`
}

// NotificationConfig holds settings for the channel senders.
type NotificationConfig struct {
	Slack struct {
		Enabled    bool          `mapstructure:"enabled"`
		WebhookURL string        `mapstructure:"webhook_url"`
		Timeout    time.Duration `mapstructure:"timeout"`
	} `mapstructure:"slack"`

	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		LeadEmail string `mapstructure:"lead_email"`
	} `mapstructure:"email"`

	Broadcast struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"broadcast"`

	Dashboard struct {
		FlagTTL time.Duration `mapstructure:"flag_ttl"`
	} `mapstructure:"dashboard"`

	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
