// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like ENGINE_ASSESSMENT_INTERVAL
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored when absent
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// ApplyDefaults fills every tunable the engine relies on so a partial config
// file still yields a runnable engine.
func ApplyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "risk-engine"
	}
	if cfg.App.MetricsAddr == "" {
		cfg.App.MetricsAddr = ":9102"
	}

	if cfg.Engine.AssessmentInterval <= 0 {
		cfg.Engine.AssessmentInterval = 15 * time.Minute
	}
	if cfg.Engine.InactivitySweepInterval <= 0 {
		cfg.Engine.InactivitySweepInterval = 6 * time.Hour
	}
	if cfg.Engine.InactivityThreshold <= 0 {
		cfg.Engine.InactivityThreshold = 24 * time.Hour
	}
	if cfg.Engine.WorkerPoolSize <= 0 {
		cfg.Engine.WorkerPoolSize = 32
	}
	if cfg.Engine.HistoryWindowMessages <= 0 {
		cfg.Engine.HistoryWindowMessages = 50
	}
	if cfg.Engine.HistoryWindowAge <= 0 {
		cfg.Engine.HistoryWindowAge = 30 * 24 * time.Hour
	}

	if cfg.Risk.HighThreshold <= 0 {
		cfg.Risk.HighThreshold = 0.8
	}
	if cfg.Risk.MediumThreshold <= 0 {
		cfg.Risk.MediumThreshold = 0.6
	}
	if cfg.Risk.LowThreshold <= 0 {
		cfg.Risk.LowThreshold = 0.3
	}
	if cfg.Risk.Scorer == "" {
		cfg.Risk.Scorer = "rules"
	}
	if cfg.Risk.Remote.Timeout <= 0 {
		cfg.Risk.Remote.Timeout = 5 * time.Second
	}

	if cfg.Escalation.MaxDispatchAttempts <= 0 {
		cfg.Escalation.MaxDispatchAttempts = 3
	}
	if cfg.Escalation.BackoffBase <= 0 {
		cfg.Escalation.BackoffBase = 1 * time.Second
	}
	if cfg.Escalation.BackoffFactor <= 0 {
		cfg.Escalation.BackoffFactor = 4
	}
	if len(cfg.Escalation.Policies) == 0 {
		cfg.Escalation.Policies = DefaultEscalationPolicies()
	}

	if cfg.Notifications.Slack.Timeout <= 0 {
		cfg.Notifications.Slack.Timeout = 10 * time.Second
	}
	if cfg.Notifications.Dashboard.FlagTTL <= 0 {
		cfg.Notifications.Dashboard.FlagTTL = 24 * time.Hour
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// DefaultEscalationPolicies is the built-in step table:
// HIGH escalates from an immediate alert to a broadcast after 5 minutes
// without acknowledgment; MEDIUM and LOW are single-shot.
func DefaultEscalationPolicies() map[string][]StepConfig {
	return map[string][]StepConfig{
		"HIGH": {
			{Channels: []string{"slack", "email"}, Urgent: true},
			{Channels: []string{"broadcast"}, Delay: 5 * time.Minute},
		},
		"MEDIUM": {
			{Channels: []string{"slack", "dashboard"}},
		},
		"LOW": {
			{Channels: []string{"dashboard"}},
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func Validate(cfg *Config) error {
	if !(cfg.Risk.LowThreshold < cfg.Risk.MediumThreshold && cfg.Risk.MediumThreshold < cfg.Risk.HighThreshold) {
		return fmt.Errorf("risk thresholds must be strictly increasing: low=%v medium=%v high=%v",
			cfg.Risk.LowThreshold, cfg.Risk.MediumThreshold, cfg.Risk.HighThreshold)
	}
	if cfg.Risk.HighThreshold > 1 {
		return fmt.Errorf("risk high threshold must be <= 1, got %v", cfg.Risk.HighThreshold)
	}
	if cfg.Risk.Scorer != "rules" && cfg.Risk.Scorer != "remote" {
		return fmt.Errorf("unknown scorer %q", cfg.Risk.Scorer)
	}
	if cfg.Risk.Scorer == "remote" && cfg.Risk.Remote.BaseURL == "" {
		return fmt.Errorf("remote scorer requires risk.remote.base_url")
	}
	for level, steps := range cfg.Escalation.Policies {
		if len(steps) == 0 {
			return fmt.Errorf("escalation policy for %s has no steps", level)
		}
		for i, step := range steps {
			if len(step.Channels) == 0 {
				return fmt.Errorf("escalation policy %s step %d has no channels", level, i)
			}
		}
	}
	return nil
}
