package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults and
// environment overrides, and validates the result. Environment variables
// follow the convention COURIER_SECTION_FIELD and take precedence over
// file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString("COURIER_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("COURIER_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("COURIER_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("COURIER_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	setDuration("COURIER_SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	setDuration("COURIER_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("COURIER_UPSTREAM_BASE_URL", &cfg.Upstream.BaseURL)
	setString("COURIER_UPSTREAM_CHAT_PATH", &cfg.Upstream.ChatPath)
	setString("COURIER_UPSTREAM_USER_AGENT", &cfg.Upstream.UserAgent)
	setDuration("COURIER_UPSTREAM_REQUEST_TIMEOUT", &cfg.Upstream.RequestTimeout)
	setDuration("COURIER_UPSTREAM_STREAM_TIMEOUT", &cfg.Upstream.StreamTimeout)
	setInt("COURIER_UPSTREAM_MAX_ATTEMPTS", &cfg.Upstream.MaxAttempts)
	setDuration("COURIER_UPSTREAM_BACKOFF_BASE", &cfg.Upstream.BackoffBase)
	setDuration("COURIER_UPSTREAM_BACKOFF_CAP", &cfg.Upstream.BackoffCap)

	setString("COURIER_CREDENTIALS_FILE", &cfg.Credentials.File)
	setBool("COURIER_CREDENTIALS_WATCH", &cfg.Credentials.Watch)
	setInt("COURIER_CREDENTIALS_MAX_FAILURES", &cfg.Credentials.MaxFailures)
	setDuration("COURIER_CREDENTIALS_COOLDOWN_BASE", &cfg.Credentials.CooldownBase)
	setDuration("COURIER_CREDENTIALS_COOLDOWN_CAP", &cfg.Credentials.CooldownCap)
	setDuration("COURIER_CREDENTIALS_MIN_REUSE_INTERVAL", &cfg.Credentials.MinReuseInterval)

	setBool("COURIER_CHALLENGE_ENABLED", &cfg.Challenge.Enabled)
	setString("COURIER_CHALLENGE_SOLVER_URL", &cfg.Challenge.SolverURL)
	setString("COURIER_CHALLENGE_PAGE_URL", &cfg.Challenge.PageURL)
	setDuration("COURIER_CHALLENGE_TIMEOUT", &cfg.Challenge.Timeout)

	setInt("COURIER_CONVERSATIONS_MAX_SESSIONS", &cfg.Conversations.MaxSessions)
	setDuration("COURIER_CONVERSATIONS_IDLE_TTL", &cfg.Conversations.IdleTTL)
	setString("COURIER_CONVERSATIONS_SWEEP_SCHEDULE", &cfg.Conversations.SweepSchedule)
	setString("COURIER_CONVERSATIONS_USAGE_DB", &cfg.Conversations.UsageDB)

	setString("COURIER_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("COURIER_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("COURIER_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("COURIER_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
}

func setString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
