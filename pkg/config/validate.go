package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors that would prevent the relay
// from working. It returns the first error found.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return &ValidationError{Field: "server.listen_address", Message: "must not be empty"}
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return &ValidationError{Field: "server.shutdown_timeout", Message: "must not be negative"}
	}

	if cfg.Upstream.BaseURL == "" {
		return &ValidationError{Field: "upstream.base_url", Message: "is required"}
	}
	if err := validateURL(cfg.Upstream.BaseURL); err != nil {
		return &ValidationError{Field: "upstream.base_url", Message: err.Error()}
	}
	if !strings.HasPrefix(cfg.Upstream.ChatPath, "/") {
		return &ValidationError{Field: "upstream.chat_path", Message: "must start with /"}
	}
	if cfg.Upstream.MaxAttempts < 1 {
		return &ValidationError{Field: "upstream.max_attempts", Message: "must be at least 1"}
	}
	if cfg.Upstream.BackoffBase <= 0 {
		return &ValidationError{Field: "upstream.backoff_base", Message: "must be positive"}
	}
	if cfg.Upstream.BackoffCap < cfg.Upstream.BackoffBase {
		return &ValidationError{Field: "upstream.backoff_cap", Message: "must be at least backoff_base"}
	}

	if cfg.Credentials.File == "" {
		return &ValidationError{Field: "credentials.file", Message: "is required"}
	}
	if cfg.Credentials.MaxFailures < 1 {
		return &ValidationError{Field: "credentials.max_failures", Message: "must be at least 1"}
	}
	if cfg.Credentials.CooldownBase <= 0 {
		return &ValidationError{Field: "credentials.cooldown_base", Message: "must be positive"}
	}

	if cfg.Challenge.Enabled {
		if cfg.Challenge.SolverURL == "" {
			return &ValidationError{Field: "challenge.solver_url", Message: "is required when challenge is enabled"}
		}
		if err := validateURL(cfg.Challenge.SolverURL); err != nil {
			return &ValidationError{Field: "challenge.solver_url", Message: err.Error()}
		}
		if cfg.Challenge.PageURL == "" {
			return &ValidationError{Field: "challenge.page_url", Message: "is required when challenge is enabled"}
		}
	}

	for model, window := range cfg.Models.Windows {
		if window < 1 {
			return &ValidationError{
				Field:   fmt.Sprintf("models.windows[%s]", model),
				Message: "context window must be positive",
			}
		}
	}
	if cfg.Models.DefaultWindow < 1 {
		return &ValidationError{Field: "models.default_window", Message: "must be positive"}
	}

	if cfg.Conversations.MaxSessions < 1 {
		return &ValidationError{Field: "conversations.max_sessions", Message: "must be at least 1"}
	}
	if cfg.Conversations.IdleTTL <= 0 {
		return &ValidationError{Field: "conversations.idle_ttl", Message: "must be positive"}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q, want debug, info, warn, or error", cfg.Telemetry.Logging.Level),
		}
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown format %q, want json or text", cfg.Telemetry.Logging.Format),
		}
	}
	if cfg.Telemetry.Metrics.Enabled && !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
		return &ValidationError{Field: "telemetry.metrics.path", Message: "must start with /"}
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	return nil
}
