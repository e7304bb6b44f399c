package config

import "time"

// Config is the root configuration for the relay.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Credentials   CredentialsConfig   `yaml:"credentials"`
	Challenge     ChallengeConfig     `yaml:"challenge"`
	Models        ModelsConfig        `yaml:"models"`
	Conversations ConversationsConfig `yaml:"conversations"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddress is the address the server binds to, e.g. ":8080".
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout bounds reading the request headers and body.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. Zero means unlimited, which
	// streaming responses require.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// RequestTimeout is the deadline applied to non-streaming endpoints.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ShutdownTimeout bounds graceful shutdown on SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// UpstreamConfig configures the connection to the upstream chat service.
type UpstreamConfig struct {
	// BaseURL is the upstream origin, e.g. "https://chat.example.com".
	BaseURL string `yaml:"base_url"`

	// ChatPath is the chat endpoint path on the upstream.
	ChatPath string `yaml:"chat_path"`

	// UserAgent is sent on every upstream request. The upstream's bot
	// defenses reject non-browser agents.
	UserAgent string `yaml:"user_agent"`

	// RequestTimeout bounds a non-streaming upstream call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// StreamTimeout bounds an entire streaming upstream call.
	StreamTimeout time.Duration `yaml:"stream_timeout"`

	// MaxAttempts is the number of dispatch attempts per request.
	MaxAttempts int `yaml:"max_attempts"`

	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration `yaml:"backoff_base"`

	// BackoffCap is the upper bound on a retry delay.
	BackoffCap time.Duration `yaml:"backoff_cap"`
}

// CredentialsConfig configures the credential pool.
type CredentialsConfig struct {
	// File is the YAML file holding the credential list.
	File string `yaml:"file"`

	// Watch enables hot reload when the credential file changes.
	Watch bool `yaml:"watch"`

	// MaxFailures is the consecutive failure count after which a credential
	// is removed from rotation for good.
	MaxFailures int `yaml:"max_failures"`

	// CooldownBase is the first cooldown after a failure; it doubles per
	// consecutive failure up to CooldownCap.
	CooldownBase time.Duration `yaml:"cooldown_base"`
	CooldownCap  time.Duration `yaml:"cooldown_cap"`

	// MinReuseInterval is the minimum spacing between uses of the same
	// credential. Negative disables spacing.
	MinReuseInterval time.Duration `yaml:"min_reuse_interval"`
}

// ChallengeConfig configures the anti-bot challenge token solver.
type ChallengeConfig struct {
	// Enabled turns challenge token acquisition on.
	Enabled bool `yaml:"enabled"`

	// SolverURL is the solver sidecar endpoint.
	SolverURL string `yaml:"solver_url"`

	// PageURL is the upstream page whose challenge must be solved.
	PageURL string `yaml:"page_url"`

	// Timeout bounds one solve call.
	Timeout time.Duration `yaml:"timeout"`
}

// ModelsConfig maps model identifiers to context windows.
type ModelsConfig struct {
	// Windows maps a model ID prefix to its context window in tokens.
	Windows map[string]int `yaml:"windows"`

	// DefaultWindow is used for models with no matching prefix.
	DefaultWindow int `yaml:"default_window"`
}

// ConversationsConfig configures the conversation store.
type ConversationsConfig struct {
	// MaxSessions caps the number of tracked conversations.
	MaxSessions int `yaml:"max_sessions"`

	// IdleTTL evicts conversations idle longer than this.
	IdleTTL time.Duration `yaml:"idle_ttl"`

	// SweepSchedule is a cron expression for the eviction sweep.
	SweepSchedule string `yaml:"sweep_schedule"`

	// UsageDB is the SQLite file for persisted usage counters. Empty
	// disables persistence.
	UsageDB string `yaml:"usage_db"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is json or text.
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
