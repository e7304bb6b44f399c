package config

import "time"

// Default values applied to fields left unset in the configuration file.
const (
	DefaultListenAddress   = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20

	DefaultChatPath               = "/api/chat"
	DefaultUserAgent              = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultRequestTimeoutUpstream = 30 * time.Second
	DefaultStreamTimeout          = 5 * time.Minute
	DefaultMaxAttempts            = 3
	DefaultBackoffBase            = time.Second
	DefaultBackoffCap             = 30 * time.Second

	DefaultMaxFailures      = 5
	DefaultCooldownBase     = 30 * time.Second
	DefaultCooldownCap      = 10 * time.Minute
	DefaultMinReuseInterval = time.Second

	DefaultChallengeTimeout = 60 * time.Second

	DefaultContextWindow = 8192

	DefaultMaxSessions   = 10000
	DefaultIdleTTL       = 24 * time.Hour
	DefaultSweepSchedule = "@every 10m"

	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMetricsPath = "/metrics"
)

// ApplyDefaults fills unset fields with default values. WriteTimeout is left
// at zero on purpose: a non-zero write timeout would sever long-lived
// streaming responses.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = 3600
	}

	if cfg.Upstream.ChatPath == "" {
		cfg.Upstream.ChatPath = DefaultChatPath
	}
	if cfg.Upstream.UserAgent == "" {
		cfg.Upstream.UserAgent = DefaultUserAgent
	}
	if cfg.Upstream.RequestTimeout == 0 {
		cfg.Upstream.RequestTimeout = DefaultRequestTimeoutUpstream
	}
	if cfg.Upstream.StreamTimeout == 0 {
		cfg.Upstream.StreamTimeout = DefaultStreamTimeout
	}
	if cfg.Upstream.MaxAttempts == 0 {
		cfg.Upstream.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Upstream.BackoffBase == 0 {
		cfg.Upstream.BackoffBase = DefaultBackoffBase
	}
	if cfg.Upstream.BackoffCap == 0 {
		cfg.Upstream.BackoffCap = DefaultBackoffCap
	}

	if cfg.Credentials.MaxFailures == 0 {
		cfg.Credentials.MaxFailures = DefaultMaxFailures
	}
	if cfg.Credentials.CooldownBase == 0 {
		cfg.Credentials.CooldownBase = DefaultCooldownBase
	}
	if cfg.Credentials.CooldownCap == 0 {
		cfg.Credentials.CooldownCap = DefaultCooldownCap
	}
	if cfg.Credentials.MinReuseInterval == 0 {
		cfg.Credentials.MinReuseInterval = DefaultMinReuseInterval
	}

	if cfg.Challenge.Timeout == 0 {
		cfg.Challenge.Timeout = DefaultChallengeTimeout
	}

	if cfg.Models.DefaultWindow == 0 {
		cfg.Models.DefaultWindow = DefaultContextWindow
	}

	if cfg.Conversations.MaxSessions == 0 {
		cfg.Conversations.MaxSessions = DefaultMaxSessions
	}
	if cfg.Conversations.IdleTTL == 0 {
		cfg.Conversations.IdleTTL = DefaultIdleTTL
	}
	if cfg.Conversations.SweepSchedule == "" {
		cfg.Conversations.SweepSchedule = DefaultSweepSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
