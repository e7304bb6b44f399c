package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"courier-hq/courier/pkg/challenge"
	"courier-hq/courier/pkg/config"
	"courier-hq/courier/pkg/conversation"
	"courier-hq/courier/pkg/credentials"
	"courier-hq/courier/pkg/relay/handlers"
	"courier-hq/courier/pkg/server"
	"courier-hq/courier/pkg/telemetry/logging"
	"courier-hq/courier/pkg/telemetry/metrics"
	"courier-hq/courier/pkg/tokens"
	"courier-hq/courier/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	Long: `Start the relay server with the specified configuration.

The server accepts OpenAI-compatible chat completion requests and relays
them to the configured upstream chat service, rotating credentials and
tracking per-conversation context usage.

Examples:
  # Start with the default config
  courier run

  # Start with a custom config
  courier run --config /etc/courier/config.yaml

  # Override the listen address
  courier run --listen 0.0.0.0:8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if _, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Credential pool and optional hot reload.
	creds, err := credentials.LoadFile(cfg.Credentials.File)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	pool := credentials.NewPool(creds, credentials.PoolConfig{
		MaxFailures:      cfg.Credentials.MaxFailures,
		CooldownBase:     cfg.Credentials.CooldownBase,
		CooldownCap:      cfg.Credentials.CooldownCap,
		MinReuseInterval: cfg.Credentials.MinReuseInterval,
	})
	slog.Info("credential pool initialized", "credentials", len(creds))

	if cfg.Credentials.Watch {
		watcher := credentials.NewWatcher(cfg.Credentials.File, pool, slog.Default())
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("credential watcher stopped", "error", err)
			}
		}()
	}

	// Challenge token gateway, if a solver sidecar is configured.
	var gateway *challenge.Gateway
	if cfg.Challenge.Enabled {
		solver := challenge.NewHTTPSolver(cfg.Challenge.SolverURL, cfg.Challenge.Timeout)
		gateway = challenge.NewGateway(solver, 0)
		slog.Info("challenge solver enabled", "solver_url", cfg.Challenge.SolverURL)
	}

	// Conversation store with optional persisted usage.
	profiles := tokens.NewProfiles(cfg.Models.Windows, cfg.Models.DefaultWindow)
	var usage conversation.UsageBackend
	if cfg.Conversations.UsageDB != "" {
		sqlite, err := conversation.NewSQLiteUsage(cfg.Conversations.UsageDB)
		if err != nil {
			return fmt.Errorf("failed to open usage database: %w", err)
		}
		defer sqlite.Close()
		usage = sqlite
		slog.Info("usage persistence enabled", "path", cfg.Conversations.UsageDB)
	}
	store := conversation.NewStore(conversation.StoreConfig{
		MaxSessions: cfg.Conversations.MaxSessions,
		IdleTTL:     cfg.Conversations.IdleTTL,
	}, profiles, usage)

	sweeper, err := conversation.NewSweeper(store, cfg.Conversations.SweepSchedule)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Metrics.
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(nil)
	}

	// Upstream dispatcher.
	var dispatcherMetrics upstream.Metrics
	if collector != nil {
		dispatcherMetrics = collector
	}
	dispatcher := upstream.New(upstream.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		ChatPath:       cfg.Upstream.ChatPath,
		UserAgent:      cfg.Upstream.UserAgent,
		ChallengePage:  cfg.Challenge.PageURL,
		RequestTimeout: cfg.Upstream.RequestTimeout,
		StreamTimeout:  cfg.Upstream.StreamTimeout,
		MaxAttempts:    cfg.Upstream.MaxAttempts,
		BackoffBase:    cfg.Upstream.BackoffBase,
		BackoffCap:     cfg.Upstream.BackoffCap,
	}, pool, gateway, dispatcherMetrics)

	var chatMetrics handlers.Metrics
	if collector != nil {
		chatMetrics = collector
		go publishGauges(ctx, collector, pool, store)
	}

	srv := server.New(cfg.Server, cfg.Telemetry.Metrics, server.Handlers{
		Chat:          handlers.NewChatHandler(dispatcher, store, profiles, chatMetrics),
		Models:        handlers.NewModelsHandler(store, profiles),
		Conversations: handlers.NewConversationsHandler(store),
		Health:        handlers.NewHealthHandler(pool, store, Version),
	}, collector)

	slog.Info("starting courier",
		"version", Version,
		"upstream", cfg.Upstream.BaseURL,
		"models", profiles.Models(),
	)
	return srv.Start(ctx)
}

// publishGauges refreshes the pool and conversation gauges every 15s until
// the context is cancelled.
func publishGauges(ctx context.Context, collector *metrics.Collector, pool *credentials.Pool, store *conversation.Store) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		collector.SetPoolStats(pool.Stats())
		collector.SetConversations(store.Len())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
