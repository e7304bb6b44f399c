package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"courier-hq/courier/pkg/config"
	"courier-hq/courier/pkg/relay/handlers"
	"courier-hq/courier/pkg/relay/middleware"
	"courier-hq/courier/pkg/telemetry/metrics"
)

// Handlers holds the route handlers the server mounts.
type Handlers struct {
	Chat          http.Handler
	Models        http.Handler
	Conversations http.Handler
	Health        *handlers.HealthHandler
}

// Server is the relay's HTTP server.
type Server struct {
	config       config.ServerConfig
	metricsCfg   config.MetricsConfig
	handlers     Handlers
	collector    *metrics.Collector
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// New creates a server. The collector is optional; when nil, no /metrics
// endpoint is mounted and requests are not instrumented.
func New(cfg config.ServerConfig, metricsCfg config.MetricsConfig, h Handlers, collector *metrics.Collector) *Server {
	return &Server{
		config:       cfg,
		metricsCfg:   metricsCfg,
		handlers:     h,
		collector:    collector,
		shutdownChan: make(chan struct{}),
	}
}

// Start runs the server and blocks until the context is cancelled, a
// shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting relay server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight requests and stops the server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("relay server stopped")
	})

	return shutdownErr
}

// Handler builds the route table and middleware chain. Chat completions are
// mounted without the request timeout wrapper so streams can outlive it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	timeout := middleware.Timeout(s.config.RequestTimeout)

	mux.Handle("POST /v1/chat/completions", s.instrument("/v1/chat/completions", s.handlers.Chat))
	mux.Handle("GET /v1/models", timeout(s.instrument("/v1/models", s.handlers.Models)))
	mux.Handle("GET /v1/conversations/{id}/status", timeout(s.instrument("/v1/conversations/status", s.handlers.Conversations)))
	mux.HandleFunc("GET /health", s.handlers.Health.Health)
	mux.HandleFunc("GET /ready", s.handlers.Health.Ready)

	if s.collector != nil && s.metricsCfg.Enabled {
		mux.Handle("GET "+s.metricsCfg.Path, s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.CORS(&middleware.CORSConfig{
		Enabled:        s.config.CORS.Enabled,
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: s.config.CORS.AllowedMethods,
		AllowedHeaders: s.config.CORS.AllowedHeaders,
		MaxAge:         s.config.CORS.MaxAge,
	})(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(handler)
	handler = middleware.Recovery(handler)

	return handler
}

func (s *Server) instrument(path string, next http.Handler) http.Handler {
	if s.collector == nil {
		return next
	}
	return s.collector.InstrumentHandler(path, next)
}
