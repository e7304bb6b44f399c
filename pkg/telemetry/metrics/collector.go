package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"courier-hq/courier/pkg/credentials"
)

const (
	namespace = "courier"
	subsystem = "relay"
)

// Collector registers and records all relay metrics. It satisfies the
// dispatch and completion observer interfaces used by the upstream client
// and the chat handler.
type Collector struct {
	registry *prometheus.Registry

	dispatches       *prometheus.CounterVec
	completions      *prometheus.CounterVec
	streamChunks     prometheus.Counter
	promptTokens     prometheus.Counter
	completionTokens prometheus.Counter

	poolCredentials *prometheus.GaugeVec
	conversations   prometheus.Gauge

	requestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector backed by its own registry. Pass nil to
// create a fresh registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_dispatches_total",
			Help:      "Upstream dispatch attempts by outcome.",
		}, []string{"outcome"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "completions_total",
			Help:      "Completed chat requests by response mode.",
		}, []string{"streaming"}),
		streamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stream_chunks_total",
			Help:      "SSE chunks delivered to clients.",
		}),
		promptTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "prompt_tokens_total",
			Help:      "Estimated prompt tokens accepted.",
		}),
		completionTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "completion_tokens_total",
			Help:      "Estimated completion tokens produced.",
		}),
		poolCredentials: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pool_credentials",
			Help:      "Credentials in the pool by state.",
		}, []string{"state"}),
		conversations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conversations",
			Help:      "Conversations currently tracked.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by path and status.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"path", "status"}),
	}

	registry.MustRegister(
		c.dispatches,
		c.completions,
		c.streamChunks,
		c.promptTokens,
		c.completionTokens,
		c.poolCredentials,
		c.conversations,
		c.requestDuration,
	)
	return c
}

// ObserveDispatch records one upstream dispatch attempt outcome.
func (c *Collector) ObserveDispatch(outcome string) {
	c.dispatches.WithLabelValues(outcome).Inc()
}

// ObserveCompletion records one finished chat request with its token usage.
func (c *Collector) ObserveCompletion(streaming bool, promptTokens, completionTokens, chunks int) {
	c.completions.WithLabelValues(strconv.FormatBool(streaming)).Inc()
	c.promptTokens.Add(float64(promptTokens))
	c.completionTokens.Add(float64(completionTokens))
	if chunks > 0 {
		c.streamChunks.Add(float64(chunks))
	}
}

// SetPoolStats publishes the credential pool's current state breakdown.
func (c *Collector) SetPoolStats(stats credentials.Stats) {
	c.poolCredentials.WithLabelValues("healthy").Set(float64(stats.Healthy))
	c.poolCredentials.WithLabelValues("cooling_down").Set(float64(stats.CoolingDown))
	c.poolCredentials.WithLabelValues("exhausted").Set(float64(stats.Exhausted))
}

// SetConversations publishes the current tracked conversation count.
func (c *Collector) SetConversations(n int) {
	c.conversations.Set(float64(n))
}

// ObserveRequest records one HTTP request's latency.
func (c *Collector) ObserveRequest(path string, status int, duration time.Duration) {
	c.requestDuration.WithLabelValues(path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// InstrumentHandler wraps an HTTP handler, recording per-request latency
// under the given path label.
func (c *Collector) InstrumentHandler(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.ObserveRequest(path, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.status = code
		sw.written = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.written = true
	return sw.ResponseWriter.Write(b)
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
