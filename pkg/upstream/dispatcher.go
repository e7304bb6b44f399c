package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"courier-hq/courier/pkg/challenge"
	"courier-hq/courier/pkg/credentials"
)

// Config configures the dispatcher.
type Config struct {
	// BaseURL is the upstream service root, e.g. "https://chat.example.com".
	BaseURL string

	// ChatPath is the chat endpoint path. Default: "/api/chat".
	ChatPath string

	// UserAgent is the browser-identifying header sent on every request.
	// The upstream's bot defense rejects requests without one, and is
	// especially strict on streaming connections.
	UserAgent string

	// ChallengePage is the page the challenge solver targets.
	ChallengePage string

	// RequestTimeout bounds non-streaming calls. Default: 30s.
	RequestTimeout time.Duration

	// StreamTimeout bounds streaming calls, which stay open for the whole
	// generation. Default: 5m.
	StreamTimeout time.Duration

	// MaxAttempts is the attempt ceiling per dispatch. Default: 3.
	MaxAttempts int

	// BackoffBase is the delay before the second attempt; later attempts
	// double it. Default: 1s.
	BackoffBase time.Duration

	// BackoffCap bounds the backoff delay. Default: 30s.
	BackoffCap time.Duration
}

// ApplyDefaults fills zero fields with default values.
func (c *Config) ApplyDefaults() {
	if c.ChatPath == "" {
		c.ChatPath = "/api/chat"
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
}

// Metrics receives dispatch observations. Implementations must be safe for
// concurrent use; a nil Metrics disables observation.
type Metrics interface {
	// ObserveDispatch records the outcome of one attempt: "success",
	// "forbidden", "rate_limited", "fatal", or "network".
	ObserveDispatch(outcome string)
}

// Dispatcher sends requests upstream with credential rotation, retry, and
// backoff. It is safe for concurrent use; each call runs its own attempt
// loop over the shared pool.
type Dispatcher struct {
	config  Config
	pool    *credentials.Pool
	gateway *challenge.Gateway
	client  *http.Client
	metrics Metrics
}

// New creates a dispatcher. The gateway and metrics may be nil.
func New(cfg Config, pool *credentials.Pool, gateway *challenge.Gateway, m Metrics) *Dispatcher {
	cfg.ApplyDefaults()

	// No client-level timeout: streaming bodies are read long after the
	// call returns, so deadlines are carried by per-attempt contexts.
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 32,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}

	return &Dispatcher{
		config:  cfg,
		pool:    pool,
		gateway: gateway,
		client:  client,
		metrics: m,
	}
}

// Dispatch sends the chat payload upstream and returns the raw HTTP
// response with its body open. For streaming payloads the caller consumes
// the body through NewReader; closing the body releases the attempt's
// deadline.
//
// The attempt loop classifies failures per attempt:
//
//	403           rotate to a different credential, refresh challenge token
//	429           back off, then retry
//	other 4xx     fatal, surfaced immediately
//	5xx, network  back off, then retry
//
// When the pool is exhausted the loop fails fast with
// credentials.ErrPoolExhausted.
func (d *Dispatcher) Dispatch(ctx context.Context, payload *ChatPayload) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream payload: %w", err)
	}

	var lastErr error
	var backoff time.Duration
	excluded := ""

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		if backoff > 0 {
			slog.Debug("backing off before retry",
				"attempt", attempt,
				"backoff", backoff.String(),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		cred, err := d.pool.NextExcluding(excluded)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		resp, attemptErr := d.attempt(ctx, cred, body, payload.Stream, attempt)
		if attemptErr == nil {
			return resp, nil
		}
		lastErr = attemptErr

		switch e := attemptErr.(type) {
		case *AuthError:
			// Never retry the same credential after a 403, and drop the
			// cached challenge token in case it was the problem.
			d.pool.MarkFailure(cred, credentials.ReasonForbidden)
			excluded = cred.Name
			if d.gateway != nil {
				d.gateway.Invalidate(d.config.ChallengePage)
			}
			backoff = 0
		case *RateLimitError:
			d.pool.MarkFailure(cred, credentials.ReasonRateLimited)
			backoff = d.backoff(attempt)
			if e.RetryAfter > backoff {
				backoff = e.RetryAfter
			}
		case *FatalError:
			return nil, attemptErr
		case *TimeoutError, *UnavailableError:
			d.pool.MarkFailure(cred, credentials.ReasonNetwork)
			backoff = d.backoff(attempt)
		default:
			if errors.Is(attemptErr, context.Canceled) {
				return nil, attemptErr
			}
			backoff = d.backoff(attempt)
		}
	}

	slog.Warn("dispatch attempts exhausted",
		"max_attempts", d.config.MaxAttempts,
		"error", lastErr,
	)
	return nil, lastErr
}

// attempt performs one PREPARING/SENDING cycle with the given credential.
func (d *Dispatcher) attempt(ctx context.Context, cred *credentials.Credential, body []byte, streaming bool, attempt int) (*http.Response, error) {
	timeout := d.config.RequestTimeout
	if streaming {
		timeout = d.config.StreamTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, d.config.BaseURL+d.config.ChatPath, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.config.UserAgent)
	if streaming {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "*/*")
	}

	cookie := "session=" + cred.SessionToken
	if cred.Clearance != "" {
		cookie += "; cf_clearance=" + cred.Clearance
	}
	req.Header.Set("Cookie", cookie)

	if d.gateway != nil {
		// Best effort: most endpoints accept requests without a token.
		token, err := d.gateway.Token(attemptCtx, d.config.ChallengePage)
		switch {
		case err == nil:
			req.Header.Set("X-Challenge-Token", token.Value)
		case errors.Is(err, challenge.ErrUnavailable):
			slog.Debug("proceeding without challenge token", "attempt", attempt)
		default:
			slog.Debug("challenge token lookup failed", "attempt", attempt, "error", err)
		}
	}

	slog.Info("dispatching upstream request",
		"attempt", attempt,
		"credential", cred.Fragment(),
		"streaming", streaming,
	)

	resp, err := d.client.Do(req)
	if err != nil {
		cancel()
		d.observe("network")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attemptCtx.Err() == context.DeadlineExceeded {
			slog.Warn("upstream request timed out",
				"attempt", attempt,
				"credential", cred.Fragment(),
				"timeout", timeout.String(),
			)
			return nil, &TimeoutError{Timeout: timeout}
		}
		slog.Warn("upstream request failed",
			"attempt", attempt,
			"credential", cred.Fragment(),
			"error", err,
		)
		return nil, &UnavailableError{Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		d.pool.MarkSuccess(cred)
		d.observe("success")
		slog.Info("upstream request succeeded",
			"attempt", attempt,
			"credential", cred.Fragment(),
			"status", resp.StatusCode,
		)
		// The caller owns the body; the attempt deadline is released when
		// the body is closed.
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	cancel()

	slog.Warn("upstream request rejected",
		"attempt", attempt,
		"credential", cred.Fragment(),
		"status", resp.StatusCode,
	)

	switch {
	case resp.StatusCode == http.StatusForbidden:
		d.observe("forbidden")
		return nil, &AuthError{Message: truncate(errorBody)}
	case resp.StatusCode == http.StatusTooManyRequests:
		d.observe("rate_limited")
		return nil, &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    truncate(errorBody),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		d.observe("fatal")
		return nil, &FatalError{StatusCode: resp.StatusCode, Message: truncate(errorBody)}
	default:
		d.observe("network")
		return nil, &UnavailableError{
			Cause: fmt.Errorf("upstream returned status %d", resp.StatusCode),
		}
	}
}

// backoff returns the delay before the next attempt: base doubled per
// completed attempt, capped.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.config.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= d.config.BackoffCap {
			return d.config.BackoffCap
		}
	}
	return delay
}

func (d *Dispatcher) observe(outcome string) {
	if d.metrics != nil {
		d.metrics.ObserveDispatch(outcome)
	}
}

// cancelOnClose ties an attempt's context cancellation to the response body
// lifetime so streaming reads keep their deadline until the stream closes.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

// Close implements io.Closer.
func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// parseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
