package upstream

import (
	"fmt"
	"time"
)

// AuthError means the upstream rejected the credential (HTTP 403). The
// dispatcher retries these with a different credential; the error surfaces
// only when rotation runs out of attempts.
type AuthError struct {
	// Message is the upstream's error body, truncated.
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream rejected credentials: %s", e.Message)
}

// RateLimitError means the upstream throttled the request (HTTP 429).
type RateLimitError struct {
	// RetryAfter is the upstream-provided wait, if any.
	RetryAfter time.Duration

	// Message is the upstream's error body, truncated.
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("upstream rate limit exceeded (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("upstream rate limit exceeded: %s", e.Message)
}

// FatalError is a non-retryable upstream failure: any 4xx other than
// 403/429. It surfaces to the caller without retry.
type FatalError struct {
	// StatusCode is the upstream HTTP status.
	StatusCode int

	// Message is the upstream's error body, truncated.
	Message string
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
}

// TimeoutError means the upstream call exceeded its mode-specific deadline.
type TimeoutError struct {
	// Timeout is the deadline that was exceeded.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("upstream request timed out after %s", e.Timeout)
}

// UnavailableError means the request failed before any response arrived.
type UnavailableError struct {
	// Cause is the underlying network error.
	Cause error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// StreamError means the upstream event stream failed mid-flight. Content
// emitted before the failure is preserved by the translator.
type StreamError struct {
	// Message describes where the stream broke.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream stream error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("upstream stream error: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// ParseError means the upstream returned a malformed response or event.
type ParseError struct {
	// RawResponse is the payload that failed to parse, truncated.
	RawResponse string

	// Cause is the underlying parse error.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("upstream response parse error: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// truncate bounds upstream error bodies so they stay log- and client-safe.
func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
