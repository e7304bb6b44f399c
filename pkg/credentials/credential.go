package credentials

import (
	"time"
)

// State is the lifecycle state of a credential.
type State string

const (
	// StateHealthy means the credential is eligible for selection.
	StateHealthy State = "healthy"
	// StateCoolingDown means the credential failed recently and is waiting
	// out its cooldown window.
	StateCoolingDown State = "cooling_down"
	// StateExhausted means the credential failed past the ceiling. This is
	// terminal; the pool never returns an exhausted credential again.
	StateExhausted State = "exhausted"
)

// FailureReason classifies why a credential failed.
type FailureReason string

const (
	// ReasonForbidden means the upstream rejected the credential (HTTP 403).
	ReasonForbidden FailureReason = "forbidden"
	// ReasonRateLimited means the upstream throttled the credential (HTTP 429).
	ReasonRateLimited FailureReason = "rate_limited"
	// ReasonNetwork means the request failed before a response arrived.
	ReasonNetwork FailureReason = "network"
)

// Credential is one upstream identity: a session token plus its cf_clearance
// companion cookie. Credentials are owned by the Pool and must only be
// mutated through pool operations.
type Credential struct {
	// Name identifies the credential in configuration and logs.
	Name string

	// SessionToken is the upstream session cookie value.
	SessionToken string

	// Clearance is the cf_clearance anti-bot cookie value.
	Clearance string

	state        State
	failureCount int
	lastFailure  time.Time
	lastUsed     time.Time
}

// State returns the credential's current lifecycle state.
func (c *Credential) State() State {
	return c.state
}

// FailureCount returns the number of consecutive failures.
func (c *Credential) FailureCount() int {
	return c.failureCount
}

// Fragment returns a short prefix of the session token safe for logging.
// Full credential material must never reach logs or error messages.
func (c *Credential) Fragment() string {
	const n = 8
	if len(c.SessionToken) <= n {
		return c.SessionToken
	}
	return c.SessionToken[:n] + "..."
}
