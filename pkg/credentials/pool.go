package credentials

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrPoolExhausted is returned by Next when no credential is eligible.
var ErrPoolExhausted = errors.New("credential pool exhausted: no healthy credentials available")

// PoolConfig configures failure and cooldown policy for the pool.
type PoolConfig struct {
	// MaxFailures is the failure ceiling; a credential whose failure count
	// exceeds it transitions to the terminal exhausted state.
	// Default: 5
	MaxFailures int

	// CooldownBase is the cooldown after the first failure. Subsequent
	// failures double it, up to CooldownCap.
	// Default: 30s
	CooldownBase time.Duration

	// CooldownCap bounds the exponential cooldown.
	// Default: 10m
	CooldownCap time.Duration

	// MinReuseInterval is the minimum spacing between consecutive uses of
	// the same credential. Entries used more recently are skipped for a
	// rotation but stay eligible.
	// Default: 1s
	MinReuseInterval time.Duration
}

// ApplyDefaults fills zero fields with default values.
func (c *PoolConfig) ApplyDefaults() {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.CooldownBase <= 0 {
		c.CooldownBase = 30 * time.Second
	}
	if c.CooldownCap <= 0 {
		c.CooldownCap = 10 * time.Minute
	}
	if c.MinReuseInterval < 0 {
		c.MinReuseInterval = 0
	} else if c.MinReuseInterval == 0 {
		c.MinReuseInterval = time.Second
	}
}

// Stats is a point-in-time snapshot of pool health.
type Stats struct {
	Total       int            `json:"total"`
	Healthy     int            `json:"healthy"`
	CoolingDown int            `json:"cooling_down"`
	Exhausted   int            `json:"exhausted"`
	Failures    map[string]int `json:"failures"`
}

// Pool rotates through upstream credentials round-robin, skipping entries
// that are cooling down or exhausted. All methods are safe for concurrent
// use.
type Pool struct {
	mu     sync.Mutex
	config PoolConfig
	creds  []*Credential
	next   int
}

// NewPool creates a pool over the given credentials. The slice is adopted;
// callers must not retain references to its elements.
func NewPool(creds []*Credential, cfg PoolConfig) *Pool {
	cfg.ApplyDefaults()
	for _, c := range creds {
		if c.state == "" {
			c.state = StateHealthy
		}
	}
	return &Pool{config: cfg, creds: creds}
}

// Next returns the next eligible credential round-robin, or ErrPoolExhausted
// when none is eligible. Credentials cooling down become eligible again once
// their cooldown window has elapsed.
func (p *Pool) Next() (*Credential, error) {
	return p.NextExcluding("")
}

// NextExcluding is Next but skips the named credential. The dispatcher uses
// it after a 403 so the same credential is never retried back to back.
func (p *Pool) NextExcluding(excludeName string) (*Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.creds) == 0 {
		return nil, ErrPoolExhausted
	}

	now := time.Now()

	// First pass honors the minimum reuse interval; the second ignores it so
	// a single-credential pool is not starved by its own spacing rule.
	for _, respectSpacing := range []bool{true, false} {
		for range p.creds {
			c := p.creds[p.next]
			p.next = (p.next + 1) % len(p.creds)

			if c.Name == excludeName {
				continue
			}
			if !p.eligible(c, now) {
				continue
			}
			if respectSpacing && now.Sub(c.lastUsed) < p.config.MinReuseInterval {
				continue
			}

			c.lastUsed = now
			if c.state == StateCoolingDown {
				// Cooldown elapsed; give it another chance.
				c.state = StateHealthy
				slog.Debug("credential recovered from cooldown",
					"credential", c.Fragment(),
					"failure_count", c.failureCount,
				)
			}
			return c, nil
		}
	}

	return nil, ErrPoolExhausted
}

// eligible reports whether a credential may be selected at the given time.
// Callers must hold p.mu.
func (p *Pool) eligible(c *Credential, now time.Time) bool {
	switch c.state {
	case StateHealthy:
		return true
	case StateCoolingDown:
		return now.Sub(c.lastFailure) >= p.cooldown(c.failureCount)
	default:
		return false
	}
}

// cooldown returns the backoff window for a failure count: base doubled per
// additional failure, capped.
func (p *Pool) cooldown(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := p.config.CooldownBase
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= p.config.CooldownCap {
			return p.config.CooldownCap
		}
	}
	if d > p.config.CooldownCap {
		d = p.config.CooldownCap
	}
	return d
}

// MarkFailure records a failure against the credential. The credential moves
// to cooling_down, or to the terminal exhausted state once its failure count
// exceeds the ceiling.
func (p *Pool) MarkFailure(c *Credential, reason FailureReason) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c.failureCount++
	c.lastFailure = time.Now()

	if c.failureCount > p.config.MaxFailures {
		c.state = StateExhausted
		slog.Warn("credential exhausted, removing from rotation",
			"credential", c.Fragment(),
			"reason", string(reason),
			"failure_count", c.failureCount,
		)
		return
	}

	c.state = StateCoolingDown
	slog.Info("credential cooling down",
		"credential", c.Fragment(),
		"reason", string(reason),
		"failure_count", c.failureCount,
		"cooldown", p.cooldown(c.failureCount).String(),
	)
}

// MarkSuccess resets the credential's failure count and returns it to the
// healthy state. Exhausted credentials stay exhausted.
func (p *Pool) MarkSuccess(c *Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.state == StateExhausted {
		return
	}
	if c.failureCount > 0 {
		slog.Debug("credential recovered",
			"credential", c.Fragment(),
			"previous_failures", c.failureCount,
		)
	}
	c.failureCount = 0
	c.state = StateHealthy
}

// Stats returns a snapshot of pool health keyed by credential name. A
// cooling-down credential whose window has elapsed counts as healthy, so the
// snapshot agrees with what Next would actually hand out.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	stats := Stats{
		Total:    len(p.creds),
		Failures: make(map[string]int, len(p.creds)),
	}
	for _, c := range p.creds {
		stats.Failures[c.Name] = c.failureCount
		switch {
		case c.state == StateExhausted:
			stats.Exhausted++
		case p.eligible(c, now):
			stats.Healthy++
		default:
			stats.CoolingDown++
		}
	}
	return stats
}

// Reconcile replaces the pool's credential set with a freshly loaded one.
// Entries whose name survives keep their failure state; new entries start
// healthy; removed entries are dropped from rotation.
func (p *Pool) Reconcile(loaded []*Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing := make(map[string]*Credential, len(p.creds))
	for _, c := range p.creds {
		existing[c.Name] = c
	}

	merged := make([]*Credential, 0, len(loaded))
	for _, c := range loaded {
		if prev, ok := existing[c.Name]; ok {
			prev.SessionToken = c.SessionToken
			prev.Clearance = c.Clearance
			merged = append(merged, prev)
			continue
		}
		c.state = StateHealthy
		merged = append(merged, c)
	}

	p.creds = merged
	if p.next >= len(merged) {
		p.next = 0
	}

	slog.Info("credential pool reloaded",
		"total", len(merged),
		"added", len(merged)-countSurvivors(existing, loaded),
		"removed", len(existing)-countSurvivors(existing, loaded),
	)
}

func countSurvivors(existing map[string]*Credential, loaded []*Credential) int {
	n := 0
	for _, c := range loaded {
		if _, ok := existing[c.Name]; ok {
			n++
		}
	}
	return n
}
