// Package challenge acquires and caches anti-bot challenge tokens.
//
// Tokens are produced by an external browser-automation collaborator exposed
// through the Solver interface. The gateway caches successful tokens per
// target page for their TTL and treats solver failure as soft: callers get
// ErrUnavailable and decide for themselves whether to proceed without a
// token. The gateway never retries internally; retry policy belongs to the
// dispatcher.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrUnavailable is returned when no token can be produced. It is a soft
// failure: most upstream endpoints accept requests without a token.
var ErrUnavailable = errors.New("challenge token unavailable")

// Token is a short-lived anti-bot proof.
type Token struct {
	// Value is the opaque token string.
	Value string

	// IssuedAt is when the solver produced the token.
	IssuedAt time.Time

	// TTL is how long the token stays valid after issuance.
	TTL time.Duration
}

// Expired reports whether the token's TTL has elapsed.
func (t Token) Expired() bool {
	return time.Since(t.IssuedAt) >= t.TTL
}

// Solver produces challenge tokens for a target page. Implementations drive
// the external browser automation and may block for several seconds.
type Solver interface {
	Solve(ctx context.Context, pageURL string) (Token, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, pageURL string) (Token, error)

// Solve implements Solver.
func (f SolverFunc) Solve(ctx context.Context, pageURL string) (Token, error) {
	return f(ctx, pageURL)
}

// Gateway caches challenge tokens keyed by target page.
type Gateway struct {
	solver     Solver
	defaultTTL time.Duration

	mu    sync.Mutex
	cache map[string]Token
}

// NewGateway creates a gateway over the given solver. defaultTTL applies to
// tokens whose solver did not report a TTL; zero means 2 minutes.
func NewGateway(solver Solver, defaultTTL time.Duration) *Gateway {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	return &Gateway{
		solver:     solver,
		defaultTTL: defaultTTL,
		cache:      make(map[string]Token),
	}
}

// Token returns a valid challenge token for the page, from cache when fresh,
// otherwise by delegating to the solver exactly once. Solver failure is
// wrapped in ErrUnavailable.
func (g *Gateway) Token(ctx context.Context, pageURL string) (Token, error) {
	g.mu.Lock()
	cached, ok := g.cache[pageURL]
	g.mu.Unlock()
	if ok && !cached.Expired() {
		return cached, nil
	}

	if g.solver == nil {
		return Token{}, ErrUnavailable
	}

	token, err := g.solver.Solve(ctx, pageURL)
	if err != nil {
		slog.Debug("challenge solver failed", "page", pageURL, "error", err)
		return Token{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if token.Value == "" {
		return Token{}, ErrUnavailable
	}
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now()
	}
	if token.TTL <= 0 {
		token.TTL = g.defaultTTL
	}

	g.mu.Lock()
	g.cache[pageURL] = token
	g.mu.Unlock()

	slog.Debug("challenge token acquired", "page", pageURL, "ttl", token.TTL.String())
	return token, nil
}

// Invalidate drops the cached token for the page. The dispatcher calls this
// after a use-failure so the next attempt solves afresh.
func (g *Gateway) Invalidate(pageURL string) {
	g.mu.Lock()
	delete(g.cache, pageURL)
	g.mu.Unlock()
}
