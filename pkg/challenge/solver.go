package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPSolver delegates challenge solving to a browser-automation sidecar
// over HTTP. The sidecar drives a headless browser against the target page
// and returns the extracted token.
type HTTPSolver struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSolver creates a solver that POSTs to the sidecar endpoint.
func NewHTTPSolver(endpoint string, timeout time.Duration) *HTTPSolver {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPSolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type solveRequest struct {
	PageURL string `json:"page_url"`
}

type solveResponse struct {
	Token      string `json:"token"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// Solve implements Solver.
func (s *HTTPSolver) Solve(ctx context.Context, pageURL string) (Token, error) {
	body, err := json.Marshal(solveRequest{PageURL: pageURL})
	if err != nil {
		return Token{}, fmt.Errorf("failed to marshal solve request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(string(body)))
	if err != nil {
		return Token{}, fmt.Errorf("failed to create solve request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("solver request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Token{}, fmt.Errorf("solver returned status %d", resp.StatusCode)
	}

	var solved solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&solved); err != nil {
		return Token{}, fmt.Errorf("failed to decode solver response: %w", err)
	}
	if solved.Token == "" {
		return Token{}, fmt.Errorf("solver returned empty token")
	}

	return Token{
		Value:    solved.Token,
		IssuedAt: time.Now(),
		TTL:      time.Duration(solved.TTLSeconds) * time.Second,
	}, nil
}
