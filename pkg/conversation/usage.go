package conversation

import (
	"context"
	"time"
)

// UsageRecord is the persisted usage total for one session.
type UsageRecord struct {
	SessionKey       string
	ModelID          string
	PromptTokens     int
	CompletionTokens int
	UpdatedAt        time.Time
}

// UsageBackend persists per-session usage totals. Implementations must be
// safe for concurrent use.
type UsageBackend interface {
	// Save upserts the record for its session key.
	Save(ctx context.Context, rec UsageRecord) error

	// Load returns the record for a session key, if present.
	Load(ctx context.Context, sessionKey string) (UsageRecord, bool)

	// Cleanup removes records not updated since the cutoff and returns the
	// number removed.
	Cleanup(ctx context.Context, cutoff time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
