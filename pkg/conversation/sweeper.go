package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the store's eviction sweep on a cron schedule, and cleans up
// stale persisted usage records alongside.
type Sweeper struct {
	store *Store
	cron  *cron.Cron
}

// NewSweeper schedules a sweep of the store using a cron expression
// (e.g. "@every 10m").
func NewSweeper(store *Store, schedule string) (*Sweeper, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		store.Sweep()
		if store.usage != nil {
			cutoff := time.Now().Add(-store.config.IdleTTL)
			removed, err := store.usage.Cleanup(context.Background(), cutoff)
			if err != nil {
				slog.Warn("usage record cleanup failed", "error", err)
			} else if removed > 0 {
				slog.Debug("cleaned up stale usage records", "removed", removed)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return &Sweeper{store: store, cron: c}, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for any running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
