package conversation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"courier-hq/courier/pkg/tokens"
)

// StoreConfig bounds the store's growth.
type StoreConfig struct {
	// MaxSessions caps the number of live sessions. The sweep evicts the
	// least recently updated sessions beyond the cap.
	// Default: 10000
	MaxSessions int

	// IdleTTL is how long a session may go without an append before the
	// sweep evicts it.
	// Default: 24h
	IdleTTL time.Duration
}

// ApplyDefaults fills zero fields with default values.
func (c *StoreConfig) ApplyDefaults() {
	if c.MaxSessions <= 0 {
		c.MaxSessions = 10000
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 24 * time.Hour
	}
}

// entry pairs a session with its per-key append lock. evicted marks entries
// the sweep has removed from the map, so an append that fetched the entry
// before eviction does not report success against a dead session.
type entry struct {
	mu      sync.Mutex
	session *Session
	evicted bool
}

// Store holds conversation sessions keyed by derived session key.
type Store struct {
	config   StoreConfig
	profiles *tokens.Profiles
	usage    UsageBackend

	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates a store resolving context windows through the given
// profiles. The usage backend may be nil, in which case usage is held in
// memory only.
func NewStore(cfg StoreConfig, profiles *tokens.Profiles, usage UsageBackend) *Store {
	cfg.ApplyDefaults()
	return &Store{
		config:   cfg,
		profiles: profiles,
		usage:    usage,
		entries:  make(map[string]*entry),
	}
}

// Resolve returns the session key for (apiKey, modelID, firstMessage),
// creating the session on first use. The derivation is deterministic, so
// repeated calls with identical inputs return the same key.
func (s *Store) Resolve(apiKey, modelID, firstMessage string) string {
	key := DeriveKey(apiKey, modelID, firstMessage)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		now := time.Now()
		sess := &Session{
			Key:       key,
			ModelID:   modelID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if s.usage != nil {
			// Restore persisted usage so the context guard survives restarts.
			if rec, ok := s.usage.Load(context.Background(), key); ok {
				sess.PromptTokens = rec.PromptTokens
				sess.CompletionTokens = rec.CompletionTokens
			}
		}
		s.entries[key] = &entry{session: sess}
	}
	return key
}

// Get returns a copy of the session for the key. The copy shares no mutable
// state with the store.
func (s *Store) Get(key string) (Session, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot := *e.session
	snapshot.Messages = append([]Message(nil), e.session.Messages...)
	return snapshot, true
}

// AppendExchange appends one request/response exchange to the session and
// adds the token counts to its cumulative usage. Appends to the same key
// are serialized; the final totals always equal the arithmetic sum of every
// append in some serial order.
func (s *Store) AppendExchange(key string, userMessages []Message, assistant Message, promptTokens, completionTokens int) bool {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	if e.evicted {
		e.mu.Unlock()
		return false
	}
	e.session.Messages = append(e.session.Messages, userMessages...)
	e.session.Messages = append(e.session.Messages, assistant)
	e.session.PromptTokens += promptTokens
	e.session.CompletionTokens += completionTokens
	e.session.UpdatedAt = time.Now()
	snapshot := *e.session
	e.mu.Unlock()

	if s.usage != nil {
		// Best effort; a persistence failure must not fail the exchange.
		if err := s.usage.Save(context.Background(), UsageRecord{
			SessionKey:       snapshot.Key,
			ModelID:          snapshot.ModelID,
			PromptTokens:     snapshot.PromptTokens,
			CompletionTokens: snapshot.CompletionTokens,
			UpdatedAt:        snapshot.UpdatedAt,
		}); err != nil {
			slog.Warn("failed to persist session usage", "session", key, "error", err)
		}
	}
	return true
}

// SnapshotStatus combines the session's stored usage with the model's
// context window. An unknown key yields the status of an empty conversation.
func (s *Store) SnapshotStatus(key, modelID string) tokens.Status {
	limit := s.profiles.Window(modelID)
	sess, ok := s.Get(key)
	if !ok {
		return tokens.ComputeStatus(limit, 0)
	}
	return tokens.ComputeStatus(limit, sess.TotalTokens())
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep evicts sessions idle past the TTL, then evicts the least recently
// updated sessions until the store is within MaxSessions. It returns the
// number of evicted sessions.
func (s *Store) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Appends take s.mu.RLock only to fetch the entry, then mutate under
	// e.mu alone, so every UpdatedAt read and every eviction here must hold
	// the entry lock too.
	evicted := 0
	for key, e := range s.entries {
		e.mu.Lock()
		if now.Sub(e.session.UpdatedAt) > s.config.IdleTTL {
			e.evicted = true
			delete(s.entries, key)
			evicted++
		}
		e.mu.Unlock()
	}

	if excess := len(s.entries) - s.config.MaxSessions; excess > 0 {
		type aged struct {
			key     string
			updated time.Time
		}
		all := make([]aged, 0, len(s.entries))
		for key, e := range s.entries {
			e.mu.Lock()
			all = append(all, aged{key: key, updated: e.session.UpdatedAt})
			e.mu.Unlock()
		}
		sort.Slice(all, func(i, j int) bool { return all[i].updated.Before(all[j].updated) })
		for i := 0; i < excess; i++ {
			e := s.entries[all[i].key]
			e.mu.Lock()
			e.evicted = true
			delete(s.entries, all[i].key)
			e.mu.Unlock()
			evicted++
		}
	}

	if evicted > 0 {
		slog.Info("swept conversation store",
			"evicted", evicted,
			"remaining", len(s.entries),
		)
	}
	return evicted
}
