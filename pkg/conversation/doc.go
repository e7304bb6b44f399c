// Package conversation tracks per-conversation message history and token
// usage.
//
// A conversation is identified by a key derived deterministically from the
// client's API key, the chosen model, and the first user message, so the
// same client resuming the same conversation always lands on the same
// session without any client-side session management.
//
// Concurrency: appends to the same session are serialized by a per-session
// mutex; different sessions proceed independently. The store map itself is
// guarded by a separate RWMutex held only for lookups and inserts.
//
// Sessions are bounded. The store enforces a maximum session count and an
// idle TTL; a periodic sweep evicts the oldest sessions past either bound.
// An optional SQLite backend persists per-session usage totals across
// restarts.
package conversation
