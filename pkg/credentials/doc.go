// Package credentials manages the pool of upstream session credentials.
//
// The upstream chat service authenticates with a session token paired with a
// cf_clearance anti-bot cookie. Credentials are rate limited and can be
// invalidated server-side at any time, so the pool rotates through them
// round-robin and tracks per-credential health:
//
//   - healthy: eligible for selection
//   - cooling down: recently failed; eligible again after an exponential
//     cooldown keyed by the failure count
//   - exhausted: failed past the ceiling; terminal, requires replacement
//
// All pool operations are serialized by a single mutex. Contention is low
// relative to upstream request latency.
//
// Credentials are loaded from a YAML file and can be hot-reloaded through a
// Watcher; reloading preserves the failure state of surviving entries.
package credentials
