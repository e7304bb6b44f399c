// Package tokens provides context-window accounting for the relay.
//
// The package has three pieces:
//
//   - EstimateTokens: character-based token estimation. The upstream chat
//     service does not expose a tokenizer, so the relay uses a fixed 4
//     characters-per-token heuristic. The ratio is a policy constant, not
//     configuration; changing it would invalidate every stored usage count.
//
//   - ComputeStatus: derives a ContextStatus from a model's context window
//     and the tokens consumed so far. The status carries a severity level
//     (ok / warning / critical), a human-readable display string, and
//     advisory next steps when the conversation is approaching the limit.
//
//   - Profiles: a static mapping from model identifiers to context window
//     sizes, resolved by family-prefix match with a default fallback.
//
// All functions in this package are pure and safe for concurrent use.
package tokens
