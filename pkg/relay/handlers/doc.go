// Package handlers contains the HTTP handlers for the relay's
// OpenAI-compatible API surface: chat completions, model listing,
// conversation status, and liveness probes.
package handlers
