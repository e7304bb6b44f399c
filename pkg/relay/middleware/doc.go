// Package middleware provides HTTP middleware for the relay's cross-cutting
// concerns: request identity, structured request logging, panic recovery,
// CORS, and per-request timeouts.
//
// The chain is assembled outermost-first:
//
//	handler = Recovery(Logging(RequestID(CORS(cfg)(handler))))
//
// The logging wrapper preserves http.Flusher so streaming responses keep
// flushing through the chain.
package middleware
