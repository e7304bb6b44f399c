// Package upstream dispatches requests to the bot-defended chat service.
//
// Each outbound call runs an attempt loop: acquire a credential from the
// pool, optionally attach a challenge token, send with a mode-specific
// timeout, then classify the outcome. Forbidden responses rotate to a
// different credential and invalidate the cached challenge token; rate
// limits and network failures back off and retry; any other 4xx is fatal
// and surfaces immediately. The loop gives up after a fixed attempt ceiling
// and returns the last typed error.
//
// The wire contract that matters most: the Accept header is
// "text/event-stream" for streaming calls and "*/*" otherwise. The upstream
// applies stricter bot-defense validation to streaming connections, so the
// two request shapes are not interchangeable. A browser User-Agent is
// mandatory on both.
//
// Streaming responses are consumed incrementally through Reader, which
// parses the upstream's SSE frames without ever buffering the full
// response.
package upstream
