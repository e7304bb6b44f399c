// Package relay implements the client-facing OpenAI-compatible surface.
//
// It parses chat completion requests, enforces the pre-dispatch context
// window guard, formats responses and SSE chunks, and translates the
// upstream event stream into client chunks. Every completion and chunk is
// annotated with live usage totals and the conversation's context status so
// clients can see how close they are to the model's window without a
// separate call.
//
// Error mapping follows the OpenAI error JSON contract: typed errors from
// the dispatcher, pool, and store are converted to an ErrorResponse with
// the appropriate HTTP status, without leaking credential material.
package relay
