package relay

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"courier-hq/courier/pkg/tokens"
)

// FormatCompletionResponse builds the non-streaming response body from the
// assistant's full reply and the conversation's accounting.
func FormatCompletionResponse(responseID, model, conversationID, content string, usage Usage, status tokens.Status) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		ID:      "chatcmpl-" + responseID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage:          usage,
		ConversationID: conversationID,
		ContextStatus:  &status,
	}
}

// WriteJSONResponse writes data as JSON with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}
	return nil
}

// WriteErrorResponse writes an OpenAI-compatible error with the status code
// derived from its type.
func WriteErrorResponse(w http.ResponseWriter, errResp *ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}

// SetSSEHeaders sets the response headers for an SSE stream.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// WriteSSEChunk writes one chunk as an SSE data frame and flushes.
func WriteSSEChunk(w http.ResponseWriter, chunk *ChatCompletionChunk) error {
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE chunk: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE chunk: %w", err)
	}
	flush(w)
	return nil
}

// WriteSSEDone writes the terminal [DONE] marker and flushes.
func WriteSSEDone(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("failed to write SSE done marker: %w", err)
	}
	flush(w)
	return nil
}

// WriteSSEError writes an error as an SSE data frame and flushes. Used for
// mid-stream failures after chunks have already been emitted.
func WriteSSEError(w http.ResponseWriter, errResp *ErrorResponse) error {
	data, err := json.Marshal(errResp)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE error: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE error: %w", err)
	}
	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
