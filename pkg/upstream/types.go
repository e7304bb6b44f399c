package upstream

import (
	"encoding/json"
	"fmt"
	"io"
)

// ChatMessage is one message in an upstream chat payload.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatPayload is the request body for the upstream chat endpoint.
type ChatPayload struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// Completion is the upstream's non-streaming response body.
type Completion struct {
	// Text is the full assistant reply.
	Text string `json:"text"`

	// Finished reports whether generation ran to completion.
	Finished bool `json:"finished"`
}

// Event is one delta frame from the upstream event stream.
type Event struct {
	// Text is the incremental content for this frame.
	Text string `json:"text"`

	// Finished marks the last content frame of a generation.
	Finished bool `json:"finished"`
}

// ParseCompletion decodes a non-streaming upstream response body.
func ParseCompletion(body io.Reader) (*Completion, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, &StreamError{Message: "failed to read response body", Cause: err}
	}

	var completion Completion
	if err := json.Unmarshal(raw, &completion); err != nil {
		return nil, &ParseError{
			RawResponse: truncate(raw),
			Cause:       fmt.Errorf("failed to unmarshal completion: %w", err),
		}
	}
	return &completion, nil
}
