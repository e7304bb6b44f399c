package relay

import (
	"fmt"

	"courier-hq/courier/pkg/tokens"
)

// Message is one chat message in a client request or response.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the client request body for /v1/chat/completions.
type ChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

// Validate checks required fields.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "messages must not be empty"}
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case "system", "user", "assistant":
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("invalid role %q", msg.Role),
			}
		}
	}
	return nil
}

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// Usage is the OpenAI usage object.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one completion choice in a non-streaming response.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatCompletionResponse is the non-streaming response body. It extends the
// OpenAI shape with the relay's conversation identity and context status.
type ChatCompletionResponse struct {
	ID             string         `json:"id"`
	Object         string         `json:"object"`
	Created        int64          `json:"created"`
	Model          string         `json:"model"`
	Choices        []Choice       `json:"choices"`
	Usage          Usage          `json:"usage"`
	ConversationID string         `json:"conversation_id"`
	ContextStatus  *tokens.Status `json:"context_status,omitempty"`
}

// Delta is the incremental content in a stream chunk.
type Delta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// StreamChoice is one choice in a stream chunk.
type StreamChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE chunk of a streaming response. Unlike
// stock OpenAI chunks, every chunk carries running usage and the live
// context status.
type ChatCompletionChunk struct {
	ID             string         `json:"id"`
	Object         string         `json:"object"`
	Created        int64          `json:"created"`
	Model          string         `json:"model"`
	Choices        []StreamChoice `json:"choices"`
	Usage          *Usage         `json:"usage,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	ContextStatus  *tokens.Status `json:"context_status,omitempty"`
}

// ModelInfo is one entry in the /v1/models listing.
type ModelInfo struct {
	ID            string         `json:"id"`
	Object        string         `json:"object"`
	ContextWindow int            `json:"context_window"`
	ContextStatus *tokens.Status `json:"context_status,omitempty"`
}

// ModelList is the /v1/models response body.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ConversationStatus is the /v1/conversations/{id}/status response body.
type ConversationStatus struct {
	ConversationID string        `json:"conversation_id"`
	Model          string        `json:"model"`
	MessageCount   int           `json:"message_count"`
	Usage          Usage         `json:"usage"`
	ContextStatus  tokens.Status `json:"context_status"`
	UpdatedAt      string        `json:"updated_at"`
}
