package relay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// MaxRequestBodySize caps request bodies at 10MB.
	MaxRequestBodySize = 10 * 1024 * 1024
)

// RequestError reports a malformed request before it reaches dispatch.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ParseChatCompletionRequest parses and validates a chat completion request
// body, enforcing the size limit.
func ParseChatCompletionRequest(r *http.Request) (*ChatCompletionRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) >= MaxRequestBodySize {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			Code:    CodeRequestTooLarge,
			Param:   "body",
		}
	}

	var req ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    CodeInvalidJSON,
			Param:   "body",
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// APIKey extracts the client's API key from the Authorization header. The
// key identifies the client for session derivation; the relay does not
// authenticate against it.
func APIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return auth
}

// FirstUserMessage returns the content of the first user-role message, used
// as the conversation anchor in session key derivation.
func FirstUserMessage(messages []Message) string {
	for _, msg := range messages {
		if msg.Role == "user" {
			return msg.Content
		}
	}
	if len(messages) > 0 {
		return messages[0].Content
	}
	return ""
}
