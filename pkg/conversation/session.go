package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Message is one entry in a conversation's history.
type Message struct {
	// Role is "user", "assistant", or "system".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// ApproxTokens is the estimated token count for Content at append time.
	ApproxTokens int `json:"approx_tokens"`
}

// Session is the tracked state of one conversation. History is append-only
// and insertion-ordered.
type Session struct {
	// Key is the derived session key.
	Key string

	// ModelID is the model this conversation is bound to.
	ModelID string

	// Messages is the ordered exchange history.
	Messages []Message

	// PromptTokens is the cumulative estimated prompt usage.
	PromptTokens int

	// CompletionTokens is the cumulative estimated completion usage.
	CompletionTokens int

	// CreatedAt is when the session was first resolved.
	CreatedAt time.Time

	// UpdatedAt is the time of the last append.
	UpdatedAt time.Time
}

// TotalTokens returns prompt plus completion usage.
func (s *Session) TotalTokens() int {
	return s.PromptTokens + s.CompletionTokens
}

// DeriveKey derives the stable session key for (apiKey, modelID,
// firstMessage). The derivation is a SHA-256 over the length-prefixed
// inputs, hex encoded and truncated; identical inputs always produce the
// identical key.
func DeriveKey(apiKey, modelID, firstMessage string) string {
	h := sha256.New()
	for _, part := range []string{apiKey, modelID, firstMessage} {
		var length [8]byte
		n := len(part)
		for i := 0; i < 8; i++ {
			length[i] = byte(n >> (8 * i))
		}
		h.Write(length[:])
		h.Write([]byte(part))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
