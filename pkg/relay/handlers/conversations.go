package handlers

import (
	"net/http"
	"time"

	"courier-hq/courier/pkg/conversation"
	"courier-hq/courier/pkg/relay"
)

// ConversationsHandler serves GET /v1/conversations/{id}/status.
type ConversationsHandler struct {
	store *conversation.Store
}

// NewConversationsHandler creates a conversation status handler.
func NewConversationsHandler(store *conversation.Store) *ConversationsHandler {
	return &ConversationsHandler{store: store}
}

func (h *ConversationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sess, ok := h.store.Get(id)
	if !ok {
		relay.WriteErrorResponse(w, relay.NewErrorResponse(
			"conversation not found", relay.ErrorTypeNotFound, "conversation_id", ""))
		return
	}

	relay.WriteJSONResponse(w, http.StatusOK, relay.ConversationStatus{
		ConversationID: sess.Key,
		Model:          sess.ModelID,
		MessageCount:   len(sess.Messages),
		Usage: relay.Usage{
			PromptTokens:     sess.PromptTokens,
			CompletionTokens: sess.CompletionTokens,
			TotalTokens:      sess.TotalTokens(),
		},
		ContextStatus: h.store.SnapshotStatus(id, sess.ModelID),
		UpdatedAt:     sess.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
