package handlers

import (
	"net/http"

	"courier-hq/courier/pkg/conversation"
	"courier-hq/courier/pkg/relay"
	"courier-hq/courier/pkg/tokens"
)

// ModelsHandler serves GET /v1/models. When the request names a known
// conversation via ?conversation_id=, the entry for that conversation's
// model carries its live context status.
type ModelsHandler struct {
	store    *conversation.Store
	profiles *tokens.Profiles
}

// NewModelsHandler creates a model listing handler.
func NewModelsHandler(store *conversation.Store, profiles *tokens.Profiles) *ModelsHandler {
	return &ModelsHandler{store: store, profiles: profiles}
}

func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")
	var sess conversation.Session
	haveSession := false
	if convID != "" {
		sess, haveSession = h.store.Get(convID)
	}

	models := h.profiles.Models()
	list := relay.ModelList{
		Object: "list",
		Data:   make([]relay.ModelInfo, 0, len(models)),
	}
	for _, id := range models {
		info := relay.ModelInfo{
			ID:            id,
			Object:        "model",
			ContextWindow: h.profiles.Window(id),
		}
		if haveSession && sess.ModelID == id {
			status := h.store.SnapshotStatus(convID, id)
			info.ContextStatus = &status
		}
		list.Data = append(list.Data, info)
	}

	relay.WriteJSONResponse(w, http.StatusOK, list)
}
