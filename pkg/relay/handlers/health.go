package handlers

import (
	"net/http"

	"courier-hq/courier/pkg/conversation"
	"courier-hq/courier/pkg/credentials"
	"courier-hq/courier/pkg/relay"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pool    *credentials.Pool
	store   *conversation.Store
	version string
}

// NewHealthHandler creates a health probe handler.
func NewHealthHandler(pool *credentials.Pool, store *conversation.Store, version string) *HealthHandler {
	return &HealthHandler{pool: pool, store: store, version: version}
}

type healthResponse struct {
	Status              string            `json:"status"`
	Version             string            `json:"version,omitempty"`
	Credentials         credentials.Stats `json:"credentials"`
	ActiveConversations int               `json:"active_conversations"`
}

// Health reports overall process health. The process is degraded, not dead,
// when every credential is out of rotation.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.pool.Stats()
	status := "ok"
	if stats.Healthy == 0 {
		status = "degraded"
	}
	relay.WriteJSONResponse(w, http.StatusOK, healthResponse{
		Status:              status,
		Version:             h.version,
		Credentials:         stats,
		ActiveConversations: h.store.Len(),
	})
}

// Ready reports whether the relay can serve traffic right now.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	stats := h.pool.Stats()
	if stats.Healthy == 0 {
		relay.WriteJSONResponse(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "no healthy upstream credentials",
		})
		return
	}
	relay.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}
