package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"courier-hq/courier/pkg/conversation"
	"courier-hq/courier/pkg/credentials"
	"courier-hq/courier/pkg/relay"
	"courier-hq/courier/pkg/tokens"
)

func seededStore(t *testing.T) (*conversation.Store, *tokens.Profiles, string) {
	t.Helper()
	profiles := tokens.NewProfiles(map[string]int{"gpt-4": 128000}, 8192)
	store := conversation.NewStore(conversation.StoreConfig{}, profiles, nil)

	key := store.Resolve("key-1", "gpt-4", "Hello")
	ok := store.AppendExchange(key,
		[]conversation.Message{{Role: "user", Content: "Hello", ApproxTokens: 2}},
		conversation.Message{Role: "assistant", Content: "Hi!", ApproxTokens: 1},
		2, 1)
	if !ok {
		t.Fatal("seed append failed")
	}
	return store, profiles, key
}

func TestModelsHandler_List(t *testing.T) {
	store, profiles, _ := seededStore(t)
	h := NewModelsHandler(store, profiles)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/models", nil))

	var list relay.ModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list.Data) != 1 {
		t.Fatalf("models = %d, want 1", len(list.Data))
	}
	m := list.Data[0]
	if m.ID != "gpt-4" || m.ContextWindow != 128000 {
		t.Errorf("model = %+v", m)
	}
	if m.ContextStatus != nil {
		t.Error("status should be absent without a conversation_id")
	}
}

func TestModelsHandler_WithConversation(t *testing.T) {
	store, profiles, key := seededStore(t)
	h := NewModelsHandler(store, profiles)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/models?conversation_id="+key, nil))

	var list relay.ModelList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	status := list.Data[0].ContextStatus
	if status == nil {
		t.Fatal("status should be present for the conversation's model")
	}
	if status.Used != 3 {
		t.Errorf("used = %d, want 3", status.Used)
	}
}

func TestConversationsHandler_Status(t *testing.T) {
	store, _, key := seededStore(t)
	h := NewConversationsHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/"+key+"/status", nil)
	req.SetPathValue("id", key)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var status relay.ConversationStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if status.ConversationID != key || status.Model != "gpt-4" {
		t.Errorf("status = %+v", status)
	}
	if status.MessageCount != 2 {
		t.Errorf("message count = %d, want 2", status.MessageCount)
	}
	if status.Usage.TotalTokens != 3 {
		t.Errorf("total tokens = %d, want 3", status.Usage.TotalTokens)
	}
}

func TestConversationsHandler_NotFound(t *testing.T) {
	store, _, _ := seededStore(t)
	h := NewConversationsHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/ghost/status", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	store, _, _ := seededStore(t)
	pool := credentials.NewPool([]*credentials.Credential{
		{Name: "primary", SessionToken: "tok-123456789"},
	}, credentials.PoolConfig{})
	h := NewHealthHandler(pool, store, "test")

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Credentials.Healthy != 1 {
		t.Errorf("healthy = %d, want 1", resp.Credentials.Healthy)
	}
	if resp.ActiveConversations != 1 {
		t.Errorf("conversations = %d, want 1", resp.ActiveConversations)
	}

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready = %d", rec.Code)
	}
}

func TestHealthHandler_Degraded(t *testing.T) {
	store, _, _ := seededStore(t)
	h := NewHealthHandler(credentials.NewPool(nil, credentials.PoolConfig{}), store, "test")

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health should stay 200, got %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}

	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", rec.Code)
	}
}
