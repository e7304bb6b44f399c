package conversation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"courier-hq/courier/pkg/tokens"
)

func newTestBackend(t *testing.T) *SQLiteUsage {
	t.Helper()
	backend, err := NewSQLiteUsage(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewSQLiteUsage() error: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestSQLiteUsage_SaveLoad(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	rec := UsageRecord{
		SessionKey:       "abc123",
		ModelID:          "grok-3",
		PromptTokens:     100,
		CompletionTokens: 50,
		UpdatedAt:        time.Now(),
	}
	if err := backend.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, ok := backend.Load(ctx, "abc123")
	if !ok {
		t.Fatal("Load() did not find saved record")
	}
	if loaded.PromptTokens != 100 || loaded.CompletionTokens != 50 || loaded.ModelID != "grok-3" {
		t.Errorf("loaded record mismatch: %+v", loaded)
	}

	if _, ok := backend.Load(ctx, "missing"); ok {
		t.Error("Load() found a record that was never saved")
	}
}

func TestSQLiteUsage_Upsert(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	for _, prompt := range []int{10, 20, 30} {
		err := backend.Save(ctx, UsageRecord{
			SessionKey:   "key",
			ModelID:      "grok-3",
			PromptTokens: prompt,
			UpdatedAt:    time.Now(),
		})
		if err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	loaded, _ := backend.Load(ctx, "key")
	if loaded.PromptTokens != 30 {
		t.Errorf("prompt tokens after upserts = %d, want 30", loaded.PromptTokens)
	}
}

func TestSQLiteUsage_Cleanup(t *testing.T) {
	backend := newTestBackend(t)
	ctx := context.Background()

	old := UsageRecord{SessionKey: "old", ModelID: "m", UpdatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := UsageRecord{SessionKey: "fresh", ModelID: "m", UpdatedAt: time.Now()}
	backend.Save(ctx, old)
	backend.Save(ctx, fresh)

	removed, err := backend.Cleanup(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Cleanup() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, ok := backend.Load(ctx, "old"); ok {
		t.Error("stale record survived cleanup")
	}
	if _, ok := backend.Load(ctx, "fresh"); !ok {
		t.Error("fresh record was removed by cleanup")
	}
}

func TestStore_RestoresPersistedUsage(t *testing.T) {
	backend := newTestBackend(t)
	profiles := tokens.NewProfiles(nil, 8192)

	first := NewStore(StoreConfig{}, profiles, backend)
	key := first.Resolve("sk-key", "grok-3", "hello")
	first.AppendExchange(key, []Message{{Role: "user", Content: "hello"}},
		Message{Role: "assistant", Content: "hi"}, 40, 10)

	// A new store over the same backend picks the totals back up.
	second := NewStore(StoreConfig{}, profiles, backend)
	restoredKey := second.Resolve("sk-key", "grok-3", "hello")
	if restoredKey != key {
		t.Fatalf("restored key %q differs from original %q", restoredKey, key)
	}

	sess, _ := second.Get(restoredKey)
	if sess.PromptTokens != 40 || sess.CompletionTokens != 10 {
		t.Errorf("restored usage = %d/%d, want 40/10", sess.PromptTokens, sess.CompletionTokens)
	}
}
