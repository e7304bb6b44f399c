package conversation

import (
	"sync"
	"testing"
	"time"

	"courier-hq/courier/pkg/tokens"
)

func testStore(cfg StoreConfig) *Store {
	profiles := tokens.NewProfiles(map[string]int{"grok-": 131072, "small-": 1000}, 4096)
	return NewStore(cfg, profiles, nil)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	a := DeriveKey("sk-key", "grok-3", "hello")
	b := DeriveKey("sk-key", "grok-3", "hello")
	if a != b {
		t.Errorf("identical inputs derived different keys: %q vs %q", a, b)
	}

	if DeriveKey("sk-other", "grok-3", "hello") == a {
		t.Error("different api key derived the same session key")
	}
	if DeriveKey("sk-key", "grok-2", "hello") == a {
		t.Error("different model derived the same session key")
	}
	if DeriveKey("sk-key", "grok-3", "hi") == a {
		t.Error("different first message derived the same session key")
	}

	// Length prefixing keeps adjacent fields from bleeding into each other.
	if DeriveKey("ab", "c", "") == DeriveKey("a", "bc", "") {
		t.Error("field boundaries are ambiguous in key derivation")
	}
}

func TestStore_ResolveIdempotent(t *testing.T) {
	store := testStore(StoreConfig{})

	key1 := store.Resolve("sk-key", "grok-3", "first message")
	key2 := store.Resolve("sk-key", "grok-3", "first message")
	if key1 != key2 {
		t.Errorf("Resolve returned different keys: %q vs %q", key1, key2)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d sessions, want 1", store.Len())
	}
}

func TestStore_AppendExchange(t *testing.T) {
	store := testStore(StoreConfig{})
	key := store.Resolve("sk-key", "grok-3", "hello")

	ok := store.AppendExchange(key,
		[]Message{{Role: "user", Content: "hello", ApproxTokens: 2}},
		Message{Role: "assistant", Content: "hi there", ApproxTokens: 2},
		10, 5,
	)
	if !ok {
		t.Fatal("AppendExchange returned false for existing session")
	}

	sess, found := store.Get(key)
	if !found {
		t.Fatal("session not found after append")
	}
	if len(sess.Messages) != 2 {
		t.Errorf("message count = %d, want 2", len(sess.Messages))
	}
	if sess.Messages[0].Role != "user" || sess.Messages[1].Role != "assistant" {
		t.Errorf("message order corrupted: %+v", sess.Messages)
	}
	if sess.PromptTokens != 10 || sess.CompletionTokens != 5 {
		t.Errorf("usage = %d/%d, want 10/5", sess.PromptTokens, sess.CompletionTokens)
	}

	if store.AppendExchange("missing", nil, Message{}, 1, 1) {
		t.Error("AppendExchange succeeded for unknown key")
	}
}

func TestStore_ConcurrentAppendsSameKey(t *testing.T) {
	store := testStore(StoreConfig{})
	key := store.Resolve("sk-key", "grok-3", "hello")

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AppendExchange(key,
				[]Message{{Role: "user", Content: "msg"}},
				Message{Role: "assistant", Content: "reply"},
				7, 3,
			)
		}()
	}
	wg.Wait()

	sess, _ := store.Get(key)
	// The totals must be the arithmetic sum of every append, in some serial
	// order; interleaving would lose increments.
	if sess.PromptTokens != goroutines*7 {
		t.Errorf("prompt tokens = %d, want %d", sess.PromptTokens, goroutines*7)
	}
	if sess.CompletionTokens != goroutines*3 {
		t.Errorf("completion tokens = %d, want %d", sess.CompletionTokens, goroutines*3)
	}
	if len(sess.Messages) != goroutines*2 {
		t.Errorf("message count = %d, want %d", len(sess.Messages), goroutines*2)
	}
}

func TestStore_SweepConcurrentWithAppends(t *testing.T) {
	store := testStore(StoreConfig{MaxSessions: 5, IdleTTL: time.Millisecond})
	key := store.Resolve("sk-key", "grok-3", "hello")

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Appends and sweeps racing on the same entries must stay serialized;
	// run under -race to verify.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			store.AppendExchange(key,
				[]Message{{Role: "user", Content: "msg"}},
				Message{Role: "assistant", Content: "reply"},
				1, 1,
			)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			store.Sweep()
			store.Resolve("sk-key", "grok-3", "hello")
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(done)
	wg.Wait()
}

func TestStore_AppendAfterEviction(t *testing.T) {
	store := testStore(StoreConfig{MaxSessions: 100, IdleTTL: time.Nanosecond})
	key := store.Resolve("sk-key", "grok-3", "hello")

	time.Sleep(time.Millisecond)
	if evicted := store.Sweep(); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}

	// An append that lost the race with the sweep must report failure, not
	// claim success against a session the store no longer holds.
	ok := store.AppendExchange(key,
		[]Message{{Role: "user", Content: "late"}},
		Message{Role: "assistant", Content: "reply"},
		1, 1,
	)
	if ok {
		t.Error("AppendExchange succeeded on an evicted session")
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := testStore(StoreConfig{})
	key := store.Resolve("sk-key", "grok-3", "hello")
	store.AppendExchange(key, []Message{{Role: "user", Content: "a"}}, Message{Role: "assistant", Content: "b"}, 1, 1)

	sess, _ := store.Get(key)
	sess.Messages[0].Content = "mutated"
	sess.PromptTokens = 999

	fresh, _ := store.Get(key)
	if fresh.Messages[0].Content != "a" || fresh.PromptTokens != 1 {
		t.Error("Get returned shared mutable state")
	}
}

func TestStore_SnapshotStatus(t *testing.T) {
	store := testStore(StoreConfig{})
	key := store.Resolve("sk-key", "small-model", "hello")
	store.AppendExchange(key, nil, Message{Role: "assistant"}, 700, 100)

	status := store.SnapshotStatus(key, "small-model")
	if status.Used != 800 || status.Limit != 1000 {
		t.Errorf("status = %d/%d, want 800/1000", status.Used, status.Limit)
	}
	if status.Level != tokens.LevelWarning {
		t.Errorf("level = %q, want warning", status.Level)
	}

	// Unknown keys report an empty conversation against the model's window.
	status = store.SnapshotStatus("missing", "small-model")
	if status.Used != 0 || status.Limit != 1000 {
		t.Errorf("unknown key status = %d/%d, want 0/1000", status.Used, status.Limit)
	}
}

func TestStore_SweepIdle(t *testing.T) {
	store := testStore(StoreConfig{MaxSessions: 100, IdleTTL: 10 * time.Millisecond})

	key := store.Resolve("sk-key", "grok-3", "old conversation")
	store.Resolve("sk-key", "grok-3", "also old")

	time.Sleep(20 * time.Millisecond)
	evicted := store.Sweep()
	if evicted != 2 {
		t.Errorf("evicted = %d, want 2", evicted)
	}
	if _, found := store.Get(key); found {
		t.Error("idle session survived the sweep")
	}
}

func TestStore_SweepCap(t *testing.T) {
	store := testStore(StoreConfig{MaxSessions: 3, IdleTTL: time.Hour})

	var keys []string
	for _, msg := range []string{"one", "two", "three", "four", "five"} {
		keys = append(keys, store.Resolve("sk-key", "grok-3", msg))
		// Distinct UpdatedAt so eviction order is deterministic.
		time.Sleep(2 * time.Millisecond)
	}

	evicted := store.Sweep()
	if evicted != 2 {
		t.Fatalf("evicted = %d, want 2", evicted)
	}
	if store.Len() != 3 {
		t.Fatalf("store has %d sessions, want 3", store.Len())
	}

	// The two oldest sessions go first.
	for _, key := range keys[:2] {
		if _, found := store.Get(key); found {
			t.Error("oldest session survived the capped sweep")
		}
	}
	for _, key := range keys[2:] {
		if _, found := store.Get(key); !found {
			t.Error("recent session was evicted")
		}
	}
}
