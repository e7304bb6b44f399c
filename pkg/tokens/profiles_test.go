package tokens

import "testing"

func TestProfiles_Window(t *testing.T) {
	profiles := NewProfiles(map[string]int{
		"grok-":        131072,
		"grok-2-mini":  32768,
		"gpt-4":        8192,
		"gpt-4-turbo-": 128000,
	}, 4096)

	tests := []struct {
		model    string
		expected int
	}{
		{model: "grok-3", expected: 131072},
		{model: "grok-2-mini-beta", expected: 32768}, // longest prefix wins
		{model: "gpt-4", expected: 8192},
		{model: "gpt-4-turbo-2024", expected: 128000},
		{model: "unknown-model", expected: 4096},
		{model: "", expected: 4096},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := profiles.Window(tt.model); got != tt.expected {
				t.Errorf("Window(%q) = %d, want %d", tt.model, got, tt.expected)
			}
		})
	}
}

func TestProfiles_ModelsSorted(t *testing.T) {
	profiles := NewProfiles(map[string]int{
		"grok-":  131072,
		"gpt-4":  8192,
		"claude": 200000,
	}, 4096)

	want := []string{"claude", "gpt-4", "grok-"}
	// Listings must be stable across calls despite map-backed storage.
	for i := 0; i < 3; i++ {
		got := profiles.Models()
		if len(got) != len(want) {
			t.Fatalf("Models() = %v, want %v", got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("Models() = %v, want %v", got, want)
			}
		}
	}
}

func TestNewProfiles_Defaults(t *testing.T) {
	profiles := NewProfiles(nil, 0)
	if got := profiles.Window("anything"); got != DefaultWindow {
		t.Errorf("Window = %d, want DefaultWindow %d", got, DefaultWindow)
	}

	// Non-positive windows are dropped at construction.
	profiles = NewProfiles(map[string]int{"bad-": -1, "good-": 100}, 50)
	if got := profiles.Window("bad-model"); got != 50 {
		t.Errorf("Window for dropped prefix = %d, want fallback 50", got)
	}
	if got := profiles.Window("good-model"); got != 100 {
		t.Errorf("Window = %d, want 100", got)
	}
}
