package tokens

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "empty", text: "", expected: 0},
		{name: "one char", text: "a", expected: 1},
		{name: "three chars", text: "abc", expected: 1},
		{name: "exactly four chars", text: "abcd", expected: 1},
		{name: "five chars rounds up", text: "abcde", expected: 2},
		{name: "eight chars", text: "abcdefgh", expected: 2},
		{name: "hello world", text: "Hello, world!", expected: 4},
		{name: "hundred chars", text: strings.Repeat("x", 100), expected: 25},
		{name: "hundred one chars", text: strings.Repeat("x", 101), expected: 26},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.text)
			if got != tt.expected {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.expected)
			}
		})
	}
}

// The estimate must equal ceil(len/4) for every length, since stored usage
// counts depend on the exact rounding.
func TestEstimateTokens_CeilFormula(t *testing.T) {
	for n := 0; n <= 1024; n++ {
		text := strings.Repeat("a", n)
		want := (n + 3) / 4
		if got := EstimateTokens(text); got != want {
			t.Fatalf("length %d: got %d, want %d", n, got, want)
		}
	}
}

func TestEstimateAll(t *testing.T) {
	got := EstimateAll("abcd", "efgh", "i")
	if got != 3 {
		t.Errorf("EstimateAll = %d, want 3", got)
	}

	if EstimateAll() != 0 {
		t.Error("EstimateAll with no arguments should be 0")
	}
}
