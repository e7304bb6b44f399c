package tokens

import (
	"sort"
	"strings"
)

// Profiles maps model identifiers to context window sizes. Resolution walks
// the configured families and picks the longest prefix that matches the
// model identifier, falling back to a default window when nothing matches.
//
// Profiles is immutable after construction and safe for concurrent use.
type Profiles struct {
	windows  map[string]int
	fallback int
}

// DefaultWindow is the context window assumed for unrecognized models.
const DefaultWindow = 8192

// NewProfiles builds a profile set from a family-prefix map. A fallback of
// zero or less is replaced by DefaultWindow.
func NewProfiles(windows map[string]int, fallback int) *Profiles {
	if fallback <= 0 {
		fallback = DefaultWindow
	}
	copied := make(map[string]int, len(windows))
	for prefix, window := range windows {
		if window > 0 {
			copied[prefix] = window
		}
	}
	return &Profiles{windows: copied, fallback: fallback}
}

// Window returns the context window for a model identifier. The longest
// matching family prefix wins; unknown models get the fallback window.
func (p *Profiles) Window(modelID string) int {
	best := ""
	window := p.fallback
	for prefix, w := range p.windows {
		if strings.HasPrefix(modelID, prefix) && len(prefix) > len(best) {
			best = prefix
			window = w
		}
	}
	return window
}

// Models returns the configured family prefixes in lexical order.
func (p *Profiles) Models() []string {
	out := make([]string, 0, len(p.windows))
	for prefix := range p.windows {
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}
