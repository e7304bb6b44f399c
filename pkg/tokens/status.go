package tokens

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Level indicates how close a conversation is to its context window.
type Level string

const (
	// LevelOK means usage is below 75% of the window.
	LevelOK Level = "ok"
	// LevelWarning means usage is at or above 75% of the window.
	LevelWarning Level = "warning"
	// LevelCritical means usage is at or above 90% of the window.
	LevelCritical Level = "critical"
)

// Thresholds for the warning and critical levels, in percent of the window.
const (
	warningThreshold  = 75.0
	criticalThreshold = 90.0
)

// Status describes the state of a conversation relative to its model's
// context window. It is derived on demand and never stored.
type Status struct {
	// Limit is the model's context window in tokens.
	Limit int `json:"limit"`

	// Used is the number of tokens consumed so far.
	Used int `json:"used"`

	// Remaining is max(Limit-Used, 0).
	Remaining int `json:"remaining"`

	// PercentUsed is 100*Used/Limit, or 0 when Limit is 0.
	PercentUsed float64 `json:"percent_used"`

	// Level is the severity bucket derived from PercentUsed.
	Level Level `json:"status"`

	// Display is a human-readable summary, e.g. "4,150/4,096 tokens (101.3%)".
	Display string `json:"display"`

	// NextSteps is advisory text for the client. Empty when Level is ok.
	NextSteps string `json:"next_steps,omitempty"`
}

// ComputeStatus derives a Status from a context window limit and the tokens
// used so far. Negative inputs are clamped to zero.
func ComputeStatus(limit, used int) Status {
	if limit < 0 {
		limit = 0
	}
	if used < 0 {
		used = 0
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	var pct float64
	if limit > 0 {
		pct = 100 * float64(used) / float64(limit)
	}

	level := LevelOK
	switch {
	case pct >= criticalThreshold:
		level = LevelCritical
	case pct >= warningThreshold:
		level = LevelWarning
	}

	return Status{
		Limit:       limit,
		Used:        used,
		Remaining:   remaining,
		PercentUsed: pct,
		Level:       level,
		Display: fmt.Sprintf("%s/%s tokens (%.1f%%)",
			humanize.Comma(int64(used)), humanize.Comma(int64(limit)), pct),
		NextSteps: nextSteps(level),
	}
}

// nextSteps returns the advisory text for a severity level.
func nextSteps(level Level) string {
	switch level {
	case LevelWarning:
		return "Context window is filling up. Consider wrapping up this conversation or starting a new one soon."
	case LevelCritical:
		return "Context window is nearly full. Start a new conversation to avoid truncated or rejected requests."
	default:
		return ""
	}
}
