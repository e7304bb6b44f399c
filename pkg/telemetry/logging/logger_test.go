package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("request completed", "status", 200)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "request completed" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["status"] != float64(200) {
		t.Errorf("status = %v", record["status"])
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn record missing")
	}
}

func TestNew_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("credential loaded",
		"session_token", "super-secret-value",
		"cf_clearance", "also-secret",
		"credential", "abc12345...",
	)

	out := buf.String()
	if strings.Contains(out, "super-secret-value") || strings.Contains(out, "also-secret") {
		t.Fatalf("secret values leaked into log output: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Error("redaction marker missing")
	}
	if !strings.Contains(out, "abc12345...") {
		t.Error("non-secret fragment should pass through")
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("unexpected text output: %s", buf.String())
	}
}

func TestNew_InvalidInputs(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected an error for an unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
