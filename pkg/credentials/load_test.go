package credentials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCredsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write credentials file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCredsFile(t, `
credentials:
  - name: primary
    session_token: sess-abc123
    cf_clearance: clr-def456
  - name: backup
    session_token: sess-xyz789
`)

	creds, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	if len(creds) != 2 {
		t.Fatalf("loaded %d credentials, want 2", len(creds))
	}
	if creds[0].Name != "primary" || creds[0].SessionToken != "sess-abc123" || creds[0].Clearance != "clr-def456" {
		t.Errorf("unexpected first credential: %+v", creds[0])
	}
	if creds[1].Clearance != "" {
		t.Errorf("cf_clearance should be optional, got %q", creds[1].Clearance)
	}
	if creds[0].State() != StateHealthy {
		t.Errorf("loaded credential state = %q, want healthy", creds[0].State())
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "empty file",
			content: "credentials: []",
			wantErr: "no credentials",
		},
		{
			name: "missing name",
			content: `
credentials:
  - session_token: sess-1
`,
			wantErr: "no name",
		},
		{
			name: "missing token",
			content: `
credentials:
  - name: broken
`,
			wantErr: "no session_token",
		},
		{
			name: "duplicate name",
			content: `
credentials:
  - name: dup
    session_token: sess-1
  - name: dup
    session_token: sess-2
`,
			wantErr: "duplicate",
		},
		{
			name:    "invalid yaml",
			content: "credentials: [",
			wantErr: "parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCredsFile(t, tt.content)
			_, err := LoadFile(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFile_NotFound(t *testing.T) {
	if _, err := LoadFile("/nonexistent/credentials.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
