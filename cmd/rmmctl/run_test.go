package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vars.env")
	content := `# site variables
usrUDF=90
export SITE_NAME="Main Office"
THRESHOLD='85'

  PADDED = spaced value
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	env, err := parseEnvFile(path)
	if err != nil {
		t.Fatalf("parseEnvFile: %v", err)
	}

	want := map[string]string{
		"usrUDF":    "90",
		"SITE_NAME": "Main Office",
		"THRESHOLD": "85",
		"PADDED":    "spaced value",
	}
	if len(env) != len(want) {
		t.Errorf("got %d vars, want %d: %v", len(env), len(want), env)
	}
	for key, value := range want {
		if env[key] != value {
			t.Errorf("env[%q] = %q, want %q", key, env[key], value)
		}
	}
}

func TestParseEnvFileRejectsMalformedLines(t *testing.T) {
	for _, content := range []string{"just a bare line\n", "=no-key\n"} {
		path := filepath.Join(t.TempDir(), "vars.env")
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := parseEnvFile(path); err == nil {
			t.Errorf("expected error for content %q", content)
		}
	}
}

func TestParseEnvFileMissing(t *testing.T) {
	if _, err := parseEnvFile(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestUnderMonitorsDir(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"components/Monitors/disk-space.sh", true},
		{filepath.Join("repo", "components", "Monitors", "Linux", "cpu.sh"), true},
		{"components/Scripts/cleanup.sh", false},
		{"Monitors-old/thing.sh", false},
		{"disk.sh", false},
	}
	for _, tt := range tests {
		if got := underMonitorsDir(tt.path); got != tt.want {
			t.Errorf("underMonitorsDir(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestCopyAttachments(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "config.json"), []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := copyAttachments(src, dst); err != nil {
		t.Fatalf("copyAttachments: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "config.json"))
	if err != nil || string(data) != `{"a":1}` {
		t.Errorf("copied file: %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dst, "nested")); !os.IsNotExist(err) {
		t.Error("directories should not be copied")
	}

	if err := copyAttachments(filepath.Join(src, "missing"), dst); err == nil {
		t.Error("expected error for missing attachments dir")
	}
}
