package envfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemplate(t *testing.T, root, env, content string) {
	t.Helper()
	dir := filepath.Join(root, "env-templates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "env."+env+".template"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeHead(t *testing.T, root, ref string) {
	t.Helper()
	dir := filepath.Join(root, ".git")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "HEAD"), []byte(ref+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSetupWritesEnvFile(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "staging", "# staging settings\nSTORE_URL=https://staging.example.com\nAPI_KEY=abc\n\n")

	result, err := Setup(root, "staging")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, ".env"))
	if err != nil {
		t.Fatalf("reading .env: %v", err)
	}
	if string(data) == "" {
		t.Fatal(".env should not be empty")
	}

	if result.Environment != "staging" {
		t.Errorf("environment = %q", result.Environment)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(result.Entries), result.Entries)
	}
	if result.Entries[0].Key != "STORE_URL" || result.Entries[1].Key != "API_KEY" {
		t.Errorf("unexpected entries: %+v", result.Entries)
	}
}

func TestSetupParsesQuotedAndExportedEntries(t *testing.T) {
	root := t.TempDir()
	writeTemplate(t, root, "local", "export STORE_URL=\"https://local.example.com\"\nAPI_KEY='abc=def'\n")

	result, err := Setup(root, "local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", result.Entries)
	}
	if result.Entries[0].Key != "STORE_URL" || result.Entries[0].Value != "https://local.example.com" {
		t.Errorf("entry 0 = %+v", result.Entries[0])
	}
	if result.Entries[1].Key != "API_KEY" || result.Entries[1].Value != "abc=def" {
		t.Errorf("entry 1 = %+v", result.Entries[1])
	}
}

func TestSetupInvalidEnvironment(t *testing.T) {
	_, err := Setup(t.TempDir(), "qa")
	if err == nil {
		t.Fatal("expected error for invalid environment")
	}
}

func TestSetupMissingTemplate(t *testing.T) {
	_, err := Setup(t.TempDir(), "production")
	if err == nil {
		t.Fatal("expected error for missing template")
	}
}

func TestDetectEnvironment(t *testing.T) {
	tests := []struct {
		branch string
		want   string
	}{
		{"main", EnvProduction},
		{"staging", EnvStaging},
		{"feature/follow-mode", EnvLocal},
	}
	for _, tt := range tests {
		t.Run(tt.branch, func(t *testing.T) {
			root := t.TempDir()
			writeHead(t, root, "ref: refs/heads/"+tt.branch)
			if got := DetectEnvironment(root); got != tt.want {
				t.Errorf("DetectEnvironment() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectEnvironmentNoRepo(t *testing.T) {
	if got := DetectEnvironment(t.TempDir()); got != EnvLocal {
		t.Errorf("expected local fallback, got %q", got)
	}
}

func TestValidateEnvironment(t *testing.T) {
	for _, env := range ValidEnvironments {
		if err := ValidateEnvironment(env); err != nil {
			t.Errorf("ValidateEnvironment(%q) = %v", env, err)
		}
	}
	if err := ValidateEnvironment("dev"); err == nil {
		t.Error("expected error for unknown environment")
	}
}
