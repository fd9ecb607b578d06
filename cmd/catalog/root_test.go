package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Clark-Hu/movie-catalog/internal/auth"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("DB_URL", "postgres://localhost/catalog_test")
	t.Setenv("AUTH_JWT_SECRET", "cli-secret")
}

func TestTokenCommand(t *testing.T) {
	setTestEnv(t)

	out, err := runCLI(t, "token", "--user", "alice", "--ttl", "5m")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	tokens, err := auth.NewTokens("cli-secret", 1)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	p, err := tokens.Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Subject != "alice" {
		t.Fatalf("subject = %q", p.Subject)
	}
}

func TestTokenCommandRequiresUser(t *testing.T) {
	setTestEnv(t)
	if _, err := runCLI(t, "token"); err == nil {
		t.Fatal("expected error without --user")
	}
}

func TestImportDryRun(t *testing.T) {
	setTestEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.toml")
	if err := os.WriteFile(path, []byte(sampleCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	out, err := runCLI(t, "import", "--file", path, "--dry-run")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Parsed 2 genres and 2 movies") {
		t.Fatalf("output = %q", out)
	}
}

func TestEnvFileFlag(t *testing.T) {
	t.Setenv("DB_URL", "")
	t.Setenv("AUTH_JWT_SECRET", "")
	os.Unsetenv("DB_URL")
	os.Unsetenv("AUTH_JWT_SECRET")

	path := filepath.Join(t.TempDir(), "catalog.env")
	if err := os.WriteFile(path, []byte("DB_URL=postgres://localhost/x\nAUTH_JWT_SECRET=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("ENV_FILE", "")

	out, err := runCLI(t, "--env-file", path, "token", "--user", "bob")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	tokens, err := auth.NewTokens("from-file", 1)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	if _, err := tokens.Verify(strings.TrimSpace(out)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
