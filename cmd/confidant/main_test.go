package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a minimal config over a temp data dir and returns
// its path.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "confidant.yaml")
	doc := "version: \"1\"\ndata_dir: " + filepath.Join(dir, "data") + "\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "confidant dev (commit: none") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigCheck(t *testing.T) {
	t.Parallel()

	path := writeConfig(t)
	out, err := execute(t, "config", "check", path)
	if err != nil {
		t.Fatalf("config check: %v", err)
	}
	if !strings.Contains(out, "Configuration OK") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, filepath.Join(filepath.Dir(path), "data", "models")) {
		t.Errorf("model dir missing from output: %q", out)
	}
}

func TestConfigCheck_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("version: \"2\"\ndata_dir: /tmp\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "config", "check", path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestModelsInstallAndEmbed(t *testing.T) {
	t.Parallel()

	path := writeConfig(t)

	out, err := execute(t, "-c", path, "models", "install", "hash-mini-384")
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(out, "installed hash-mini-384") {
		t.Errorf("install output = %q", out)
	}

	out, err = execute(t, "-c", path, "models", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "hash-mini-384") || !strings.Contains(out, "true") {
		t.Errorf("list output = %q", out)
	}

	out, err = execute(t, "-c", path, "embed", "hello", "world")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if !strings.Contains(out, "dims:            384") {
		t.Errorf("embed output = %q", out)
	}
	if !strings.Contains(out, "self-similarity: 1.0000") {
		t.Errorf("embed output = %q", out)
	}
}

func TestEmbed_NoModelInstalled(t *testing.T) {
	t.Parallel()

	path := writeConfig(t)
	if _, err := execute(t, "-c", path, "embed", "hello"); err == nil {
		t.Fatal("expected error without an installed model")
	}
}

func TestHistory_Empty(t *testing.T) {
	t.Parallel()

	path := writeConfig(t)
	out, err := execute(t, "-c", path, "history", "conv-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "(no turns)") {
		t.Errorf("output = %q", out)
	}
}

func TestAssemble_BaseOnly(t *testing.T) {
	t.Parallel()

	path := writeConfig(t)
	out, err := execute(t, "-c", path, "assemble", "--base", "You are kind.", "hello")
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.Contains(out, "You are kind.") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "user: hello") {
		t.Errorf("history missing user turn: %q", out)
	}
}
