package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runInit executes the init command with the given flags.
func runInit(t *testing.T, args ...string) error {
	t.Helper()

	cmd := NewInitCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

// TestInitCreatesConfigFile verifies the happy path.
func TestInitCreatesConfigFile(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), ".gatecrawl")
	if err := runInit(t, "-o", outputPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read generated file: %v", err)
	}
	for _, want := range []string{"defaults:", "sites:"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("expected generated config to contain %q", want)
		}
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		t.Fatalf("failed to stat generated file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}
}

// TestInitRefusesOverwrite verifies existing files are protected.
func TestInitRefusesOverwrite(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), ".gatecrawl")
	if err := os.WriteFile(outputPath, []byte("keep me"), 0600); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	if err := runInit(t, "-o", outputPath); err == nil {
		t.Error("expected error without --force")
	}

	if err := runInit(t, "-o", outputPath, "-f"); err != nil {
		t.Errorf("expected --force to overwrite: %v", err)
	}
	content, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(content) == "keep me" {
		t.Error("expected file to be replaced with --force")
	}
}

// TestInitCreatesParentDirectories verifies nested output paths work.
func TestInitCreatesParentDirectories(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	if err := runInit(t, "-o", outputPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		t.Errorf("expected file at nested path: %v", err)
	}
}
