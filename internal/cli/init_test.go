package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureGitignoreCreates(t *testing.T) {
	dir := t.TempDir()

	status, err := ensureGitignore(dir)
	if err != nil {
		t.Fatalf("failed to ensure gitignore: %v", err)
	}
	if status != "created" {
		t.Fatalf("expected status created, got %q", status)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatalf("failed to read gitignore: %v", err)
	}
	if !strings.Contains(string(data), ".marginalia/") {
		t.Errorf("expected state dir entry, got:\n%s", data)
	}
}

func TestEnsureGitignoreAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("node_modules/\n.obsidian/workspace.json\n"), 0644); err != nil {
		t.Fatalf("failed to seed gitignore: %v", err)
	}

	status, err := ensureGitignore(dir)
	if err != nil {
		t.Fatalf("failed to ensure gitignore: %v", err)
	}
	if status != "updated" {
		t.Fatalf("expected status updated, got %q", status)
	}

	data, _ := os.ReadFile(path)
	content := string(data)
	if !strings.Contains(content, "node_modules/") {
		t.Error("expected existing entries preserved")
	}
	if !strings.Contains(content, ".marginalia/") {
		t.Errorf("expected state dir entry appended, got:\n%s", content)
	}
}

func TestEnsureGitignoreUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte(".marginalia/\n"), 0644); err != nil {
		t.Fatalf("failed to seed gitignore: %v", err)
	}

	status, err := ensureGitignore(dir)
	if err != nil {
		t.Fatalf("failed to ensure gitignore: %v", err)
	}
	if status != "unchanged" {
		t.Fatalf("expected status unchanged, got %q", status)
	}

	data, _ := os.ReadFile(path)
	if string(data) != ".marginalia/\n" {
		t.Errorf("expected file untouched, got:\n%s", data)
	}
}
