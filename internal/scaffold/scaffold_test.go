package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jorge-barreto/loom/internal/config"
)

func TestInit_CreatesFiles(t *testing.T) {
	dir := t.TempDir()

	if err := Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for _, rel := range []string{
		".loom/config.yaml",
		".loom/prompts/specialist.md",
		".loom/findings.example.yaml",
		".loom/.gitignore",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("expected %s to exist: %v", rel, err)
		}
	}
}

func TestInit_ConfigLoads(t *testing.T) {
	dir := t.TempDir()

	if err := Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	cfg, err := config.Load(filepath.Join(dir, ".loom", "config.yaml"), dir)
	if err != nil {
		t.Fatalf("generated config should load: %v", err)
	}
	if cfg.MaxRevisions != 3 {
		t.Fatalf("expected max-revisions 3, got %d", cfg.MaxRevisions)
	}
	if len(cfg.Gates) == 0 {
		t.Fatal("expected at least one gate in generated config")
	}
	if cfg.AutoDecision != "defer" {
		t.Fatalf("expected auto-decision defer, got %q", cfg.AutoDecision)
	}
}

func TestInit_RefusesExisting(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, ".loom"), 0755)

	err := Init(dir)
	if err == nil {
		t.Fatal("expected error when .loom already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInit_GitignoreCoversArtifacts(t *testing.T) {
	dir := t.TempDir()

	if err := Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".loom", ".gitignore"))
	if err != nil {
		t.Fatalf("reading .gitignore: %v", err)
	}
	if !strings.Contains(string(data), "artifacts/") {
		t.Fatal(".gitignore should ignore artifacts/")
	}
}
