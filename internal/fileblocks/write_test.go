package fileblocks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAll_CreatesNestedFiles(t *testing.T) {
	root := t.TempDir()
	blocks := []FileBlock{
		{Path: "src/search/bm25.py", Content: "def score():\n    pass"},
		{Path: "README.md", Content: "# search"},
	}

	if err := WriteAll(root, blocks); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "src", "search", "bm25.py"))
	if err != nil {
		t.Fatalf("nested file not written: %v", err)
	}
	if string(data) != "def score():\n    pass" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestWriteAll_RejectsAbsolutePath(t *testing.T) {
	err := WriteAll(t.TempDir(), []FileBlock{{Path: "/etc/passwd", Content: "nope"}})
	if err == nil {
		t.Fatal("expected error for absolute path")
	}
}

func TestWriteAll_RejectsEscape(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"../outside.txt", "a/../../outside.txt", ".."} {
		if err := WriteAll(root, []FileBlock{{Path: p, Content: "nope"}}); err == nil {
			t.Errorf("expected error for escaping path %q", p)
		}
	}
}

func TestWriteAll_CleansInternalDotDot(t *testing.T) {
	root := t.TempDir()
	// a/../b stays inside root after cleaning.
	if err := WriteAll(root, []FileBlock{{Path: "a/../b.txt", Content: "ok"}}); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "b.txt")); err != nil {
		t.Fatalf("cleaned path not written: %v", err)
	}
}
