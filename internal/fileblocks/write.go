package fileblocks

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteAll materializes blocks under root, creating parent directories as
// needed. Absolute paths and paths escaping root are rejected so a draft
// cannot write outside its workspace.
func WriteAll(root string, blocks []FileBlock) error {
	for _, b := range blocks {
		if filepath.IsAbs(b.Path) {
			return fmt.Errorf("fileblocks: absolute path %q not allowed", b.Path)
		}
		clean := filepath.Clean(b.Path)
		if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return fmt.Errorf("fileblocks: path %q escapes the workspace", b.Path)
		}
		dest := filepath.Join(root, clean)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("fileblocks: creating dir for %q: %w", b.Path, err)
		}
		if err := os.WriteFile(dest, []byte(b.Content), 0644); err != nil {
			return fmt.Errorf("fileblocks: writing %q: %w", b.Path, err)
		}
	}
	return nil
}
