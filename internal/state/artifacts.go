package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates the artifacts directory structure.
func EnsureDir(artifactsDir string) error {
	dirs := []string{
		artifactsDir,
		filepath.Join(artifactsDir, "drafts"),
		filepath.Join(artifactsDir, "logs"),
		filepath.Join(artifactsDir, "feedback"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating artifacts dir %s: %w", d, err)
		}
	}
	return nil
}

// LogPath returns the path for a task's dispatch log file.
func LogPath(artifactsDir, taskID string) string {
	return filepath.Join(artifactsDir, "logs", taskID+".log")
}

// DraftPath returns the path where a task's approved draft is written.
func DraftPath(artifactsDir, taskID string) string {
	return filepath.Join(artifactsDir, "drafts", taskID+".md")
}

// WriteFeedback records reviewer or gate feedback for a task so a later
// dispatch can pick it up and so failed attempts stay reconstructable.
func WriteFeedback(artifactsDir, taskID string, attempt int, content string) error {
	path := filepath.Join(artifactsDir, "feedback", fmt.Sprintf("%s-attempt-%d.md", taskID, attempt))
	return os.WriteFile(path, []byte(content), 0644)
}
