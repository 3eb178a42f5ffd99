package ux

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/state"
)

// RenderStatus prints the full status display for a project.
func RenderStatus(st *state.ProjectState, artifactsDir string) {
	timing, _ := state.LoadTiming(artifactsDir)

	// Header
	fmt.Printf("%sRequest:%s %s\n", Bold, Reset, st.Request)
	fmt.Printf("%sPhase:%s   %s\n", Bold, Reset, st.Phase)
	if st.Blocked() {
		fmt.Printf("%sPaused:%s  %s%s%s\n", Bold, Reset, Red, st.BlockedReason, Reset)
	}

	// Task table
	if st.Tasks != nil && st.Tasks.Len() > 0 {
		fmt.Printf("\n%sTasks:%s\n", Bold, Reset)
		for i, t := range st.Tasks.Tasks() {
			marker := "  "
			if t.Status == graph.StatusInProgress {
				marker = fmt.Sprintf("%s→%s ", Yellow, Reset)
			}
			dur := ""
			if timing != nil {
				if d := timing.Duration(t.ID); d != "" {
					dur = fmt.Sprintf("(%s)", d)
				}
			}
			fmt.Printf("  %s%s%2d%s  %-24s %-10s %s%s%s  %s\n",
				marker, Dim, i+1, Reset, t.ID, t.Layer, statusColor(t.Status), t.Status, Reset, dur)
			if t.Status == graph.StatusDeferred && t.DeferTrigger != "" {
				fmt.Printf("        %strigger: %s%s\n", Dim, t.DeferTrigger, Reset)
			}
		}
	}

	// Decision log
	if len(st.Decisions) > 0 {
		fmt.Printf("\n%sDecisions:%s\n", Bold, Reset)
		for _, d := range st.Decisions {
			fmt.Printf("  %s[%s]%s %s: %s — %s\n", Dim, d.Hook, Reset, d.TaskID, d.Choice, d.Action)
		}
	}

	// Artifacts listing
	fmt.Printf("\n%sArtifacts:%s\n", Bold, Reset)
	entries, err := os.ReadDir(artifactsDir)
	if err != nil {
		fmt.Printf("  %s(none)%s\n", Dim, Reset)
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			subEntries, _ := os.ReadDir(filepath.Join(artifactsDir, e.Name()))
			if len(subEntries) > 0 {
				first := subEntries[0].Name()
				last := subEntries[len(subEntries)-1].Name()
				if first == last {
					fmt.Printf("  %s/%s/%s\n", artifactsDir, e.Name(), first)
				} else {
					fmt.Printf("  %s/%s/%s .. %s\n", artifactsDir, e.Name(), first, last)
				}
			}
		} else {
			fmt.Printf("  %s/%s\n", artifactsDir, e.Name())
		}
	}
	fmt.Println()
}

func statusColor(s graph.Status) string {
	switch s {
	case graph.StatusDone:
		return Green
	case graph.StatusFailed:
		return Red
	case graph.StatusInProgress:
		return Yellow
	case graph.StatusDeferred:
		return Dim
	default:
		return ""
	}
}
