// Package brainstorm flags structurally risky tasks and applies
// human- or policy-selected graph mutations (defer, keep, split, drop)
// without violating the graph's invariants.
package brainstorm

import (
	"fmt"
	"strings"

	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/graph"
)

// Flagged is one risky task together with the reasons it was flagged.
type Flagged struct {
	Task       *graph.Task
	Reasons    []string
	Dependents int
	// Level is the coarse risk label stamped onto the task: external,
	// uncertain, or critical-path (the first check that fired).
	Level string
}

// Reason joins the individual check reasons for display.
func (f Flagged) Reason() string {
	return strings.Join(f.Reasons, "; ")
}

// Flag evaluates every pending task against the configured risk checks, in
// insertion order. Each check is a pure function over the graph; flagged
// tasks get their RiskLevel stamped as a side effect.
func Flag(g *graph.Graph, cfg config.Risk) []Flagged {
	var out []Flagged
	for _, t := range g.Tasks() {
		if t.Status != graph.StatusPending || t.Type == graph.TypeIntegration {
			continue
		}
		var f Flagged
		if reason, ok := externalDependency(t, cfg.ExternalKeywords); ok {
			f.Reasons = append(f.Reasons, reason)
			f.Level = firstLevel(f.Level, "external")
		}
		if reason, ok := highUncertainty(t, cfg.UncertainKeywords); ok {
			f.Reasons = append(f.Reasons, reason)
			f.Level = firstLevel(f.Level, "uncertain")
		}
		deps := len(g.TransitiveDependents(t.ID))
		if reason, ok := longCriticalPath(deps, cfg.DependentThreshold); ok {
			f.Reasons = append(f.Reasons, reason)
			f.Level = firstLevel(f.Level, "critical-path")
		}
		if len(f.Reasons) == 0 {
			continue
		}
		f.Task = t
		f.Dependents = deps
		t.RiskLevel = f.Level
		out = append(out, f)
	}
	return out
}

// externalDependency matches tasks whose text touches capabilities outside
// the system's control.
func externalDependency(t *graph.Task, keywords []string) (string, bool) {
	if kw, ok := matchKeyword(t, keywords); ok {
		return fmt.Sprintf("mentions external capability (%q)", kw), true
	}
	return "", false
}

// highUncertainty matches tasks whose text suggests an uncertain outcome.
func highUncertainty(t *graph.Task, keywords []string) (string, bool) {
	if kw, ok := matchKeyword(t, keywords); ok {
		return fmt.Sprintf("uncertain outcome (%q)", kw), true
	}
	return "", false
}

// longCriticalPath matches tasks whose transitive dependent count meets or
// exceeds the configured threshold.
func longCriticalPath(dependents, threshold int) (string, bool) {
	if threshold > 0 && dependents >= threshold {
		return fmt.Sprintf("%d transitive dependents (threshold %d)", dependents, threshold), true
	}
	return "", false
}

func matchKeyword(t *graph.Task, keywords []string) (string, bool) {
	text := strings.ToLower(t.Title + " " + t.Description)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

func firstLevel(current, level string) string {
	if current != "" {
		return current
	}
	return level
}
