// Package decompose builds the initial task graph from capability audit
// findings. Tasks are emitted grouped by layer in a fixed bottom-up order,
// and every dependency a task declares must resolve to a task already
// placed earlier in the same pass.
package decompose

import (
	"fmt"
	"strings"

	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/state"
)

// Classification is the audit verdict for a capability.
type Classification string

const (
	// ClassAvailable means the capability already exists; no task is emitted.
	ClassAvailable Classification = "available"
	// ClassExtensible means an existing capability needs extension.
	ClassExtensible Classification = "extensible"
	// ClassMissing means the capability must be built from scratch.
	ClassMissing Classification = "missing"
	// ClassBlocked means the capability cannot be worked on autonomously;
	// it pauses the pipeline for human input.
	ClassBlocked Classification = "blocked"
)

// Build decomposes audit findings into tasks appended to the state's graph,
// one per finding that requires work, plus a single trailing integration
// task depending on every leaf of the pass. On success the project phase
// advances to the next phase.
func Build(st *state.ProjectState, findings []Finding) error {
	if len(findings) == 0 {
		return fmt.Errorf("decompose: no audit findings")
	}

	var blocked []string
	// byCapability maps audit capability names to generated task ids so
	// 'requires' entries can be resolved within the pass.
	byCapability := make(map[string]string)

	ordered, err := sortByLayer(findings)
	if err != nil {
		return err
	}

	var produced []*graph.Task
	for i, f := range ordered {
		switch f.Classification {
		case ClassAvailable:
			continue
		case ClassBlocked:
			blocked = append(blocked, f.Capability)
			continue
		case ClassExtensible, ClassMissing:
			// falls through to task generation
		default:
			return fmt.Errorf("decompose: finding %q: unknown classification %q", f.Capability, f.Classification)
		}

		layer, _ := graph.ParseLayer(layerOrDefault(f.Layer))

		t := &graph.Task{
			ID:                 fmt.Sprintf("t%02d-%s", len(produced)+1, slug(f.Capability)),
			Title:              taskTitle(f),
			Description:        f.Details,
			Layer:              layer,
			Type:               taskType(f.Classification),
			Status:             graph.StatusPending,
			AcceptanceCriteria: f.Acceptance,
		}

		for _, req := range f.Requires {
			depID, placed := byCapability[req]
			if !placed {
				// Same-pass consistency: a dependency must already be in
				// this pass's output, not merely exist somewhere.
				return fmt.Errorf("decompose: finding %q (position %d) requires %q, which is not placed earlier in this pass", f.Capability, i+1, req)
			}
			if !t.DependsOn(depID) {
				t.Dependencies = append(t.Dependencies, depID)
			}
		}

		byCapability[f.Capability] = t.ID
		produced = append(produced, t)
	}

	if len(produced) == 0 && len(blocked) == 0 {
		return fmt.Errorf("decompose: all findings are already available; nothing to plan")
	}

	for _, t := range produced {
		if err := st.Tasks.Add(t); err != nil {
			return fmt.Errorf("decompose: %w", err)
		}
	}

	if len(produced) > 0 {
		it := integrationTask(produced)
		if err := st.Tasks.Add(it); err != nil {
			return fmt.Errorf("decompose: %w", err)
		}
	}

	if err := st.Tasks.Validate(); err != nil {
		return fmt.Errorf("decompose: %w", err)
	}

	if len(blocked) > 0 {
		st.Block(fmt.Sprintf("audit classified capabilities as blocked: %s", strings.Join(blocked, ", ")))
	}

	st.Phase = st.Phase.Next()
	return nil
}

// integrationTask builds the trailing integration-test task, depending on
// every leaf of the pass (tasks nothing else in the pass depends on).
func integrationTask(produced []*graph.Task) *graph.Task {
	depended := make(map[string]bool)
	for _, t := range produced {
		for _, dep := range t.Dependencies {
			depended[dep] = true
		}
	}
	it := &graph.Task{
		ID:     fmt.Sprintf("t%02d-integration", len(produced)+1),
		Title:  "Integration test of the full pass",
		Layer:  graph.LayerWorkflow,
		Type:   graph.TypeIntegration,
		Status: graph.StatusPending,
	}
	for _, t := range produced {
		if !depended[t.ID] {
			it.Dependencies = append(it.Dependencies, t.ID)
		}
	}
	return it
}

// sortByLayer orders findings bottom-up by layer, stable within a layer.
// An unrecognized layer name is rejected rather than filtered: a finding
// must never vanish from the pass because of a typo.
func sortByLayer(findings []Finding) ([]Finding, error) {
	for _, f := range findings {
		if _, ok := graph.ParseLayer(layerOrDefault(f.Layer)); !ok {
			return nil, fmt.Errorf("decompose: finding %q: unknown layer %q", f.Capability, f.Layer)
		}
	}
	out := make([]Finding, 0, len(findings))
	for _, name := range []string{"core", "infra", "algorithm", "workflow"} {
		for _, f := range findings {
			if layerOrDefault(f.Layer) == name {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

func layerOrDefault(name string) string {
	if name == "" {
		return "workflow"
	}
	return name
}

func taskType(c Classification) graph.TaskType {
	if c == ClassExtensible {
		return graph.TypeExtend
	}
	return graph.TypeNew
}

func taskTitle(f Finding) string {
	if f.Classification == ClassExtensible {
		return "Extend " + f.Capability
	}
	return "Build " + f.Capability
}

// slug normalizes a capability name into an id fragment.
func slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
