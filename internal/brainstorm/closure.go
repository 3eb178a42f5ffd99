package brainstorm

import (
	"github.com/jorge-barreto/loom/internal/graph"
)

// DeferClosure computes the set of tasks deferred together with root: the
// root plus every pending task that becomes pointless while the root is
// postponed, without touching anything still serving unrelated active work.
//
// The closure grows to a fixpoint under two rules:
//
//   - downstream: a pending task joins when every one of its active
//     dependencies is already in the closure AND it feeds at least one
//     other task. A terminal deliverable never auto-defers — it stays
//     pending and has its edges into the closure suspended instead.
//
//   - upstream: a pending prerequisite of a closure member joins when
//     every one of its direct dependents is already in the closure. A
//     prerequisite shared with unrelated active work is never deferred.
//
// Returned ids are in graph insertion order, root included.
func DeferClosure(g *graph.Graph, rootID string) []string {
	closure := map[string]bool{rootID: true}

	for changed := true; changed; {
		changed = false
		for _, t := range g.Tasks() {
			if closure[t.ID] || t.Status != graph.StatusPending {
				continue
			}
			if exclusiveDependent(g, t, closure) || exclusivePrerequisite(g, t, closure) {
				closure[t.ID] = true
				changed = true
			}
		}
	}

	var out []string
	for _, id := range g.IDs() {
		if closure[id] {
			out = append(out, id)
		}
	}
	return out
}

// exclusiveDependent reports whether t's entire active prerequisite set is
// inside the closure and t feeds further work.
func exclusiveDependent(g *graph.Graph, t *graph.Task, closure map[string]bool) bool {
	if len(t.Dependencies) == 0 || len(g.Dependents(t.ID)) == 0 {
		return false
	}
	for _, dep := range t.Dependencies {
		if !closure[dep] {
			return false
		}
	}
	return true
}

// exclusivePrerequisite reports whether t is an active dependency of some
// closure member and every direct dependent of t is in the closure.
func exclusivePrerequisite(g *graph.Graph, t *graph.Task, closure map[string]bool) bool {
	dependents := g.Dependents(t.ID)
	if len(dependents) == 0 {
		return false
	}
	feedsClosure := false
	for _, id := range dependents {
		if !closure[id] {
			return false
		}
		feedsClosure = true
	}
	return feedsClosure
}
