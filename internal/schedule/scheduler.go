// Package schedule computes the ready set and selects the next runnable
// task. Both functions are pure reads over the graph; scheduling policy
// (blocked-reason checks, single-writer sequencing) belongs to the runner.
package schedule

import (
	"sort"

	"github.com/jorge-barreto/loom/internal/graph"
)

// Ready returns the pending tasks whose active dependency set is entirely
// done, in insertion order. Deferred, in-progress, done, and failed tasks
// are never ready.
func Ready(g *graph.Graph) []*graph.Task {
	var out []*graph.Task
	for _, t := range g.Tasks() {
		if t.Status != graph.StatusPending {
			continue
		}
		if depsDone(g, t) {
			out = append(out, t)
		}
	}
	return out
}

// Next selects one ready task: lowest layer first, insertion order within a
// layer. The second return is false when the ready set is empty.
func Next(g *graph.Graph) (*graph.Task, bool) {
	ready := Ready(g)
	if len(ready) == 0 {
		return nil, false
	}
	// Ready is insertion-ordered; a stable sort by layer preserves that
	// order as the tie-break.
	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].Layer < ready[j].Layer
	})
	return ready[0], true
}

// Terminal reports the pipeline's natural termination signal: no ready task
// and no task still in progress. Pending tasks stranded behind failed or
// deferred dependencies do not keep the pipeline alive.
func Terminal(g *graph.Graph) bool {
	if len(Ready(g)) > 0 {
		return false
	}
	for _, t := range g.Tasks() {
		if t.Status == graph.StatusInProgress {
			return false
		}
	}
	return true
}

func depsDone(g *graph.Graph, t *graph.Task) bool {
	for _, dep := range t.Dependencies {
		d, ok := g.Get(dep)
		if !ok || d.Status != graph.StatusDone {
			return false
		}
	}
	return true
}
