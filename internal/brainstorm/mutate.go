package brainstorm

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jorge-barreto/loom/internal/decision"
	"github.com/jorge-barreto/loom/internal/graph"
)

// Structural mutation errors. A mutation returning one of these has not
// touched the graph.
var (
	ErrUnknownTask  = errors.New("unknown task")
	ErrNotPending   = errors.New("task is not pending")
	ErrNotDeferred  = errors.New("restore without a matching defer")
	ErrBadSplitSpec = errors.New("invalid split spec")
)

// Every mutation follows the same discipline: apply to a clone, validate
// the clone, and return it only if the invariants hold. A structural error
// rejects the whole mutation and the caller keeps its original graph.

// Defer postpones a task and its defer closure. Every member of the
// closure is marked deferred under a shared defer group; every edge from a
// surviving task into the closure is suspended, snapshotting the owner's
// active set on first suspension. The trigger, if any, is attached to the
// root only.
func Defer(g *graph.Graph, id, trigger string) (*graph.Graph, error) {
	root, ok := g.Get(id)
	if !ok {
		return nil, fmt.Errorf("brainstorm: defer %q: %w", id, ErrUnknownTask)
	}
	if root.Status != graph.StatusPending {
		return nil, fmt.Errorf("brainstorm: defer %q (status %s): %w", id, root.Status, ErrNotPending)
	}

	next := g.Clone()
	closure := DeferClosure(next, id)
	group := uuid.NewString()

	inClosure := make(map[string]bool, len(closure))
	for _, cid := range closure {
		t, _ := next.Get(cid)
		t.Status = graph.StatusDeferred
		t.DeferGroup = group
		inClosure[cid] = true
	}
	rootClone, _ := next.Get(id)
	rootClone.DeferTrigger = trigger

	// Suspend every active edge pointing into the closure, including edges
	// between closure members, so restore can reverse the operation
	// uniformly.
	for _, t := range next.Tasks() {
		for _, dep := range append([]string(nil), t.Dependencies...) {
			if inClosure[dep] {
				t.SuspendDependency(dep)
			}
		}
	}

	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("brainstorm: defer %q: %w", id, err)
	}
	return next, nil
}

// Restore reverses a defer: every task deferred in the same operation as id
// becomes pending again, and every still-pending task that had suspended an
// edge to a restored member gets that edge reinstated. Done tasks are left
// untouched — their dependency is moot.
func Restore(g *graph.Graph, id string) (*graph.Graph, error) {
	t, ok := g.Get(id)
	if !ok {
		return nil, fmt.Errorf("brainstorm: restore %q: %w", id, ErrUnknownTask)
	}
	if t.Status != graph.StatusDeferred {
		return nil, fmt.Errorf("brainstorm: restore %q (status %s): %w", id, t.Status, ErrNotDeferred)
	}

	next := g.Clone()
	group := t.DeferGroup

	restored := make(map[string]bool)
	for _, m := range next.Tasks() {
		if m.ID == id || (group != "" && m.DeferGroup == group) {
			m.Status = graph.StatusPending
			m.DeferGroup = ""
			m.DeferTrigger = ""
			restored[m.ID] = true
		}
	}

	for _, s := range next.Tasks() {
		if s.Status == graph.StatusDone {
			continue
		}
		for _, dep := range append([]string(nil), s.SuspendedDependencies...) {
			if restored[dep] {
				s.ReinstateDependency(dep)
			}
		}
	}

	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("brainstorm: restore %q: %w", id, err)
	}
	return next, nil
}

// Split replaces a task with two new tasks: an immediately executable slice
// and a deferred remainder behind a trigger. Every edge that pointed at the
// original is rewired per the spec's mapping (defaulting to the deferred
// half, which carries the full semantics); the original is removed.
func Split(g *graph.Graph, id string, spec *decision.SplitSpec) (*graph.Graph, error) {
	orig, ok := g.Get(id)
	if !ok {
		return nil, fmt.Errorf("brainstorm: split %q: %w", id, ErrUnknownTask)
	}
	if orig.Status != graph.StatusPending {
		return nil, fmt.Errorf("brainstorm: split %q (status %s): %w", id, orig.Status, ErrNotPending)
	}
	if spec == nil || spec.NowID == "" || spec.LaterID == "" || spec.NowID == spec.LaterID {
		return nil, fmt.Errorf("brainstorm: split %q: %w", id, ErrBadSplitSpec)
	}
	if _, taken := g.Get(spec.NowID); taken {
		return nil, fmt.Errorf("brainstorm: split %q: id %q already in use: %w", id, spec.NowID, ErrBadSplitSpec)
	}
	if _, taken := g.Get(spec.LaterID); taken {
		return nil, fmt.Errorf("brainstorm: split %q: id %q already in use: %w", id, spec.LaterID, ErrBadSplitSpec)
	}

	next := g.Clone()
	origClone, _ := next.Get(id)

	now := &graph.Task{
		ID:           spec.NowID,
		Title:        spec.NowTitle,
		Description:  spec.NowDescription,
		Layer:        origClone.Layer,
		Type:         origClone.Type,
		Status:       graph.StatusPending,
		Dependencies: append([]string(nil), origClone.Dependencies...),
		RiskLevel:    origClone.RiskLevel,
	}
	later := &graph.Task{
		ID:           spec.LaterID,
		Title:        spec.LaterTitle,
		Description:  spec.LaterDescription,
		Layer:        origClone.Layer,
		Type:         origClone.Type,
		Status:       graph.StatusDeferred,
		Dependencies: []string{now.ID},
		RiskLevel:    origClone.RiskLevel,
		DeferTrigger: spec.LaterTrigger,
		DeferGroup:   uuid.NewString(),
	}

	next.Remove(id)
	if err := next.Add(now); err != nil {
		return nil, fmt.Errorf("brainstorm: split %q: %w", id, err)
	}
	if err := next.Add(later); err != nil {
		return nil, fmt.Errorf("brainstorm: split %q: %w", id, err)
	}

	for _, s := range next.Tasks() {
		if s.ID == now.ID || s.ID == later.ID {
			continue
		}
		repl := spec.LaterID
		if r, ok := spec.Rewire[s.ID]; ok {
			repl = r
		}
		if repl != spec.NowID && repl != spec.LaterID {
			return nil, fmt.Errorf("brainstorm: split %q: rewire target %q is not a replacement: %w", id, repl, ErrBadSplitSpec)
		}
		rewire(s, id, repl)
		// An edge rewired onto the deferred half is immediately suspended;
		// it comes back when the later half is restored.
		if repl == spec.LaterID && s.DependsOn(repl) {
			s.SuspendDependency(repl)
		}
	}

	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("brainstorm: split %q: %w", id, err)
	}
	return next, nil
}

// Drop removes a task entirely. Every other task loses the dropped id from
// every dependency set it holds: a dropped task can never block anything.
func Drop(g *graph.Graph, id string) (*graph.Graph, error) {
	if _, ok := g.Get(id); !ok {
		return nil, fmt.Errorf("brainstorm: drop %q: %w", id, ErrUnknownTask)
	}
	next := g.Clone()
	next.Remove(id)
	for _, t := range next.Tasks() {
		t.StripDependency(id)
	}
	if err := next.Validate(); err != nil {
		return nil, fmt.Errorf("brainstorm: drop %q: %w", id, err)
	}
	return next, nil
}

// rewire replaces old with repl across every dependency set of t,
// preserving set positions and avoiding duplicates.
func rewire(t *graph.Task, old, repl string) {
	for _, set := range []*[]string{&t.Dependencies, &t.SuspendedDependencies, &t.OriginalDependencies} {
		for i, v := range *set {
			if v == old {
				(*set)[i] = repl
			}
		}
		*set = dedup(*set)
	}
}

func dedup(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, v := range ids {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
