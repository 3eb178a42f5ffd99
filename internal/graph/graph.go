// Package graph holds the canonical task collection and its structural
// invariants. The graph is an id-keyed arena: tasks reference each other by
// stable string ids, never by pointer, so defer/restore/split/drop reduce to
// set operations with no dangling-pointer risk.
package graph

import (
	"encoding/json"
	"fmt"
)

// Graph is the id-keyed task store. Insertion order is preserved and used
// as the deterministic tie-break everywhere tasks are enumerated.
type Graph struct {
	tasks map[string]*Task
	order []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Add appends a task to the graph. The id must be unique and non-empty.
func (g *Graph) Add(t *Task) error {
	if t.ID == "" {
		return fmt.Errorf("graph: task with empty id")
	}
	if _, exists := g.tasks[t.ID]; exists {
		return fmt.Errorf("graph: duplicate task id %q", t.ID)
	}
	g.tasks[t.ID] = t
	g.order = append(g.order, t.ID)
	return nil
}

// Get returns the task with the given id.
func (g *Graph) Get(id string) (*Task, bool) {
	t, ok := g.tasks[id]
	return t, ok
}

// Remove deletes a task from the graph. Dependency references held by other
// tasks are the caller's responsibility (see brainstorm.Drop).
func (g *Graph) Remove(id string) {
	if _, ok := g.tasks[id]; !ok {
		return
	}
	delete(g.tasks, id)
	for i, v := range g.order {
		if v == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}

// Tasks returns every task in insertion order.
func (g *Graph) Tasks() []*Task {
	out := make([]*Task, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.tasks[id])
	}
	return out
}

// IDs returns every task id in insertion order.
func (g *Graph) IDs() []string {
	return append([]string(nil), g.order...)
}

// Dependents returns the ids of tasks that hold an active dependency on id,
// in insertion order.
func (g *Graph) Dependents(id string) []string {
	var out []string
	for _, tid := range g.order {
		if g.tasks[tid].DependsOn(id) {
			out = append(out, tid)
		}
	}
	return out
}

// TransitiveDependents returns the ids of every task that depends on id
// directly or through other tasks, following active edges, in insertion order.
func (g *Graph) TransitiveDependents(id string) []string {
	reached := map[string]bool{}
	frontier := []string{id}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for _, dep := range g.Dependents(next) {
			if !reached[dep] {
				reached[dep] = true
				frontier = append(frontier, dep)
			}
		}
	}
	var out []string
	for _, tid := range g.order {
		if reached[tid] {
			out = append(out, tid)
		}
	}
	return out
}

// Clone returns a deep copy of the graph. Mutations are applied to a clone,
// validated, and only then swapped in, so a rejected mutation leaves the
// original untouched.
func (g *Graph) Clone() *Graph {
	cp := New()
	for _, id := range g.order {
		cp.tasks[id] = g.tasks[id].Clone()
	}
	cp.order = append([]string(nil), g.order...)
	return cp
}

// MarshalJSON encodes the graph as a task array in insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Tasks())
}

// UnmarshalJSON rebuilds the graph from a task array, restoring insertion
// order from array order.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var tasks []*Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return err
	}
	g.tasks = make(map[string]*Task, len(tasks))
	g.order = nil
	for _, t := range tasks {
		if err := g.Add(t); err != nil {
			return err
		}
	}
	return nil
}
