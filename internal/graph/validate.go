package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Structural errors. A mutation that would introduce one of these is
// rejected outright and the graph left unchanged.
var (
	ErrCycle      = errors.New("dependency cycle")
	ErrDangling   = errors.New("dangling dependency reference")
	ErrSuspension = errors.New("inconsistent suspension sets")
)

// Validate checks the graph's structural invariants:
//
//  1. the active dependency relation is acyclic;
//  2. for every task, Dependencies and SuspendedDependencies are disjoint,
//     and both are subsets of OriginalDependencies whenever a snapshot
//     exists; a task that has never been suspended has no suspended set;
//  3. every referenced id resolves to a task in the collection.
func (g *Graph) Validate() error {
	for _, t := range g.Tasks() {
		for _, set := range [][]string{t.Dependencies, t.SuspendedDependencies, t.OriginalDependencies} {
			for _, id := range set {
				if _, ok := g.tasks[id]; !ok {
					return fmt.Errorf("graph: task %q references %q: %w", t.ID, id, ErrDangling)
				}
			}
		}
		for _, id := range t.Dependencies {
			if t.Suspended(id) {
				return fmt.Errorf("graph: task %q holds %q as both active and suspended: %w", t.ID, id, ErrSuspension)
			}
		}
		if len(t.OriginalDependencies) == 0 {
			if len(t.SuspendedDependencies) > 0 {
				return fmt.Errorf("graph: task %q has suspended dependencies but no original snapshot: %w", t.ID, ErrSuspension)
			}
			continue
		}
		for _, id := range t.Dependencies {
			if !containsID(t.OriginalDependencies, id) {
				return fmt.Errorf("graph: task %q dependency %q missing from original snapshot: %w", t.ID, id, ErrSuspension)
			}
		}
		for _, id := range t.SuspendedDependencies {
			if !containsID(t.OriginalDependencies, id) {
				return fmt.Errorf("graph: task %q suspended %q missing from original snapshot: %w", t.ID, id, ErrSuspension)
			}
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return fmt.Errorf("graph: %s: %w", strings.Join(cycle, " -> "), ErrCycle)
	}
	return nil
}

// findCycle runs a three-color depth-first search over active dependency
// edges and returns the first cycle found as an id path, or nil.
func (g *Graph) findCycle() []string {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(g.order))
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		path = append(path, id)
		for _, dep := range g.tasks[id].Dependencies {
			if _, ok := g.tasks[dep]; !ok {
				continue // reported as dangling elsewhere
			}
			switch color[dep] {
			case gray:
				// Slice the path from the first occurrence of dep.
				for i, v := range path {
					if v == dep {
						cycle = append(append([]string(nil), path[i:]...), dep)
						return true
					}
				}
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	for _, id := range g.order {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}
