// Package trigger evaluates deferred tasks' promotion conditions after each
// task completion. A condition is a string of the form
// "<task_id>:<predicate>" where the predicate is "completed", "promoted",
// or a named boolean condition supplied by the caller (for example a gate
// or integration outcome).
package trigger

import (
	"fmt"
	"strings"

	"github.com/jorge-barreto/loom/internal/graph"
)

const (
	PredCompleted = "completed"
	PredPromoted  = "promoted"
)

// Condition is a parsed defer trigger.
type Condition struct {
	TaskID    string
	Predicate string
}

// Parse splits a "<task_id>:<predicate>" trigger string.
func Parse(s string) (Condition, error) {
	taskID, pred, ok := strings.Cut(s, ":")
	if !ok || taskID == "" || pred == "" {
		return Condition{}, fmt.Errorf("trigger: %q is not of the form \"<task_id>:<predicate>\"", s)
	}
	return Condition{TaskID: taskID, Predicate: pred}, nil
}

// Event describes what just happened: the task that reached done (or, for
// integration tasks, finished its validation), tasks promoted earlier in
// the same evaluation round, and named boolean conditions reported by the
// completion (gate and integration outcomes).
type Event struct {
	CompletedID string
	PromotedIDs []string
	Conditions  map[string]bool
}

// Matches reports whether the condition fires for the event.
func (c Condition) Matches(ev Event) bool {
	switch c.Predicate {
	case PredCompleted:
		return ev.CompletedID == c.TaskID
	case PredPromoted:
		for _, id := range ev.PromotedIDs {
			if id == c.TaskID {
				return true
			}
		}
		return false
	default:
		// Named condition: fires when the referenced task is the one that
		// just completed and the caller reported the condition true.
		return ev.CompletedID == c.TaskID && ev.Conditions[c.Predicate]
	}
}

// Fired scans every deferred task and returns, in insertion order, the ids
// whose trigger matches the event. Unparseable triggers never fire.
func Fired(g *graph.Graph, ev Event) []string {
	var out []string
	for _, t := range g.Tasks() {
		if t.Status != graph.StatusDeferred || t.DeferTrigger == "" {
			continue
		}
		cond, err := Parse(t.DeferTrigger)
		if err != nil {
			continue
		}
		if cond.Matches(ev) {
			out = append(out, t.ID)
		}
	}
	return out
}
