package brainstorm

import (
	"testing"

	"github.com/jorge-barreto/loom/internal/graph"
)

func newTask(id string, deps ...string) *graph.Task {
	return &graph.Task{
		ID:           id,
		Title:        id,
		Status:       graph.StatusPending,
		Dependencies: deps,
	}
}

func buildGraph(t *testing.T, tasks ...*graph.Task) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, task := range tasks {
		if err := g.Add(task); err != nil {
			t.Fatalf("add %s: %v", task.ID, err)
		}
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return g
}

func assertIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDeferClosure_ChainStopsAtTerminal(t *testing.T) {
	// a <- b <- c <- d; d is the terminal deliverable. Deferring b drags
	// c down (it only exists to feed d through b's line) and a up (b is
	// its sole dependent), but never the terminal d itself.
	g := buildGraph(t,
		newTask("a"),
		newTask("b", "a"),
		newTask("c", "b"),
		newTask("d", "c"),
	)
	assertIDs(t, DeferClosure(g, "b"), []string{"a", "b", "c"})
}

func TestDeferClosure_DependentFedElsewhereStays(t *testing.T) {
	// b and x both feed c. Deferring b leaves c active (it still has an
	// active dependency outside the closure) and leaves x alone, but a
	// joins upstream: b was its only consumer.
	g := buildGraph(t,
		newTask("a"),
		newTask("b", "a"),
		newTask("x"),
		newTask("c", "b", "x"),
		newTask("d", "c"),
	)
	assertIDs(t, DeferClosure(g, "b"), []string{"a", "b"})
}

func TestDeferClosure_UpstreamExclusivePrerequisite(t *testing.T) {
	// a exists only to feed b. Deferring b pulls a in upstream.
	g := buildGraph(t,
		newTask("a"),
		newTask("b", "a"),
	)
	assertIDs(t, DeferClosure(g, "b"), []string{"a", "b"})
}

func TestDeferClosure_SharedPrerequisiteStays(t *testing.T) {
	// a feeds both b and z; deferring b must not steal a from z.
	g := buildGraph(t,
		newTask("a"),
		newTask("b", "a"),
		newTask("z", "a"),
	)
	assertIDs(t, DeferClosure(g, "b"), []string{"b"})
}

func TestDeferClosure_DiamondPartialFeed(t *testing.T) {
	// root feeds left and right; sink needs both. Deferring left pulls
	// nothing else: right is outside the closure, so sink keeps an active
	// dependency, and root still serves right.
	g := buildGraph(t,
		newTask("root"),
		newTask("left", "root"),
		newTask("right", "root"),
		newTask("sink", "left", "right"),
		newTask("ship", "sink"),
	)
	assertIDs(t, DeferClosure(g, "left"), []string{"left"})
}

func TestDeferClosure_IgnoresNonPending(t *testing.T) {
	done := newTask("a")
	done.Status = graph.StatusDone
	g := buildGraph(t,
		done,
		newTask("b", "a"),
		newTask("c", "b"),
		newTask("d", "c"),
	)
	// a is done; it never joins the closure even though only b depends
	// on it.
	assertIDs(t, DeferClosure(g, "b"), []string{"b", "c"})
}
