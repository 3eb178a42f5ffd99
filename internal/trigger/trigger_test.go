package trigger

import (
	"testing"

	"github.com/jorge-barreto/loom/internal/graph"
)

func TestParse(t *testing.T) {
	c, err := Parse("t03-export:completed")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.TaskID != "t03-export" || c.Predicate != "completed" {
		t.Errorf("cond = %+v", c)
	}

	for _, bad := range []string{"", "no-predicate", ":completed", "t01:"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestMatches(t *testing.T) {
	ev := Event{
		CompletedID: "t02-rank",
		PromotedIDs: []string{"t05-cache"},
		Conditions:  map[string]bool{"integration_failed": true, "coverage_low": false},
	}

	cases := []struct {
		trigger string
		want    bool
	}{
		{"t02-rank:completed", true},
		{"t09-other:completed", false},
		{"t05-cache:promoted", true},
		{"t02-rank:promoted", false},
		{"t02-rank:integration_failed", true},
		{"t02-rank:coverage_low", false},
		// Named conditions only fire on the completing task.
		{"t09-other:integration_failed", false},
	}
	for _, tc := range cases {
		c, err := Parse(tc.trigger)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.trigger, err)
		}
		if got := c.Matches(ev); got != tc.want {
			t.Errorf("Matches(%q) = %v, want %v", tc.trigger, got, tc.want)
		}
	}
}

func TestFired(t *testing.T) {
	g := graph.New()
	add := func(id, trig string, status graph.Status) {
		t.Helper()
		if err := g.Add(&graph.Task{ID: id, Title: id, Status: status, DeferTrigger: trig}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	add("t01-a", "t04-d:completed", graph.StatusDeferred)
	add("t02-b", "garbage", graph.StatusDeferred)
	add("t03-c", "t04-d:completed", graph.StatusPending) // not deferred
	add("t04-d", "", graph.StatusDone)
	add("t05-e", "t04-d:completed", graph.StatusDeferred)
	add("t06-f", "t01-a:promoted", graph.StatusDeferred)

	ev := Event{CompletedID: "t04-d"}
	got := Fired(g, ev)
	want := []string{"t01-a", "t05-e"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("fired = %v, want %v", got, want)
	}

	// Second round: promotion cascades through the promoted predicate.
	ev.PromotedIDs = got
	cascade := Fired(g, ev)
	if len(cascade) != 3 || cascade[2] != "t06-f" {
		t.Fatalf("cascade = %v", cascade)
	}
}
