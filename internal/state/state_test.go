package state

import (
	"reflect"
	"testing"

	"github.com/jorge-barreto/loom/internal/graph"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	st := New("add full-text search")
	st.Phase = PhaseExecute
	st.Tasks.Add(&graph.Task{ID: "t01-store", Title: "Build store", Status: graph.StatusDone, Output: "store done"})
	st.Tasks.Add(&graph.Task{ID: "t02-rank", Title: "Build ranking", Status: graph.StatusPending, Dependencies: []string{"t01-store"}})
	st.RecordDecision("brainstorm", "t02-rank", "risky?", "keep", "kept despite risk")

	if err := st.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	back, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Request != st.Request || back.Phase != PhaseExecute {
		t.Fatalf("header fields lost: %+v", back)
	}
	if !reflect.DeepEqual(back.Tasks.IDs(), []string{"t01-store", "t02-rank"}) {
		t.Fatalf("task order lost: %v", back.Tasks.IDs())
	}
	done, _ := back.Tasks.Get("t01-store")
	if done.Output != "store done" {
		t.Fatal("task output lost")
	}
	if len(back.Decisions) != 1 || back.Decisions[0].Hook != "brainstorm" {
		t.Fatalf("decision log lost: %+v", back.Decisions)
	}
	if back.Decisions[0].ID == "" || back.Decisions[0].Time.IsZero() {
		t.Fatal("decision record missing id or timestamp")
	}
}

func TestLoad_MissingReturnsFresh(t *testing.T) {
	st, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Phase != PhaseIntake || st.Tasks.Len() != 0 {
		t.Fatalf("expected fresh state, got %+v", st)
	}
}

func TestLoad_ResetsInProgress(t *testing.T) {
	dir := t.TempDir()

	st := New("req")
	st.Tasks.Add(&graph.Task{ID: "a", Status: graph.StatusInProgress})
	st.Tasks.Add(&graph.Task{ID: "b", Status: graph.StatusDone})
	st.Tasks.Add(&graph.Task{ID: "c", Status: graph.StatusDeferred})
	if err := st.Save(dir); err != nil {
		t.Fatal(err)
	}

	back, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := back.Tasks.Get("a")
	if a.Status != graph.StatusPending {
		t.Fatalf("in_progress should reset to pending, got %s", a.Status)
	}
	b, _ := back.Tasks.Get("b")
	c, _ := back.Tasks.Get("c")
	if b.Status != graph.StatusDone || c.Status != graph.StatusDeferred {
		t.Fatal("terminal and deferred statuses must survive a reload")
	}
}

func TestBlockUnblock(t *testing.T) {
	st := New("req")
	if st.Blocked() {
		t.Fatal("fresh state should not be blocked")
	}
	st.Block("audit found blocked capability")
	if !st.Blocked() {
		t.Fatal("Block did not take")
	}
	st.Unblock()
	if st.Blocked() {
		t.Fatal("Unblock did not clear")
	}
}

func TestPhase_Ordering(t *testing.T) {
	if PhaseIntake.Next() != PhaseAudit {
		t.Fatal("intake should advance to audit")
	}
	if PhaseIntegrate.Next() != PhaseIntegrate {
		t.Fatal("final phase should be a fixpoint")
	}
	if !PhaseBrainstorm.Before(PhaseExecute) {
		t.Fatal("brainstorm precedes execute")
	}
	if PhaseExecute.Before(PhaseExecute) {
		t.Fatal("Before must be strict")
	}
}

func TestRecordDecision_AppendOnly(t *testing.T) {
	st := New("req")
	first := st.RecordDecision("gate", "t01", "q1", "retry", "retried")
	second := st.RecordDecision("trigger", "t02", "q2", "promote", "restored")

	if len(st.Decisions) != 2 {
		t.Fatalf("expected 2 records, got %d", len(st.Decisions))
	}
	if first.ID == second.ID {
		t.Fatal("records must get distinct ids")
	}
	if st.Decisions[0].TaskID != "t01" || st.Decisions[1].TaskID != "t02" {
		t.Fatal("records out of order")
	}
}

func TestWriteFeedback(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	if err := WriteFeedback(dir, "t01", 2, "tighten the interface"); err != nil {
		t.Fatalf("WriteFeedback: %v", err)
	}
	if _, err := LoadTiming(dir); err != nil {
		t.Fatalf("LoadTiming on empty dir: %v", err)
	}
}
