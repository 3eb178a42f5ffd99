package runner

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/jorge-barreto/loom/internal/brainstorm"
	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/decision"
	"github.com/jorge-barreto/loom/internal/dispatch"
	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/state"
)

type specialistCall struct {
	taskID   string
	deps     map[string]string
	feedback []string
}

// stubSpecialist returns "draft:<task_id>", optionally erroring a set
// number of times per task first. Every call is recorded.
type stubSpecialist struct {
	calls []specialistCall
	fails map[string]int
}

func (s *stubSpecialist) Execute(ctx context.Context, t *graph.Task, deps map[string]string, feedback []string) (string, error) {
	s.calls = append(s.calls, specialistCall{
		taskID:   t.ID,
		deps:     deps,
		feedback: append([]string(nil), feedback...),
	})
	if s.fails[t.ID] > 0 {
		s.fails[t.ID]--
		return "", errors.New("agent crashed")
	}
	return "draft:" + t.ID, nil
}

// stubReviewer replays scripted verdicts and adjudications, defaulting to
// approve and retry once the scripts run out.
type stubReviewer struct {
	reviews []dispatch.Review
	adjs    []dispatch.Adjudication
}

func (r *stubReviewer) Review(ctx context.Context, t *graph.Task, draft string) (dispatch.Review, error) {
	if len(r.reviews) == 0 {
		return dispatch.Review{Verdict: dispatch.VerdictApprove}, nil
	}
	rev := r.reviews[0]
	r.reviews = r.reviews[1:]
	return rev, nil
}

func (r *stubReviewer) ReviewGateFailure(ctx context.Context, t *graph.Task, res dispatch.GateResult) (dispatch.Adjudication, error) {
	if len(r.adjs) == 0 {
		return dispatch.Adjudication{Outcome: dispatch.GateRetry}, nil
	}
	adj := r.adjs[0]
	r.adjs = r.adjs[1:]
	return adj, nil
}

// stubGates fails each named gate a set number of times, then passes.
type stubGates struct {
	fails map[string]int
	conds map[string]bool
	runs  int
}

func (g *stubGates) Run(ctx context.Context, t *graph.Task, draft string, gate config.Gate) (dispatch.GateResult, error) {
	g.runs++
	if g.fails[gate.Name] > 0 {
		g.fails[gate.Name]--
		return dispatch.GateResult{Gate: gate.Name, Passed: false, Details: "2 checks failing"}, nil
	}
	return dispatch.GateResult{Gate: gate.Name, Passed: true, Conditions: g.conds}, nil
}

type stubIntegration struct {
	passed  bool
	details string
}

func (s *stubIntegration) Run(ctx context.Context, t *graph.Task) (dispatch.GateResult, error) {
	return dispatch.GateResult{Gate: "integration", Passed: s.passed, Details: s.details}, nil
}

func pending(id string, layer graph.Layer, deps ...string) *graph.Task {
	return &graph.Task{ID: id, Title: id, Layer: layer, Status: graph.StatusPending, Dependencies: deps}
}

func runnerFixture(t *testing.T, tasks ...*graph.Task) (*Runner, *stubSpecialist, *stubReviewer) {
	t.Helper()
	st := state.New("demo")
	st.Phase = state.PhaseExecute
	for _, tk := range tasks {
		if err := st.Tasks.Add(tk); err != nil {
			t.Fatalf("add %s: %v", tk.ID, err)
		}
	}

	dir := t.TempDir()
	sp := &stubSpecialist{}
	rv := &stubReviewer{}
	r := &Runner{
		Config: &config.Config{Name: "t", MaxRevisions: 2, MaxGateRetries: 2},
		State:  st,
		Env: &dispatch.Environment{
			ProjectRoot:  dir,
			WorkDir:      dir,
			ArtifactsDir: dir + "/.loom/artifacts",
			Request:      "demo",
		},
		Specialist:  sp,
		Reviewer:    rv,
		Gates:       &stubGates{},
		Integration: &stubIntegration{passed: true},
		Engine: &brainstorm.Engine{
			State:   st,
			Decider: &decision.Policy{Default: decision.OptionKeep},
		},
	}
	return r, sp, rv
}

func TestRun_HappyPathPropagatesOutputs(t *testing.T) {
	r, sp, _ := runnerFixture(t,
		pending("t01-store", graph.LayerCore),
		pending("t02-rank", graph.LayerAlgorithm, "t01-store"),
	)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, id := range []string{"t01-store", "t02-rank"} {
		got, _ := r.State.Tasks.Get(id)
		if got.Status != graph.StatusDone || got.Output != "draft:"+id {
			t.Errorf("%s = %s %q", id, got.Status, got.Output)
		}
		if _, err := os.Stat(state.DraftPath(r.Env.ArtifactsDir, id)); err != nil {
			t.Errorf("draft for %s not written: %v", id, err)
		}
	}

	// The downstream task sees its dependency's approved output.
	if len(sp.calls) != 2 {
		t.Fatalf("calls = %d", len(sp.calls))
	}
	if sp.calls[1].deps["t01-store"] != "draft:t01-store" {
		t.Errorf("deps = %v", sp.calls[1].deps)
	}

	if r.State.Phase != state.PhaseIntegrate {
		t.Errorf("phase = %q", r.State.Phase)
	}
	if _, err := os.Stat(r.Env.ArtifactsDir + "/checkpoint.json"); err != nil {
		t.Errorf("checkpoint not written: %v", err)
	}
}

func TestRun_LayerOrder(t *testing.T) {
	r, sp, _ := runnerFixture(t,
		pending("t02-flow", graph.LayerWorkflow),
		pending("t01-core", graph.LayerCore),
	)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sp.calls[0].taskID != "t01-core" || sp.calls[1].taskID != "t02-flow" {
		t.Errorf("order = %v", sp.calls)
	}
}

func TestRun_ReviseThenApprove(t *testing.T) {
	r, sp, rv := runnerFixture(t, pending("t01-store", graph.LayerCore))
	rv.reviews = []dispatch.Review{
		{Verdict: dispatch.VerdictRevise, Feedback: "handle empty input"},
		{Verdict: dispatch.VerdictApprove},
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sp.calls) != 2 {
		t.Fatalf("calls = %d", len(sp.calls))
	}
	if len(sp.calls[1].feedback) != 1 || sp.calls[1].feedback[0] != "handle empty input" {
		t.Errorf("feedback = %v", sp.calls[1].feedback)
	}
	if _, err := os.Stat(r.Env.ArtifactsDir + "/feedback/t01-store-attempt-1.md"); err != nil {
		t.Errorf("feedback not persisted: %v", err)
	}
}

func TestRun_RejectFailsTask(t *testing.T) {
	r, _, rv := runnerFixture(t, pending("t01-store", graph.LayerCore))
	rv.reviews = []dispatch.Review{
		{Verdict: dispatch.VerdictReject, Reason: "wrong approach"},
	}

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "1 task(s) failed") {
		t.Fatalf("err = %v", err)
	}
	got, _ := r.State.Tasks.Get("t01-store")
	if got.Status != graph.StatusFailed {
		t.Errorf("status = %s", got.Status)
	}
}

func TestRun_RevisionExhaustion(t *testing.T) {
	r, sp, rv := runnerFixture(t, pending("t01-store", graph.LayerCore))
	r.Config.MaxRevisions = 1
	rv.reviews = []dispatch.Review{
		{Verdict: dispatch.VerdictRevise, Feedback: "again"},
		{Verdict: dispatch.VerdictRevise, Feedback: "and again"},
	}

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Fatalf("err = %v", err)
	}
	got, _ := r.State.Tasks.Get("t01-store")
	if got.Status != graph.StatusFailed {
		t.Errorf("status = %s", got.Status)
	}
	// Limit 1 means one revision attempt: the second revise verdict tips
	// the counter over and no further dispatch happens.
	if len(sp.calls) != 2 {
		t.Errorf("calls = %d", len(sp.calls))
	}
}

func TestRun_DispatchErrorBecomesRevision(t *testing.T) {
	r, sp, _ := runnerFixture(t, pending("t01-store", graph.LayerCore))
	sp.fails = map[string]int{"t01-store": 1}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sp.calls) != 2 {
		t.Fatalf("calls = %d", len(sp.calls))
	}
	if len(sp.calls[1].feedback) != 1 || !strings.Contains(sp.calls[1].feedback[0], "produced no draft") {
		t.Errorf("feedback = %v", sp.calls[1].feedback)
	}
	got, _ := r.State.Tasks.Get("t01-store")
	if got.Status != graph.StatusDone {
		t.Errorf("status = %s", got.Status)
	}
}

func TestRun_GateRetryProducesNewDraft(t *testing.T) {
	r, sp, _ := runnerFixture(t, pending("t01-store", graph.LayerCore))
	r.Config.Gates = []config.Gate{{Name: "tests", Run: "true"}}
	r.Gates = &stubGates{fails: map[string]int{"tests": 1}}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := r.State.Tasks.Get("t01-store")
	if got.Status != graph.StatusDone {
		t.Errorf("status = %s", got.Status)
	}
	// One review dispatch plus one gate-feedback redispatch.
	if len(sp.calls) != 2 {
		t.Fatalf("calls = %d", len(sp.calls))
	}
	if len(sp.calls[1].feedback) != 1 || !strings.Contains(sp.calls[1].feedback[0], `gate "tests" failed`) {
		t.Errorf("feedback = %v", sp.calls[1].feedback)
	}
	// The adjudication lands in the decision log.
	found := false
	for _, d := range r.State.Decisions {
		if d.Hook == "gate" && d.TaskID == "t01-store" {
			found = true
		}
	}
	if !found {
		t.Errorf("decisions = %+v", r.State.Decisions)
	}
}

func TestRun_MiddleGateFailsTwiceThenPasses(t *testing.T) {
	r, _, _ := runnerFixture(t, pending("t01-store", graph.LayerCore))
	r.Config.MaxGateRetries = 3
	r.Config.Gates = []config.Gate{
		{Name: "build", Run: "true"},
		{Name: "tests", Run: "true"},
		{Name: "contract", Run: "true"},
	}
	r.Gates = &stubGates{fails: map[string]int{"tests": 2}}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := r.State.Tasks.Get("t01-store")
	if got.Status != graph.StatusDone {
		t.Errorf("status = %s", got.Status)
	}
	retries := 0
	for _, d := range r.State.Decisions {
		if d.Hook == "gate" && d.Choice == "retry" {
			retries++
		}
	}
	if retries != 2 {
		t.Errorf("retry adjudications = %d, decisions = %+v", retries, r.State.Decisions)
	}
}

func TestRun_GateRetryExhaustionPauses(t *testing.T) {
	r, _, _ := runnerFixture(t, pending("t01-store", graph.LayerCore))
	r.Config.MaxGateRetries = 1
	r.Config.Gates = []config.Gate{{Name: "tests", Run: "true"}}
	r.Gates = &stubGates{fails: map[string]int{"tests": 100}}

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "pipeline paused") {
		t.Fatalf("err = %v", err)
	}
	if !r.State.Blocked() || !strings.Contains(r.State.BlockedReason, `gate "tests"`) {
		t.Errorf("blocked = %q", r.State.BlockedReason)
	}
}

func TestRun_GatePauseAdjudication(t *testing.T) {
	r, _, rv := runnerFixture(t, pending("t01-store", graph.LayerCore))
	r.Config.Gates = []config.Gate{{Name: "tests", Run: "true"}}
	r.Gates = &stubGates{fails: map[string]int{"tests": 1}}
	rv.adjs = []dispatch.Adjudication{
		{Outcome: dispatch.GatePause, Reason: "needs a human look"},
	}

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "needs a human look") {
		t.Fatalf("err = %v", err)
	}
}

func TestRun_GateOverrideAcceptsFailure(t *testing.T) {
	r, _, rv := runnerFixture(t, pending("t01-store", graph.LayerCore))
	r.Config.Gates = []config.Gate{
		{Name: "lint", Run: "true"},
		{Name: "tests", Run: "true"},
	}
	r.Gates = &stubGates{fails: map[string]int{"lint": 100}}
	rv.adjs = []dispatch.Adjudication{
		{Outcome: dispatch.GateOverride, Reason: "known flake"},
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, _ := r.State.Tasks.Get("t01-store")
	if got.Status != graph.StatusDone {
		t.Errorf("status = %s", got.Status)
	}
}

func TestRun_BlockedRefusesToSchedule(t *testing.T) {
	r, sp, _ := runnerFixture(t, pending("t01-store", graph.LayerCore))
	r.State.Block("waiting on credentials")

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "pipeline paused: waiting on credentials") {
		t.Fatalf("err = %v", err)
	}
	if len(sp.calls) != 0 {
		t.Errorf("dispatched while blocked: %v", sp.calls)
	}
}

func TestRun_TriggerPromotesDeferredTask(t *testing.T) {
	deferred := pending("t02-export", graph.LayerWorkflow)
	deferred.Status = graph.StatusDeferred
	deferred.DeferTrigger = "t01-store:completed"

	r, sp, _ := runnerFixture(t,
		pending("t01-store", graph.LayerCore),
		deferred,
	)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := r.State.Tasks.Get("t02-export")
	if got.Status != graph.StatusDone {
		t.Errorf("status = %s", got.Status)
	}
	// Both the completion and the promoted task ran through dispatch.
	if len(sp.calls) != 2 || sp.calls[1].taskID != "t02-export" {
		t.Errorf("calls = %v", sp.calls)
	}
	found := false
	for _, d := range r.State.Decisions {
		if d.Hook == "trigger" && d.TaskID == "t02-export" {
			found = true
		}
	}
	if !found {
		t.Errorf("decisions = %+v", r.State.Decisions)
	}
}

func TestRun_IntegrationFailureStaysLocal(t *testing.T) {
	integ := pending("t02-integration", graph.LayerWorkflow, "t01-store")
	integ.Type = graph.TypeIntegration

	r, _, _ := runnerFixture(t,
		pending("t01-store", graph.LayerCore),
		integ,
	)
	r.Integration = &stubIntegration{passed: false, details: "wiring broken"}

	err := r.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "1 task(s) failed") {
		t.Fatalf("err = %v", err)
	}
	store, _ := r.State.Tasks.Get("t01-store")
	if store.Status != graph.StatusDone {
		t.Errorf("upstream dragged down: %s", store.Status)
	}
	got, _ := r.State.Tasks.Get("t02-integration")
	if got.Status != graph.StatusFailed {
		t.Errorf("integration status = %s", got.Status)
	}
}

func TestRun_IntegrationFailureFiresCondition(t *testing.T) {
	integ := pending("t02-integration", graph.LayerWorkflow, "t01-store")
	integ.Type = graph.TypeIntegration

	fallback := pending("t03-fallback", graph.LayerWorkflow)
	fallback.Status = graph.StatusDeferred
	fallback.DeferTrigger = "t02-integration:integration_failed"

	r, sp, _ := runnerFixture(t,
		pending("t01-store", graph.LayerCore),
		integ,
		fallback,
	)
	r.Integration = &stubIntegration{passed: false, details: "accuracy regressed"}

	err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure summary error")
	}
	// The integration failure itself is the promotion condition: the
	// deferred fallback activates and completes.
	got, _ := r.State.Tasks.Get("t03-fallback")
	if got.Status != graph.StatusDone {
		t.Errorf("fallback status = %s", got.Status)
	}
	ran := false
	for _, c := range sp.calls {
		if c.taskID == "t03-fallback" {
			ran = true
		}
	}
	if !ran {
		t.Errorf("calls = %v", sp.calls)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	r, sp, _ := runnerFixture(t, pending("t01-store", graph.LayerCore))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(sp.calls) != 0 {
		t.Errorf("dispatched after cancel: %v", sp.calls)
	}
}

func TestRun_ResumesMidBrainstorm(t *testing.T) {
	risky := pending("t01-fetch", graph.LayerCore)
	risky.Title = "spike external vendor fetcher"

	r, sp, _ := runnerFixture(t, risky)
	r.State.Phase = state.PhaseBrainstorm
	r.Engine.Risk = config.Risk{
		ExternalKeywords:  []string{"external"},
		UncertainKeywords: []string{"spike"},
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Policy default keeps the flagged task; the review completes, the
	// phase advances, and execution proceeds normally.
	if len(sp.calls) != 1 {
		t.Fatalf("calls = %d", len(sp.calls))
	}
	got, _ := r.State.Tasks.Get("t01-fetch")
	if got.Status != graph.StatusDone {
		t.Errorf("status = %s", got.Status)
	}
}
