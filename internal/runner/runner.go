// Package runner drives the execute phase: it asks the scheduler for the
// next ready task, advances that task through dispatch, review, gate
// verification and integration validation, checkpoints after every
// completion, and re-evaluates deferred tasks' promotion triggers.
//
// The core is single-writer and sequential: one task at a time, every graph
// mutation applied atomically with respect to the others, every external
// collaborator invoked synchronously with an immutable view of its inputs.
package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/jorge-barreto/loom/internal/brainstorm"
	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/dispatch"
	"github.com/jorge-barreto/loom/internal/eventlog"
	"github.com/jorge-barreto/loom/internal/fileblocks"
	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/schedule"
	"github.com/jorge-barreto/loom/internal/state"
	"github.com/jorge-barreto/loom/internal/trigger"
	"github.com/jorge-barreto/loom/internal/ux"
)

// Runner owns one pipeline run. All collaborator fields are interfaces;
// tests substitute deterministic stubs.
type Runner struct {
	Config      *config.Config
	State       *state.ProjectState
	Env         *dispatch.Environment
	Specialist  dispatch.Specialist
	Reviewer    dispatch.Reviewer
	Gates       dispatch.GateRunner
	Integration dispatch.IntegrationRunner
	Engine      *brainstorm.Engine
	Events      *eventlog.Logger
	Timing      *state.Timing
}

// Run executes the pipeline from the current state until no runnable task
// remains, the pipeline pauses, or the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := state.EnsureDir(r.Env.ArtifactsDir); err != nil {
		return err
	}
	timing, err := state.LoadTiming(r.Env.ArtifactsDir)
	if err != nil {
		return fmt.Errorf("loading timing: %w", err)
	}
	r.Timing = timing

	// A pipeline resumed mid-brainstorm finishes the risk review first.
	if r.State.Phase == state.PhaseBrainstorm {
		if err := r.Engine.Review(ctx); err != nil {
			return r.failAndHint(err)
		}
		if err := r.checkpoint(); err != nil {
			return err
		}
	}

	total := r.State.Tasks.Len()
	for {
		if ctx.Err() != nil {
			return r.failAndHint(ctx.Err())
		}
		if r.State.Blocked() {
			// Scheduling refuses to advance while a blocked reason is set,
			// regardless of an otherwise-nonempty ready set.
			ux.Blocked(r.State.BlockedReason)
			if err := r.checkpoint(); err != nil {
				return err
			}
			ux.ResumeHint(r.State.Request)
			return fmt.Errorf("pipeline paused: %s", r.State.BlockedReason)
		}

		task, ok := schedule.Next(r.State.Tasks)
		if !ok {
			if !schedule.Terminal(r.State.Tasks) {
				// Single-writer loop: nothing can be in progress here.
				return fmt.Errorf("scheduler stuck: no ready task but pipeline not terminal")
			}
			return r.finish()
		}

		ev, err := r.runTask(ctx, task, total)
		if err != nil {
			return r.failAndHint(err)
		}

		if err := r.checkpoint(); err != nil {
			return err
		}
		if flushErr := r.Timing.Flush(r.Env.ArtifactsDir); flushErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush timing: %v\n", flushErr)
		}

		if ev != nil {
			if err := r.evaluateTriggers(ctx, *ev); err != nil {
				return r.failAndHint(err)
			}
			if err := r.checkpoint(); err != nil {
				return err
			}
		}
	}
}

// runTask advances one task through its state machine. A terminal task
// outcome (done or failed) is not an error; only infrastructure failures
// surface as errors. The returned event, if any, feeds the trigger monitor.
func (r *Runner) runTask(ctx context.Context, t *graph.Task, total int) (*trigger.Event, error) {
	pos := r.completedCount() + 1
	ux.TaskHeader(pos, total, t.ID, t.Title, t.Layer.String())
	r.Timing.AddStart(t.ID)

	t.Status = graph.StatusInProgress
	r.Events.Status(t.ID, string(t.Status))
	if err := r.checkpoint(); err != nil {
		return nil, err
	}

	if t.Type == graph.TypeIntegration {
		return r.runIntegration(ctx, t)
	}

	depOutputs := r.dependencyOutputs(t)

	draft, feedback, ok, err := r.reviewLoop(ctx, t, depOutputs)
	if err != nil || !ok {
		return nil, err
	}

	draft, ok, conds, err := r.verifyGates(ctx, t, draft, depOutputs, feedback)
	if err != nil || !ok {
		return nil, err
	}

	if err := r.complete(t, draft); err != nil {
		return nil, err
	}
	return &trigger.Event{CompletedID: t.ID, Conditions: conds}, nil
}

// reviewLoop drives dispatch and human review with a bounded revision
// counter. Returns the approved draft and the accumulated feedback, or
// ok=false once the task reached a terminal failure.
func (r *Runner) reviewLoop(ctx context.Context, t *graph.Task, depOutputs map[string]string) (string, []string, bool, error) {
	var feedback []string
	revisions := 0

	for {
		r.Events.Dispatch(t.ID, revisions+1)
		draft, err := r.Specialist.Execute(ctx, t, depOutputs, feedback)
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, false, ctx.Err()
			}
			// A failed dispatch is a revision request with no draft.
			feedback = append(feedback, fmt.Sprintf("previous attempt produced no draft: %v", err))
			revisions++
			r.Events.Verdict(t.ID, "dispatch-error", err.Error())
			if revisions > r.Config.MaxRevisions {
				r.failTask(t, "revise", fmt.Sprintf("no draft after %d attempts: %v", revisions, err))
				return "", nil, false, nil
			}
			continue
		}

		rev, err := r.Reviewer.Review(ctx, t, draft)
		if err != nil {
			return "", nil, false, err
		}
		r.Events.Verdict(t.ID, string(rev.Verdict), rev.Feedback+rev.Reason)

		switch rev.Verdict {
		case dispatch.VerdictApprove:
			return draft, feedback, true, nil
		case dispatch.VerdictReject:
			r.failTask(t, "reject", rev.Reason)
			return "", nil, false, nil
		case dispatch.VerdictRevise:
			revisions++
			feedback = append(feedback, rev.Feedback)
			if err := state.WriteFeedback(r.Env.ArtifactsDir, t.ID, revisions, rev.Feedback); err != nil {
				return "", nil, false, err
			}
			if revisions > r.Config.MaxRevisions {
				r.failTask(t, "revise", fmt.Sprintf("revision limit (%d) exhausted", r.Config.MaxRevisions))
				return "", nil, false, nil
			}
			ux.ReviseNotice(t.ID, revisions, r.Config.MaxRevisions)
		default:
			return "", nil, false, fmt.Errorf("reviewer returned unknown verdict %q", rev.Verdict)
		}
	}
}

// verifyGates runs the configured gates in order against the draft. A gate
// failure is adjudicated by the reviewer: retry re-dispatches the
// specialist with the gate's feedback and re-verifies from the first gate
// (the draft changed), override accepts the failure on record, pause halts
// the pipeline. Retry exhaustion escalates to pause. Named conditions
// reported by gate output are collected for the trigger monitor.
func (r *Runner) verifyGates(ctx context.Context, t *graph.Task, draft string, depOutputs map[string]string, feedback []string) (string, bool, map[string]bool, error) {
	retries := make(map[string]int)
	overridden := make(map[string]bool)
	conds := make(map[string]bool)

	i := 0
	for i < len(r.Config.Gates) {
		g := r.Config.Gates[i]
		if overridden[g.Name] {
			i++
			continue
		}

		res, err := r.Gates.Run(ctx, t, draft, g)
		if err != nil {
			return "", false, nil, err
		}
		r.Events.Gate(t.ID, g.Name, res.Passed, retries[g.Name]+1, res.Details)
		for k, v := range res.Conditions {
			conds[k] = v
		}
		if res.Passed {
			i++
			continue
		}

		adj, err := r.Reviewer.ReviewGateFailure(ctx, t, res)
		if err != nil {
			return "", false, nil, err
		}
		r.Events.Adjudication(t.ID, g.Name, string(adj.Outcome), adj.Reason)
		r.State.RecordDecision("gate", t.ID,
			fmt.Sprintf("gate %q failed (attempt %d)", g.Name, retries[g.Name]+1),
			string(adj.Outcome), adj.Reason)

		switch adj.Outcome {
		case dispatch.GateOverride:
			ux.GateOverride(t.ID, g.Name)
			overridden[g.Name] = true
			i++
		case dispatch.GatePause:
			r.State.Block(adj.Reason)
			return draft, false, nil, nil
		case dispatch.GateRetry:
			retries[g.Name]++
			if retries[g.Name] > r.Config.MaxGateRetries {
				r.State.Block(fmt.Sprintf("gate %q on task %s still failing after %d retries", g.Name, t.ID, r.Config.MaxGateRetries))
				return draft, false, nil, nil
			}
			ux.GateRetry(t.ID, g.Name, retries[g.Name], r.Config.MaxGateRetries)
			gateFeedback := append(append([]string(nil), feedback...),
				fmt.Sprintf("gate %q failed: %s", g.Name, res.Details))
			newDraft, derr := r.Specialist.Execute(ctx, t, depOutputs, gateFeedback)
			if derr != nil {
				if ctx.Err() != nil {
					return "", false, nil, ctx.Err()
				}
				// No new draft; the same gate runs again against the old
				// one, consuming the same retry budget.
				continue
			}
			draft = newDraft
			i = 0
		default:
			return "", false, nil, fmt.Errorf("reviewer returned unknown gate outcome %q", adj.Outcome)
		}
	}
	return draft, true, conds, nil
}

// runIntegration executes the integration validation for an integration
// task. A failing result is recorded and fails the integration task itself
// but never its upstream tasks; either way the outcome feeds the trigger
// monitor, so a deferred task can promote on e.g. an accuracy condition.
func (r *Runner) runIntegration(ctx context.Context, t *graph.Task) (*trigger.Event, error) {
	res, err := r.Integration.Run(ctx, t)
	if err != nil {
		return nil, err
	}
	r.Events.Integration(t.ID, res.Passed, res.Details)

	conds := make(map[string]bool, len(res.Conditions)+1)
	for k, v := range res.Conditions {
		conds[k] = v
	}
	conds["integration_failed"] = !res.Passed

	if !res.Passed {
		r.failTask(t, "integration", res.Details)
		return &trigger.Event{CompletedID: t.ID, Conditions: conds}, nil
	}
	if err := r.complete(t, res.Details); err != nil {
		return nil, err
	}
	return &trigger.Event{CompletedID: t.ID, Conditions: conds}, nil
}

// evaluateTriggers re-checks every deferred task's promotion condition
// against the event, confirming each match through the decision protocol.
// Promotions are then offered a second round so "promoted" predicates can
// cascade once.
func (r *Runner) evaluateTriggers(ctx context.Context, ev trigger.Event) error {
	promoted, err := r.promoteFired(ctx, ev)
	if err != nil {
		return err
	}
	if len(promoted) == 0 {
		return nil
	}
	ev.PromotedIDs = promoted
	_, err = r.promoteFired(ctx, ev)
	return err
}

func (r *Runner) promoteFired(ctx context.Context, ev trigger.Event) ([]string, error) {
	var promoted []string
	for _, id := range trigger.Fired(r.State.Tasks, ev) {
		t, _ := r.State.Tasks.Get(id)
		matched := t.DeferTrigger
		ok, err := r.Engine.ConfirmPromotion(ctx, id, matched)
		if err != nil {
			return nil, err
		}
		if ok {
			ux.Promoted(id, matched)
			promoted = append(promoted, id)
		}
	}
	return promoted, nil
}

// complete marks a task done, persists its draft, and extracts any file
// blocks the draft carries into the artifacts tree.
func (r *Runner) complete(t *graph.Task, draft string) error {
	t.Output = draft
	t.Status = graph.StatusDone
	r.Events.Status(t.ID, string(t.Status))

	if draft != "" {
		if err := os.WriteFile(state.DraftPath(r.Env.ArtifactsDir, t.ID), []byte(draft), 0644); err != nil {
			return fmt.Errorf("writing draft for %s: %w", t.ID, err)
		}
		if err := r.extractBlocks(t.ID, draft); err != nil {
			fmt.Fprintf(os.Stderr, "warning: extracting file blocks from %s: %v\n", t.ID, err)
		}
	}

	r.Timing.AddEnd(t.ID)
	ux.TaskComplete(t.ID, r.Timing.Duration(t.ID))
	return nil
}

// failTask records a terminal failure. Downstream tasks stay blocked on the
// failed dependency until a human drops, replaces, or overrides it.
func (r *Runner) failTask(t *graph.Task, stage, reason string) {
	t.Status = graph.StatusFailed
	r.Events.Status(t.ID, string(t.Status))
	r.State.RecordDecision("execute", t.ID, fmt.Sprintf("stage %s", stage), "failed", reason)
	r.Timing.AddEnd(t.ID)
	ux.TaskFail(t.ID, reason)
}

// dependencyOutputs snapshots the outputs of a task's done dependencies.
// Collaborators only ever see this immutable copy, never the graph.
func (r *Runner) dependencyOutputs(t *graph.Task) map[string]string {
	out := make(map[string]string, len(t.Dependencies))
	for _, dep := range t.Dependencies {
		if d, ok := r.State.Tasks.Get(dep); ok && d.Status == graph.StatusDone {
			out[dep] = d.Output
		}
	}
	return out
}

// extractBlocks materializes any file= fenced blocks the draft carries
// into the working directory.
func (r *Runner) extractBlocks(taskID, draft string) error {
	blocks := fileblocks.Parse(draft)
	if len(blocks) == 0 {
		return nil
	}
	if err := fileblocks.WriteAll(r.Env.WorkDir, blocks); err != nil {
		return err
	}
	r.Events.Status(taskID, fmt.Sprintf("extracted %d file block(s)", len(blocks)))
	return nil
}

func (r *Runner) completedCount() int {
	n := 0
	for _, t := range r.State.Tasks.Tasks() {
		if t.Status.Terminal() {
			n++
		}
	}
	return n
}

func (r *Runner) finish() error {
	done, failed, deferred := 0, 0, 0
	for _, t := range r.State.Tasks.Tasks() {
		switch t.Status {
		case graph.StatusDone:
			done++
		case graph.StatusFailed:
			failed++
		case graph.StatusDeferred:
			deferred++
		}
	}
	if r.State.Phase.Before(state.PhaseIntegrate) {
		r.State.Phase = state.PhaseIntegrate
	}
	if err := r.checkpoint(); err != nil {
		return err
	}
	if err := r.Timing.Flush(r.Env.ArtifactsDir); err != nil {
		return fmt.Errorf("flushing timing: %w", err)
	}
	ux.Summary(done, failed, deferred)
	if failed > 0 {
		return fmt.Errorf("%d task(s) failed; intervene and re-run", failed)
	}
	return nil
}

func (r *Runner) checkpoint() error {
	if err := r.State.Save(r.Env.ArtifactsDir); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	r.Events.Checkpoint(string(r.State.Phase), r.State.Tasks.Len())
	return nil
}

// failAndHint checkpoints what it can, prints a resume hint, and returns
// the original error.
func (r *Runner) failAndHint(err error) error {
	if saveErr := r.State.Save(r.Env.ArtifactsDir); saveErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save checkpoint: %v\n", saveErr)
	}
	if r.Timing != nil {
		if flushErr := r.Timing.Flush(r.Env.ArtifactsDir); flushErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to flush timing: %v\n", flushErr)
		}
	}
	ux.ResumeHint(r.State.Request)
	return err
}

// DryRunPrint prints the task plan in scheduling order without executing.
func (r *Runner) DryRunPrint() {
	tasks := r.State.Tasks.Tasks()
	fmt.Printf("\n%sDry run — %d tasks:%s\n\n", ux.Bold, len(tasks), ux.Reset)
	for i, t := range tasks {
		fmt.Printf("  %s%d.%s %s%s%s [%s/%s] %s", ux.Cyan, i+1, ux.Reset, ux.Bold, t.ID, ux.Reset, t.Layer, t.Type, t.Title)
		if t.Status != graph.StatusPending {
			fmt.Printf(" (%s)", t.Status)
		}
		fmt.Println()
		if len(t.Dependencies) > 0 {
			fmt.Printf("     needs: %v\n", t.Dependencies)
		}
		if len(t.SuspendedDependencies) > 0 {
			fmt.Printf("     suspended: %v\n", t.SuspendedDependencies)
		}
		if t.DeferTrigger != "" {
			fmt.Printf("     trigger: %s\n", t.DeferTrigger)
		}
	}
	fmt.Println()
}
