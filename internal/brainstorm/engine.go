package brainstorm

import (
	"context"
	"fmt"

	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/decision"
	"github.com/jorge-barreto/loom/internal/eventlog"
	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/state"
)

var riskMenu = []decision.Option{
	decision.OptionDefer,
	decision.OptionKeep,
	decision.OptionSplit,
	decision.OptionDrop,
}

var promoteMenu = []decision.Option{
	decision.OptionPromote,
	decision.OptionKeepDeferred,
}

// Engine runs the decision protocol: flag risky tasks, ask the decider,
// apply the chosen mutation, and record everything in the mutation log.
type Engine struct {
	State   *state.ProjectState
	Risk    config.Risk
	Decider decision.Decider
	Events  *eventlog.Logger

	// kept tracks tasks the decider chose to keep during the current
	// review. Intentionally not persisted: a later review re-asks, since
	// the graph will have changed since the human last looked.
	kept map[string]bool
}

// Review evaluates every pending task against the risk checks and resolves
// each flag through the decider. Called after decomposition and again after
// task completions. When the project is still in the brainstorm phase, a
// completed review advances it.
func (e *Engine) Review(ctx context.Context) error {
	e.kept = nil

	for {
		// Re-flag after every applied mutation: a defer or drop changes
		// dependent counts and may clear or create flags.
		flagged := e.nextFlag()
		if flagged == nil {
			break
		}
		req := decision.Request{
			TaskID:         flagged.Task.ID,
			Question:       fmt.Sprintf("How should %q proceed?", flagged.Task.Title),
			Reason:         flagged.Reason(),
			DependentCount: flagged.Dependents,
			Options:        riskMenu,
		}
		resp, err := e.Decider.Decide(ctx, req)
		if err != nil {
			return fmt.Errorf("brainstorm: deciding on %q: %w", req.TaskID, err)
		}
		if err := e.apply(flagged, resp); err != nil {
			return err
		}
	}

	if e.State.Phase == state.PhaseBrainstorm {
		e.State.Phase = e.State.Phase.Next()
	}
	return nil
}

// nextFlag returns the first still-unresolved flagged task. Tasks the
// decider chose to keep are skipped for the rest of this review: keeping is
// a recorded decision, not a snooze.
func (e *Engine) nextFlag() *Flagged {
	for _, f := range Flag(e.State.Tasks, e.Risk) {
		if !e.kept[f.Task.ID] {
			f := f
			return &f
		}
	}
	return nil
}

func (e *Engine) apply(f *Flagged, resp decision.Response) error {
	id := f.Task.ID
	var (
		next   *graph.Graph
		action string
		err    error
	)

	switch resp.Choice {
	case decision.OptionKeep:
		if e.kept == nil {
			e.kept = make(map[string]bool)
		}
		e.kept[id] = true
		action = "kept despite risk"
	case decision.OptionDefer:
		next, err = Defer(e.State.Tasks, id, resp.Trigger)
		action = "deferred with closure"
		if resp.Trigger != "" {
			action = fmt.Sprintf("deferred with closure (trigger %s)", resp.Trigger)
		}
	case decision.OptionSplit:
		spec := resp.Split
		if spec == nil {
			spec = DefaultSplit(f.Task)
		}
		next, err = Split(e.State.Tasks, id, spec)
		action = fmt.Sprintf("split into %s and %s", spec.NowID, spec.LaterID)
	case decision.OptionDrop:
		next, err = Drop(e.State.Tasks, id)
		action = "dropped"
	default:
		return fmt.Errorf("brainstorm: task %q: unsupported choice %q", id, resp.Choice)
	}
	if err != nil {
		return err
	}
	if next != nil {
		e.State.Tasks = next
	}

	e.State.RecordDecision("brainstorm", id, f.Reason(), string(resp.Choice), action)
	e.Events.Mutation(id, string(resp.Choice), f.Reason())
	return nil
}

// ConfirmPromotion runs the trigger-confirmation protocol for a deferred
// task whose promotion condition fired. Returns true if the task was
// restored into the ready pool.
func (e *Engine) ConfirmPromotion(ctx context.Context, taskID, matched string) (bool, error) {
	t, ok := e.State.Tasks.Get(taskID)
	if !ok {
		return false, fmt.Errorf("brainstorm: promote %q: %w", taskID, ErrUnknownTask)
	}
	req := decision.Request{
		TaskID:   taskID,
		Question: fmt.Sprintf("Deferred task %q matched its trigger (%s). Reactivate it?", t.Title, matched),
		Reason:   fmt.Sprintf("trigger %s fired", matched),
		Options:  promoteMenu,
	}
	resp, err := e.Decider.Decide(ctx, req)
	if err != nil {
		return false, fmt.Errorf("brainstorm: confirming promotion of %q: %w", taskID, err)
	}

	if resp.Choice != decision.OptionPromote {
		e.State.RecordDecision("trigger", taskID, req.Question, string(resp.Choice), "left deferred")
		return false, nil
	}

	next, err := Restore(e.State.Tasks, taskID)
	if err != nil {
		return false, err
	}
	e.State.Tasks = next
	e.State.RecordDecision("trigger", taskID, req.Question, string(resp.Choice), "restored to pending")
	e.Events.Promotion(taskID, matched)
	return true, nil
}

// DefaultSplit builds the fallback split plan for a task: an immediately
// executable first slice, and a deferred remainder promoted once the slice
// completes. All dependents follow the remainder.
func DefaultSplit(t *graph.Task) *decision.SplitSpec {
	nowID := t.ID + "-now"
	laterID := t.ID + "-later"
	return &decision.SplitSpec{
		NowID:            nowID,
		NowTitle:         t.Title + " (first slice)",
		NowDescription:   t.Description,
		LaterID:          laterID,
		LaterTitle:       t.Title + " (remainder)",
		LaterDescription: t.Description,
		LaterTrigger:     nowID + ":completed",
	}
}
