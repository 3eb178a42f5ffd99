// Package dispatch defines the external collaborator contracts consumed by
// the runner — Specialist, Reviewer, GateRunner, IntegrationRunner — and
// their production implementations. The core never branches on the concrete
// implementation: tests substitute deterministic stubs, production wires
// the agent- and script-backed versions in this package.
package dispatch

import (
	"context"

	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/graph"
)

// Verdict is a review outcome.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictRevise  Verdict = "revise"
	VerdictReject  Verdict = "reject"
)

// Review is the reviewer's response to a draft. Feedback accompanies
// revise; Reason accompanies reject.
type Review struct {
	Verdict  Verdict
	Feedback string
	Reason   string
}

// GateResult is the outcome of one gate (or integration) run.
type GateResult struct {
	Gate    string
	Passed  bool
	Details string
	// Conditions carries named boolean facts reported by the command's
	// output (condition: lines), fed to the trigger monitor.
	Conditions map[string]bool
}

// GateOutcome is the reviewer's adjudication of a gate failure.
type GateOutcome string

const (
	GateRetry    GateOutcome = "retry"
	GateOverride GateOutcome = "override"
	GatePause    GateOutcome = "pause"
)

// Adjudication carries the gate-failure decision; Reason accompanies pause
// and override.
type Adjudication struct {
	Outcome GateOutcome
	Reason  string
}

// Specialist produces a task's draft implementation. depOutputs maps each
// done dependency id to its approved output; feedback accumulates revision
// requests from earlier attempts. An error is treated by the runner as a
// revision request with no draft, not a pipeline failure.
type Specialist interface {
	Execute(ctx context.Context, task *graph.Task, depOutputs map[string]string, feedback []string) (string, error)
}

// Reviewer judges drafts and adjudicates gate failures.
type Reviewer interface {
	Review(ctx context.Context, task *graph.Task, draft string) (Review, error)
	ReviewGateFailure(ctx context.Context, task *graph.Task, res GateResult) (Adjudication, error)
}

// GateRunner executes one configured quality gate against a draft.
type GateRunner interface {
	Run(ctx context.Context, task *graph.Task, draft string, gate config.Gate) (GateResult, error)
}

// IntegrationRunner executes the integration validation for an
// integration-type task once all of its feeders are done.
type IntegrationRunner interface {
	Run(ctx context.Context, task *graph.Task) (GateResult, error)
}
