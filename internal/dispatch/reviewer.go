package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/ux"
)

// ConsoleReviewer puts a human in the review seat: drafts are shown on the
// terminal and verdicts read from stdin. Reads are interruptible by context
// cancellation.
type ConsoleReviewer struct {
	In  io.Reader
	Out io.Writer
}

func (r *ConsoleReviewer) Review(ctx context.Context, task *graph.Task, draft string) (Review, error) {
	fmt.Fprintf(r.Out, "\n%s── Draft for %s: %s ──%s\n\n", ux.Cyan, task.ID, task.Title, ux.Reset)
	fmt.Fprintln(r.Out, preview(draft, 40))
	fmt.Fprintf(r.Out, "\n  [y to approve / feedback to revise / reject: <reason>]: ")

	input, err := r.readLine(ctx)
	if err != nil {
		return Review{}, err
	}

	switch {
	case strings.EqualFold(input, "y"), strings.EqualFold(input, "yes"):
		return Review{Verdict: VerdictApprove}, nil
	case strings.HasPrefix(strings.ToLower(input), "reject:"):
		return Review{Verdict: VerdictReject, Reason: strings.TrimSpace(input[len("reject:"):])}, nil
	case input == "":
		return Review{Verdict: VerdictRevise, Feedback: "reviewer requested changes"}, nil
	default:
		return Review{Verdict: VerdictRevise, Feedback: input}, nil
	}
}

func (r *ConsoleReviewer) ReviewGateFailure(ctx context.Context, task *graph.Task, res GateResult) (Adjudication, error) {
	fmt.Fprintf(r.Out, "\n  %sGate %q failed for %s%s\n", ux.Red, res.Gate, task.ID, ux.Reset)
	if res.Details != "" {
		fmt.Fprintf(r.Out, "  %s\n", res.Details)
	}
	fmt.Fprintf(r.Out, "  [r to retry / o to override / pause: <reason>]: ")

	input, err := r.readLine(ctx)
	if err != nil {
		return Adjudication{}, err
	}

	switch {
	case strings.EqualFold(input, "r"), strings.EqualFold(input, "retry"):
		return Adjudication{Outcome: GateRetry}, nil
	case strings.EqualFold(input, "o"), strings.EqualFold(input, "override"):
		return Adjudication{Outcome: GateOverride, Reason: "human override"}, nil
	case strings.HasPrefix(strings.ToLower(input), "pause"):
		_, reason, _ := strings.Cut(input, ":")
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = fmt.Sprintf("gate %q on task %s needs intervention", res.Gate, task.ID)
		}
		return Adjudication{Outcome: GatePause, Reason: reason}, nil
	default:
		// Unrecognized input is the cautious path: retry with what was typed
		// as feedback would be guesswork, so pause instead.
		return Adjudication{Outcome: GatePause, Reason: fmt.Sprintf("unrecognized adjudication %q", input)}, nil
	}
}

// readLine reads one trimmed line, honouring context cancellation.
func (r *ConsoleReviewer) readLine(ctx context.Context) (string, error) {
	type readResult struct {
		line string
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		line, err := bufio.NewReader(r.In).ReadString('\n')
		ch <- readResult{line: strings.TrimSpace(line), err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return "", res.err
		}
		return res.line, nil
	}
}

// AutoReviewer approves every draft and retries every gate failure, for
// --auto runs. Gate retries stay bounded by the runner's counters, so the
// worst case is an escalated pause, never a loop.
type AutoReviewer struct{}

func (AutoReviewer) Review(ctx context.Context, task *graph.Task, draft string) (Review, error) {
	if err := ctx.Err(); err != nil {
		return Review{}, err
	}
	return Review{Verdict: VerdictApprove}, nil
}

func (AutoReviewer) ReviewGateFailure(ctx context.Context, task *graph.Task, res GateResult) (Adjudication, error) {
	if err := ctx.Err(); err != nil {
		return Adjudication{}, err
	}
	return Adjudication{Outcome: GateRetry}, nil
}

func preview(s string, maxLines int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-maxLines)
}
