// Package decision defines the human-in-the-loop interchange: a request
// carrying a flagged task and a fixed option menu, and a response carrying
// the chosen option plus option-specific parameters. Deciders are
// interchangeable — a console prompt in attended runs, a policy in --auto
// mode, a scripted stub in tests.
package decision

import (
	"context"
)

// Option is one entry of a decision menu.
type Option string

const (
	OptionDefer Option = "defer"
	OptionKeep  Option = "keep"
	OptionSplit Option = "split"
	OptionDrop  Option = "drop"

	// Trigger-confirmation menu.
	OptionPromote      Option = "promote"
	OptionKeepDeferred Option = "keep_deferred"
)

// Request asks for a decision about one task.
type Request struct {
	TaskID         string
	Question       string
	Reason         string
	DependentCount int
	Options        []Option
}

// SplitSpec describes how a split mutation replaces a task: one half is
// immediately executable, the other is deferred behind a trigger. Rewire
// maps each dependent task id to the replacement it should point at; ids
// absent from the map point at the deferred half, which carries the full
// semantics of the original.
type SplitSpec struct {
	NowID            string
	NowTitle         string
	NowDescription   string
	LaterID          string
	LaterTitle       string
	LaterDescription string
	LaterTrigger     string
	Rewire           map[string]string
}

// Response carries the chosen option and its parameters.
type Response struct {
	TaskID  string
	Choice  Option
	Trigger string     // for defer: promotion condition "<task_id>:<predicate>"
	Split   *SplitSpec // for split
}

// Decider supplies decisions for requests. Implementations block until a
// decision is available (or the context is cancelled).
type Decider interface {
	Decide(ctx context.Context, req Request) (Response, error)
}

// HasOption reports whether the request's menu contains opt.
func (r Request) HasOption(opt Option) bool {
	for _, o := range r.Options {
		if o == opt {
			return true
		}
	}
	return false
}
