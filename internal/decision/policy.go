package decision

import (
	"context"
	"fmt"
)

// Policy resolves every request without human input, for --auto runs.
// Risk menus resolve to the configured default; trigger confirmations
// always promote.
type Policy struct {
	// Default is applied to {defer, keep, split, drop} menus. Split is not
	// a valid default: it needs per-task parameters no policy can invent.
	Default Option
	// DeferTrigger names the promotion condition attached when the policy
	// defers; empty means the task stays deferred until dropped or manually
	// restored.
	DeferTrigger string
}

func (p *Policy) Decide(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if req.HasOption(OptionPromote) {
		return Response{TaskID: req.TaskID, Choice: OptionPromote}, nil
	}
	if !req.HasOption(p.Default) {
		return Response{}, fmt.Errorf("decision: policy default %q not offered for task %q", p.Default, req.TaskID)
	}
	resp := Response{TaskID: req.TaskID, Choice: p.Default}
	if p.Default == OptionDefer {
		resp.Trigger = p.DeferTrigger
	}
	return resp, nil
}
