package decision

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jorge-barreto/loom/internal/ux"
)

// Console prompts a human on the terminal for each decision. Input format
// is the option name, optionally followed by a parameter:
//
//	defer t03-cache:completed      defer with a promotion trigger
//	defer                          defer with no trigger
//	keep / drop / promote / keep_deferred
//
// Split is accepted as a bare "split"; the caller substitutes a default
// split plan for the task.
type Console struct {
	In  io.Reader
	Out io.Writer
}

func (c *Console) Decide(ctx context.Context, req Request) (Response, error) {
	menu := make([]string, len(req.Options))
	for i, o := range req.Options {
		menu[i] = string(o)
	}

	fmt.Fprintf(c.Out, "\n  %sTask %s%s — %s\n", ux.Bold, req.TaskID, ux.Reset, req.Reason)
	if req.DependentCount > 0 {
		fmt.Fprintf(c.Out, "  %d task(s) depend on it, directly or transitively\n", req.DependentCount)
	}
	fmt.Fprintf(c.Out, "  %s\n", req.Question)

	reader := bufio.NewReader(c.In)
	for {
		fmt.Fprintf(c.Out, "  [%s]: ", strings.Join(menu, " / "))

		// Read on a goroutine so a cancelled context can interrupt the wait.
		type readResult struct {
			line string
			err  error
		}
		ch := make(chan readResult, 1)
		go func() {
			line, err := reader.ReadString('\n')
			ch <- readResult{line: strings.TrimSpace(line), err: err}
		}()

		var input string
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r := <-ch:
			if r.err != nil {
				return Response{}, r.err
			}
			input = r.line
		}

		choice, param, _ := strings.Cut(input, " ")
		opt := Option(strings.ToLower(choice))
		if !req.HasOption(opt) {
			fmt.Fprintf(c.Out, "  %sunknown option %q%s\n", ux.Yellow, choice, ux.Reset)
			continue
		}

		resp := Response{TaskID: req.TaskID, Choice: opt}
		if opt == OptionDefer {
			resp.Trigger = strings.TrimSpace(param)
		}
		return resp, nil
	}
}
