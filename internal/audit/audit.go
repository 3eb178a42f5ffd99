// Package audit inventories the target codebase against a planning request
// and classifies each required capability as available, extensible, missing,
// or blocked. The classification is produced by an agent working from
// gathered project context; the result is a findings file the decomposer
// consumes.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jorge-barreto/loom/internal/contextgather"
	"github.com/jorge-barreto/loom/internal/decompose"
	"github.com/jorge-barreto/loom/internal/dispatch"
	"github.com/jorge-barreto/loom/internal/fileblocks"
)

// FindingsRel is where the generated findings land, relative to project root.
const FindingsRel = ".loom/findings.yaml"

const maxAttempts = 2

// Runner dispatches the audit agent and materializes its findings file.
type Runner struct {
	Env     *dispatch.Environment
	Model   string
	Timeout int // minutes
}

// Run generates and loads findings for the request. The agent's output must
// contain a fenced file block for the findings file; one retry with error
// feedback is granted before giving up.
func (r *Runner) Run(ctx context.Context, request string) ([]decompose.Finding, error) {
	pc, err := contextgather.Gather(r.Env.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("audit: gathering project context: %w", err)
	}

	prompt := buildAuditPrompt(request, pc.Render())
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr != nil {
			prompt += fmt.Sprintf(retryFeedback, lastErr)
		}

		output, err := r.runAgent(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("audit: %w", err)
		}

		findings, err := r.materialize(output)
		if err == nil {
			return findings, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("audit: agent failed to produce usable findings: %w", lastErr)
}

// materialize extracts the findings block from agent output, writes it, and
// validates it by loading.
func (r *Runner) materialize(output string) ([]decompose.Finding, error) {
	blocks := fileblocks.Parse(output)
	var findingsBlock *fileblocks.FileBlock
	for i := range blocks {
		if filepath.ToSlash(blocks[i].Path) == FindingsRel {
			findingsBlock = &blocks[i]
			break
		}
	}
	if findingsBlock == nil {
		return nil, fmt.Errorf("output contained no %s file block", FindingsRel)
	}
	if err := fileblocks.WriteAll(r.Env.ProjectRoot, []fileblocks.FileBlock{*findingsBlock}); err != nil {
		return nil, err
	}
	return decompose.LoadFindings(filepath.Join(r.Env.ProjectRoot, FindingsRel))
}

func (r *Runner) runAgent(ctx context.Context, prompt string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.Timeout)*time.Minute)
		defer cancel()
	}

	model := r.Model
	if model == "" {
		model = "sonnet"
	}
	cmd := exec.CommandContext(ctx, "claude", "-p", prompt, "--model", model)
	cmd.Dir = r.Env.ProjectRoot
	cmd.Env = r.Env.BuildEnv(nil, "")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	var captured bytes.Buffer
	cmd.Stdout = &captured
	cmd.Stderr = io.MultiWriter(os.Stderr, &captured)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running audit agent: %w", err)
	}
	return captured.String(), nil
}
