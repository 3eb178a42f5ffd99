package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/state"
)

// AgentSpecialist drafts task implementations by invoking the claude CLI in
// print mode. The rendered prompt carries the task, its acceptance
// criteria, the outputs of its done dependencies, and any accumulated
// revision feedback.
type AgentSpecialist struct {
	Env *Environment
	Cfg config.Specialist
}

func (a *AgentSpecialist) Execute(ctx context.Context, task *graph.Task, depOutputs map[string]string, feedback []string) (string, error) {
	prompt, err := a.buildPrompt(task, depOutputs, feedback)
	if err != nil {
		return "", err
	}

	if a.Cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.Cfg.Timeout)*time.Minute)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "claude", "-p", prompt, "--model", a.Cfg.Model)
	cmd.Dir = a.Env.WorkDir
	cmd.Env = a.Env.BuildEnv(task, "")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	logFile, err := os.OpenFile(state.LogPath(a.Env.ArtifactsDir, task.ID),
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return "", err
	}
	defer logFile.Close()

	var captured bytes.Buffer
	cmd.Stdout = io.MultiWriter(logFile, &captured)
	cmd.Stderr = io.MultiWriter(os.Stderr, logFile)

	code, err := exitCode(cmd.Run())
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("specialist exited with code %d", code)
	}
	return captured.String(), nil
}

// buildPrompt renders the configured template (if any) and appends the task
// brief, dependency outputs in a stable order, and revision feedback.
func (a *AgentSpecialist) buildPrompt(task *graph.Task, depOutputs map[string]string, feedback []string) (string, error) {
	var b strings.Builder

	if a.Cfg.Prompt != "" {
		data, err := os.ReadFile(filepath.Join(a.Env.ProjectRoot, a.Cfg.Prompt))
		if err != nil {
			return "", fmt.Errorf("reading specialist prompt template: %w", err)
		}
		b.WriteString(ExpandVars(string(data), a.Env.Vars(task)))
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "## Task %s: %s\n\n%s\n", task.ID, task.Title, task.Description)
	if len(task.AcceptanceCriteria) > 0 {
		b.WriteString("\n## Acceptance Criteria\n\n")
		for _, c := range task.AcceptanceCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	if len(depOutputs) > 0 {
		b.WriteString("\n## Outputs of Completed Dependencies\n")
		ids := make([]string, 0, len(depOutputs))
		for id := range depOutputs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", id, depOutputs[id])
		}
	}

	if len(feedback) > 0 {
		b.WriteString("\n## Revision Feedback (address all of it)\n\n")
		for i, f := range feedback {
			fmt.Fprintf(&b, "%d. %s\n", i+1, f)
		}
	}

	return b.String(), nil
}
