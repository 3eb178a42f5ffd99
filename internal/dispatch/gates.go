package dispatch

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/state"
)

// ScriptGateRunner executes gates as shell commands via bash. The draft
// under verification is written to the drafts directory first so the
// command can inspect it; a non-zero exit is a failure.
type ScriptGateRunner struct {
	Env *Environment
}

func (r *ScriptGateRunner) Run(ctx context.Context, task *graph.Task, draft string, gate config.Gate) (GateResult, error) {
	if err := os.WriteFile(state.DraftPath(r.Env.ArtifactsDir, task.ID), []byte(draft), 0644); err != nil {
		return GateResult{}, err
	}
	output, code, err := runShell(ctx, gate.Run, gate.Timeout, r.Env, task, gate.Name)
	if err != nil {
		return GateResult{}, err
	}
	return GateResult{
		Gate:       gate.Name,
		Passed:     code == 0,
		Details:    tail(output, 2000),
		Conditions: ParseConditions(output),
	}, nil
}

// ScriptIntegrationRunner executes the configured integration command for
// an integration-type task.
type ScriptIntegrationRunner struct {
	Env *Environment
	Cfg config.Integration
}

func (r *ScriptIntegrationRunner) Run(ctx context.Context, task *graph.Task) (GateResult, error) {
	if r.Cfg.Run == "" {
		// No integration command configured: validation is vacuous.
		return GateResult{Gate: "integration", Passed: true}, nil
	}
	output, code, err := runShell(ctx, r.Cfg.Run, r.Cfg.Timeout, r.Env, task, "integration")
	if err != nil {
		return GateResult{}, err
	}
	return GateResult{
		Gate:       "integration",
		Passed:     code == 0,
		Details:    tail(output, 2000),
		Conditions: ParseConditions(output),
	}, nil
}

func runShell(ctx context.Context, command string, timeoutMin int, env *Environment, task *graph.Task, gate string) (string, int, error) {
	if timeoutMin > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMin)*time.Minute)
		defer cancel()
	}

	expanded := ExpandVars(command, env.Vars(task))
	cmd := exec.CommandContext(ctx, "bash", "-c", expanded)
	cmd.Dir = env.WorkDir
	cmd.Env = env.BuildEnv(task, gate)

	logFile, err := os.OpenFile(state.LogPath(env.ArtifactsDir, task.ID),
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return "", 0, err
	}
	defer logFile.Close()

	var captured bytes.Buffer
	cmd.Stdout = io.MultiWriter(logFile, &captured)
	cmd.Stderr = io.MultiWriter(logFile, &captured)

	code, err := exitCode(cmd.Run())
	if err != nil {
		return "", 0, err
	}
	return captured.String(), code, nil
}

// ParseConditions extracts named boolean conditions from command output.
// Lines of the form "condition: <name>=<true|false>" become trigger-monitor
// facts, letting a gate or integration script report domain outcomes like
// "condition: accuracy_below_threshold=true".
func ParseConditions(output string) map[string]bool {
	var conds map[string]bool
	for _, line := range strings.Split(output, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "condition:")
		if !ok {
			continue
		}
		name, val, ok := strings.Cut(strings.TrimSpace(rest), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		if conds == nil {
			conds = make(map[string]bool)
		}
		conds[name] = strings.TrimSpace(val) == "true"
	}
	return conds
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
