// Package doctor checks a project's environment and, when a run is paused
// or has failed tasks, gathers the failure context and asks claude for a
// diagnosis.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/graph"
	"github.com/jorge-barreto/loom/internal/state"
	"github.com/jorge-barreto/loom/internal/ux"
)

const maxLogLines = 200

const diagPrompt = `You are diagnosing a paused or failed task pipeline. Analyze the context below and provide a concise diagnosis.

## Pipeline State
%s

## Failed Task Context
%s%s%s
Instructions:
1. Identify what went wrong from the logs and decision history.
2. Classify this as a PLANNING problem (bad decomposition, wrong dependencies, over-aggressive deferral) or an EXECUTION problem (the work itself failed review or gates).
3. Suggest specific fixes.
4. Recommend the next command to run:
   - loom run "<request>"            (resume from the checkpoint)
   - loom run "<request>" --auto     (resume without human review)
   - Fix the underlying issue first, then resume

Be direct and concise. Focus on actionable advice.`

// Run performs environment checks and, when there is failure context,
// dispatches claude for a diagnosis.
func Run(ctx context.Context, projectRoot, artifactsDir string, cfg *config.Config, st *state.ProjectState) error {
	ok := runChecks(projectRoot, st)

	failed := failedTasks(st)
	if !st.Blocked() && len(failed) == 0 {
		if ok {
			fmt.Printf("\n%s✓ No failed or paused run to diagnose.%s\n", ux.Green, ux.Reset)
			return nil
		}
		return fmt.Errorf("environment checks failed")
	}

	pipeline := gatherConfig(cfg) + "\n" + gatherPipeline(st)
	taskCtx := gatherFailedTasks(artifactsDir, failed)
	feedback := gatherFeedback(artifactsDir)
	decisions := gatherDecisions(st)

	fmt.Printf("\n%s%s══ Doctor: diagnosing run (%d failed, blocked=%v) ══%s\n\n",
		ux.Bold, ux.Cyan, len(failed), st.Blocked(), ux.Reset)

	prompt := buildPrompt(pipeline, taskCtx, feedback, decisions)
	if err := runClaude(ctx, prompt); err != nil {
		return fmt.Errorf("failed to run claude: %w", err)
	}

	fmt.Println()
	ux.ResumeHint(st.Request)
	return nil
}

// runChecks verifies the local environment and checkpoint integrity.
// Returns false when any check fails; every check prints its own line.
func runChecks(projectRoot string, st *state.ProjectState) bool {
	ok := true
	check := func(name string, err error) {
		if err != nil {
			ok = false
			fmt.Printf("  %s✗%s %-24s %v\n", ux.Red, ux.Reset, name, err)
			return
		}
		fmt.Printf("  %s✓%s %s\n", ux.Green, ux.Reset, name)
	}

	fmt.Printf("\n%sEnvironment:%s\n", ux.Bold, ux.Reset)
	check("claude on PATH", lookPath("claude"))
	check("bash on PATH", lookPath("bash"))
	check("git on PATH", lookPath("git"))

	fmt.Printf("\n%sProject:%s\n", ux.Bold, ux.Reset)
	check("config loads", nil) // caller already loaded it
	if st.Tasks != nil && st.Tasks.Len() > 0 {
		check("task graph valid", st.Tasks.Validate())
	}
	return ok
}

func lookPath(bin string) error {
	_, err := exec.LookPath(bin)
	return err
}

func failedTasks(st *state.ProjectState) []*graph.Task {
	var out []*graph.Task
	if st.Tasks == nil {
		return nil
	}
	for _, t := range st.Tasks.Tasks() {
		if t.Status == graph.StatusFailed {
			out = append(out, t)
		}
	}
	return out
}

func buildPrompt(pipeline, taskCtx, feedback, decisions string) string {
	var feedbackSection, decisionsSection string
	if feedback != "" {
		feedbackSection = fmt.Sprintf("\n## Feedback Files\n%s\n", feedback)
	}
	if decisions != "" {
		decisionsSection = fmt.Sprintf("\n## Decision Log\n%s\n", decisions)
	}
	return fmt.Sprintf(diagPrompt, pipeline, taskCtx, feedbackSection, decisionsSection)
}

func gatherConfig(cfg *config.Config) string {
	var gates []string
	for _, g := range cfg.Gates {
		gates = append(gates, g.Name)
	}
	return fmt.Sprintf("Config: max-revisions=%d max-gate-retries=%d gates=[%s]",
		cfg.MaxRevisions, cfg.MaxGateRetries, strings.Join(gates, ", "))
}

func gatherPipeline(st *state.ProjectState) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Request: %s", st.Request))
	parts = append(parts, fmt.Sprintf("Phase: %s", st.Phase))
	if st.Blocked() {
		parts = append(parts, fmt.Sprintf("Paused: %s", st.BlockedReason))
	}
	if st.Tasks != nil {
		for _, t := range st.Tasks.Tasks() {
			line := fmt.Sprintf("  %s [%s/%s] %s: %s", t.ID, t.Layer, t.Type, t.Status, t.Title)
			if t.DeferTrigger != "" {
				line += fmt.Sprintf(" (trigger: %s)", t.DeferTrigger)
			}
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n")
}

func gatherFailedTasks(artifactsDir string, failed []*graph.Task) string {
	if len(failed) == 0 {
		return "(no failed tasks; the run is paused)"
	}
	var parts []string
	for _, t := range failed {
		parts = append(parts, fmt.Sprintf("### %s: %s\n\nDependencies: %s\n\nLog (last %d lines):\n%s",
			t.ID, t.Title, strings.Join(t.Dependencies, ", "), maxLogLines, gatherLog(artifactsDir, t.ID)))
	}
	return strings.Join(parts, "\n\n")
}

func gatherLog(artifactsDir, taskID string) string {
	data, err := os.ReadFile(state.LogPath(artifactsDir, taskID))
	if err != nil {
		return "(no log file found)"
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
		return fmt.Sprintf("... (truncated to last %d lines)\n%s", maxLogLines, strings.Join(lines, "\n"))
	}
	return string(data)
}

func gatherFeedback(artifactsDir string) string {
	dir := filepath.Join(artifactsDir, "feedback")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var parts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- %s ---\n%s", e.Name(), string(data)))
	}
	return strings.Join(parts, "\n")
}

func gatherDecisions(st *state.ProjectState) string {
	if len(st.Decisions) == 0 {
		return ""
	}
	var parts []string
	for _, d := range st.Decisions {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s -> %s (%s)", d.Hook, d.TaskID, d.Question, d.Choice, d.Action))
	}
	return strings.Join(parts, "\n")
}

func filteredEnv() []string {
	var env []string
	for _, e := range os.Environ() {
		key := strings.SplitN(e, "=", 2)[0]
		if strings.HasPrefix(key, "CLAUDECODE") {
			continue
		}
		env = append(env, e)
	}
	return env
}

func runClaude(ctx context.Context, prompt string) error {
	cmd := exec.CommandContext(ctx, "claude", "-p", prompt, "--model", "sonnet")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = filteredEnv()
	return cmd.Run()
}
