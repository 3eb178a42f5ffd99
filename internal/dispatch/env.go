package dispatch

import (
	"fmt"
	"os"
	"strings"

	"github.com/jorge-barreto/loom/internal/graph"
)

// Environment holds the execution context shared by collaborator dispatch.
type Environment struct {
	ProjectRoot  string
	WorkDir      string
	ArtifactsDir string
	Request      string
	AutoMode     bool
	filteredEnv  []string // lazily populated base env (os.Environ minus CLAUDECODE)
}

// Vars returns the variable substitution map for prompts and commands.
func (e *Environment) Vars(task *graph.Task) map[string]string {
	m := map[string]string{
		"REQUEST":       e.Request,
		"ARTIFACTS_DIR": e.ArtifactsDir,
		"WORK_DIR":      e.WorkDir,
		"PROJECT_ROOT":  e.ProjectRoot,
	}
	if task != nil {
		m["TASK_ID"] = task.ID
		m["TASK_TITLE"] = task.Title
	}
	return m
}

// BuildEnv returns the environment variables for child processes. It
// inherits the current environment, adds LOOM_ variables for the task at
// hand, and strips CLAUDECODE so nested agent detection cannot misfire.
// The base environment is snapshotted once per Environment and reused.
func (e *Environment) BuildEnv(task *graph.Task, gate string) []string {
	if e.filteredEnv == nil {
		for _, kv := range os.Environ() {
			key := strings.SplitN(kv, "=", 2)[0]
			if strings.HasPrefix(key, "CLAUDECODE") {
				continue
			}
			e.filteredEnv = append(e.filteredEnv, kv)
		}
	}
	result := make([]string, len(e.filteredEnv), len(e.filteredEnv)+7)
	copy(result, e.filteredEnv)
	result = append(result,
		"LOOM_REQUEST="+e.Request,
		"LOOM_ARTIFACTS_DIR="+e.ArtifactsDir,
		"LOOM_WORK_DIR="+e.WorkDir,
		"LOOM_PROJECT_ROOT="+e.ProjectRoot,
	)
	if task != nil {
		result = append(result,
			"LOOM_TASK_ID="+task.ID,
			fmt.Sprintf("LOOM_TASK_LAYER=%s", task.Layer),
		)
	}
	if gate != "" {
		result = append(result, "LOOM_GATE="+gate)
	}
	return result
}

// ExpandVars substitutes $NAME variables in template using the vars map,
// falling back to process environment variables.
func ExpandVars(template string, vars map[string]string) string {
	return os.Expand(template, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return os.Getenv(key)
	})
}
