package dispatch

import (
	"strings"
	"testing"

	"github.com/jorge-barreto/loom/internal/graph"
)

func testEnv() *Environment {
	return &Environment{
		ProjectRoot:  "/proj",
		WorkDir:      "/proj/work",
		ArtifactsDir: "/proj/.loom/artifacts",
		Request:      "demo request",
	}
}

func TestExpandVars(t *testing.T) {
	env := testEnv()
	task := &graph.Task{ID: "t01-store", Title: "Build doc store"}

	got := ExpandVars("run $TASK_ID in $WORK_DIR for $REQUEST", env.Vars(task))
	want := "run t01-store in /proj/work for demo request"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandVars_EnvFallback(t *testing.T) {
	t.Setenv("LOOM_TEST_FALLBACK", "from-env")
	got := ExpandVars("$LOOM_TEST_FALLBACK/$ARTIFACTS_DIR", testEnv().Vars(nil))
	if got != "from-env//proj/.loom/artifacts" {
		t.Errorf("got %q", got)
	}
}

func TestBuildEnv(t *testing.T) {
	t.Setenv("CLAUDECODE", "1")
	t.Setenv("KEEP_ME", "yes")

	env := testEnv()
	task := &graph.Task{ID: "t01-store", Layer: graph.LayerCore}
	vars := env.BuildEnv(task, "tests")

	has := func(kv string) bool {
		for _, v := range vars {
			if v == kv {
				return true
			}
		}
		return false
	}
	if has("CLAUDECODE=1") {
		t.Error("CLAUDECODE should be stripped")
	}
	if !has("KEEP_ME=yes") {
		t.Error("inherited variables should survive")
	}
	for _, want := range []string{
		"LOOM_REQUEST=demo request",
		"LOOM_WORK_DIR=/proj/work",
		"LOOM_TASK_ID=t01-store",
		"LOOM_TASK_LAYER=core",
		"LOOM_GATE=tests",
	} {
		if !has(want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestBuildEnv_NoTaskNoGate(t *testing.T) {
	vars := testEnv().BuildEnv(nil, "")
	for _, v := range vars {
		if strings.HasPrefix(v, "LOOM_TASK_") || strings.HasPrefix(v, "LOOM_GATE=") {
			t.Errorf("unexpected %q", v)
		}
	}
}
