package brainstorm

import (
	"strings"
	"testing"

	"github.com/jorge-barreto/loom/internal/config"
	"github.com/jorge-barreto/loom/internal/graph"
)

func riskConfig() config.Risk {
	return config.Risk{
		ExternalKeywords:   []string{"external", "vendor"},
		UncertainKeywords:  []string{"investigate", "spike"},
		DependentThreshold: 3,
	}
}

func TestFlag_ExternalKeyword(t *testing.T) {
	task := newTask("t01-gateway")
	task.Title = "Build vendor payment gateway"
	g := buildGraph(t, task)

	flagged := Flag(g, riskConfig())
	if len(flagged) != 1 {
		t.Fatalf("flagged = %d", len(flagged))
	}
	f := flagged[0]
	if f.Task.ID != "t01-gateway" || f.Level != "external" {
		t.Errorf("flag = %+v", f)
	}
	if !strings.Contains(f.Reason(), "vendor") {
		t.Errorf("reason = %q", f.Reason())
	}
	if f.Task.RiskLevel != "external" {
		t.Errorf("risk level not stamped: %q", f.Task.RiskLevel)
	}
}

func TestFlag_UncertainDescription(t *testing.T) {
	task := newTask("t01-ranking")
	task.Title = "Ranking quality"
	task.Description = "Investigate whether learned ranking beats BM25"
	g := buildGraph(t, task)

	flagged := Flag(g, riskConfig())
	if len(flagged) != 1 || flagged[0].Level != "uncertain" {
		t.Fatalf("flagged = %+v", flagged)
	}
}

func TestFlag_CriticalPath(t *testing.T) {
	g := buildGraph(t,
		newTask("root"),
		newTask("b", "root"),
		newTask("c", "b"),
		newTask("d", "c"),
	)
	flagged := Flag(g, riskConfig())
	if len(flagged) != 1 {
		t.Fatalf("flagged = %+v", flagged)
	}
	f := flagged[0]
	if f.Task.ID != "root" || f.Level != "critical-path" || f.Dependents != 3 {
		t.Errorf("flag = %+v", f)
	}
}

func TestFlag_MultipleReasonsKeepFirstLevel(t *testing.T) {
	task := newTask("root")
	task.Title = "Spike an external vendor integration"
	g := buildGraph(t,
		task,
		newTask("b", "root"),
		newTask("c", "root"),
		newTask("d", "root"),
	)
	flagged := Flag(g, riskConfig())
	if len(flagged) != 1 {
		t.Fatalf("flagged = %+v", flagged)
	}
	f := flagged[0]
	if len(f.Reasons) != 3 {
		t.Errorf("reasons = %v", f.Reasons)
	}
	if f.Level != "external" {
		t.Errorf("level = %q", f.Level)
	}
}

func TestFlag_SkipsIntegrationAndNonPending(t *testing.T) {
	integ := newTask("t09-integration")
	integ.Title = "Integration of external vendor work"
	integ.Type = graph.TypeIntegration

	done := newTask("t01-done")
	done.Title = "Spike external vendor client"
	done.Status = graph.StatusDone

	g := buildGraph(t, done, integ)
	if flagged := Flag(g, riskConfig()); len(flagged) != 0 {
		t.Errorf("flagged = %+v", flagged)
	}
}

func TestFlag_ThresholdDisabled(t *testing.T) {
	cfg := riskConfig()
	cfg.DependentThreshold = 0
	g := buildGraph(t,
		newTask("root"),
		newTask("b", "root"),
		newTask("c", "b"),
		newTask("d", "c"),
	)
	if flagged := Flag(g, cfg); len(flagged) != 0 {
		t.Errorf("flagged = %+v", flagged)
	}
}
