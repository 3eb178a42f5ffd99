package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Gate is one automated quality check run against a task's draft.
// Gates run in declaration order; a non-zero exit is a failure.
type Gate struct {
	Name    string `yaml:"name"`
	Run     string `yaml:"run"`
	Timeout int    `yaml:"timeout"` // minutes
}

// Integration configures the integration validation command run for
// integration-type tasks once all of their feeders are done.
type Integration struct {
	Run     string `yaml:"run"`
	Timeout int    `yaml:"timeout"` // minutes
}

// Risk configures the brainstorm risk checks.
type Risk struct {
	// ExternalKeywords flag tasks touching capabilities outside the
	// system's control.
	ExternalKeywords []string `yaml:"external-keywords"`
	// UncertainKeywords flag tasks with uncertain outcomes.
	UncertainKeywords []string `yaml:"uncertain-keywords"`
	// DependentThreshold flags tasks whose transitive dependent count
	// meets or exceeds it (long critical path).
	DependentThreshold int `yaml:"dependent-threshold"`
}

// Specialist configures the agent that drafts task implementations.
type Specialist struct {
	Prompt  string `yaml:"prompt"` // prompt template path, relative to project root
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // minutes
}

type Config struct {
	Name           string `yaml:"name"`
	RequestPattern string `yaml:"request-pattern"`

	Specialist Specialist `yaml:"specialist"`

	// MaxRevisions bounds the dispatch/review loop per task.
	MaxRevisions int `yaml:"max-revisions"`
	// MaxGateRetries bounds retry adjudications per gate per task.
	MaxGateRetries int `yaml:"max-gate-retries"`

	Gates       []Gate      `yaml:"gates"`
	Integration Integration `yaml:"integration"`
	Risk        Risk        `yaml:"risk"`

	// AutoDecision is the mutation applied to flagged tasks in --auto mode:
	// defer, keep, or drop.
	AutoDecision string `yaml:"auto-decision"`
}

// Load reads a YAML config file and returns a validated Config.
func Load(path, projectRoot string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg, projectRoot); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GateIndex returns the index of the named gate, or -1 if not found.
func (c *Config) GateIndex(name string) int {
	for i, g := range c.Gates {
		if g.Name == name {
			return i
		}
	}
	return -1
}
