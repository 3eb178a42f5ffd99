package decompose

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Finding is one classified capability from the audit phase. The audit
// itself (inventory lookup, request parsing) is an external collaborator;
// the core consumes only its output.
type Finding struct {
	Capability     string         `yaml:"capability"`
	Classification Classification `yaml:"classification"`
	Layer          string         `yaml:"layer"` // core, infra, algorithm, workflow
	Details        string         `yaml:"details"`
	Requires       []string       `yaml:"requires"`   // capability names this builds on
	Acceptance     []string       `yaml:"acceptance"` // opaque acceptance criteria
}

// LoadFindings reads a YAML findings file produced by the audit phase.
func LoadFindings(path string) ([]Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Findings []Finding `yaml:"findings"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing findings: %w", err)
	}
	for i, f := range doc.Findings {
		if f.Capability == "" {
			return nil, fmt.Errorf("findings: entry %d: 'capability' is required", i+1)
		}
		if f.Classification == "" {
			return nil, fmt.Errorf("findings: %q: 'classification' is required", f.Capability)
		}
	}
	return doc.Findings, nil
}
