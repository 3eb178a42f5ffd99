package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jorge-barreto/loom/internal/ux"
)

var configTemplate = `name: my-project
request-pattern: '.+'

specialist:
  prompt: .loom/prompts/specialist.md
  model: sonnet
  timeout: 30

max-revisions: 3
max-gate-retries: 3

gates:
  - name: tests
    run: echo "replace with your test command" && true
    timeout: 10

# integration:
#   run: ./scripts/integration-check.sh
#   timeout: 15

risk:
  dependent-threshold: 3
  external-keywords: [api, external, third-party, vendor, network]
  uncertain-keywords: [experiment, research, explore, prototype, unclear]

# Applied to flagged tasks in --auto mode: defer, keep, or drop.
auto-decision: defer
`

var specialistPrompt = `You are implementing one task of a larger plan.

Request: $REQUEST
Project root: $PROJECT_ROOT
Working directory: $WORK_DIR

Implement the task described below. Follow the project's existing
conventions. When your work produces files, emit each one as a fenced code
block annotated with its path:

` + "```" + `python file=src/example.py
<content>
` + "```" + `

End with a short summary of what you built and how a dependent task should
use it.
`

var findingsExample = `# Capability audit findings consumed by 'loom plan'.
# Generated by the audit agent, or write it by hand and pass --findings.
findings:
  - capability: example capability
    classification: missing   # available | extensible | missing | blocked
    layer: core               # core | infra | algorithm | workflow
    details: describe what needs to be built
    requires: []              # earlier capability names this builds on
    acceptance:
      - a verifiable acceptance criterion
`

// Init creates a new .loom/ directory with example config, specialist
// prompt, and findings template.
func Init(targetDir string) error {
	loomDir := filepath.Join(targetDir, ".loom")
	if _, err := os.Stat(loomDir); err == nil {
		return fmt.Errorf(".loom directory already exists in %s", targetDir)
	}

	promptsDir := filepath.Join(loomDir, "prompts")
	if err := os.MkdirAll(promptsDir, 0755); err != nil {
		return fmt.Errorf("creating .loom/prompts: %w", err)
	}

	files := map[string]string{
		filepath.Join(loomDir, "config.yaml"):            configTemplate,
		filepath.Join(promptsDir, "specialist.md"):       specialistPrompt,
		filepath.Join(loomDir, "findings.example.yaml"):  findingsExample,
		filepath.Join(loomDir, ".gitignore"):             "artifacts/\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	fmt.Printf("\n%s%s✓ Initialized .loom/ directory%s\n\n", ux.Bold, ux.Green, ux.Reset)
	fmt.Printf("  Created:\n")
	fmt.Printf("    %s.loom/config.yaml%s           — pipeline configuration\n", ux.Cyan, ux.Reset)
	fmt.Printf("    %s.loom/prompts/specialist.md%s — specialist prompt template\n", ux.Cyan, ux.Reset)
	fmt.Printf("    %s.loom/findings.example.yaml%s — findings file template\n\n", ux.Cyan, ux.Reset)
	fmt.Printf("  Next steps:\n")
	fmt.Printf("    1. Edit %s.loom/config.yaml%s for your project's gates and risk keywords\n", ux.Cyan, ux.Reset)
	fmt.Printf("    2. Run %sloom plan \"<request>\"%s to audit and build the task graph\n", ux.Cyan, ux.Reset)
	fmt.Printf("    3. Run %sloom run \"<request>\" --dry-run%s to preview\n\n", ux.Cyan, ux.Reset)

	return nil
}
