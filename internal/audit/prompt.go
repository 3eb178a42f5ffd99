package audit

import "fmt"

func buildAuditPrompt(request, projectContext string) string {
	return fmt.Sprintf(auditPromptTemplate, request, projectContext)
}

const auditPromptTemplate = `You are auditing a codebase to plan the following request:

%s

Your job: identify every capability the request needs, check whether the
codebase already provides it, and classify each one.

## Classifications

- available:  the capability exists and can be used as-is. No task emitted.
- extensible: an existing capability covers part of the need and should be
              extended rather than rebuilt.
- missing:    the capability must be built from scratch.
- blocked:    the capability cannot be worked on autonomously (needs
              credentials, external approval, or information only a human
              has). This pauses planning for human input.

## Layers

Assign each capability a layer so tasks build bottom-up:

- core:      data models, types, shared primitives
- infra:     storage, I/O, external service clients
- algorithm: domain logic and computation
- workflow:  end-to-end flows, user-facing surfaces

## Project Context

%s

## Output Format

Produce ONLY one fenced code block annotated with its file path. No text
outside the block:

` + "```" + `yaml file=.loom/findings.yaml
findings:
  - capability: document store
    classification: extensible
    layer: infra
    details: SQLite layer exists in src/db.py but lacks versioning
    requires: []
    acceptance:
      - documents retrievable by id after restart
  - capability: ranking algorithm
    classification: missing
    layer: algorithm
    details: no ranking implementation present
    requires: [document store]
    acceptance:
      - ranks a seeded corpus deterministically
` + "```" + `

Rules:
- Every name in a 'requires' list MUST appear as an earlier capability.
- List capabilities bottom-up: core, then infra, algorithm, workflow.
- Include available capabilities too; they document what the plan builds on.
`

const retryFeedback = `

IMPORTANT: Your previous attempt failed with this error: %v

Try again. Output ONLY one fenced code block annotated file=.loom/findings.yaml
containing valid YAML with a top-level 'findings' list.`
