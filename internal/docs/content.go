package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Getting started with loom",
		Content: topicQuickstart,
	},
	{
		Name:    "config",
		Title:   "Configuration Reference",
		Summary: "Config file schema, fields, and defaults",
		Content: topicConfig,
	},
	{
		Name:    "pipeline",
		Title:   "Pipeline Phases",
		Summary: "Intake, audit, decompose, brainstorm, execute, verify, integrate",
		Content: topicPipeline,
	},
	{
		Name:    "mutations",
		Title:   "Graph Mutations",
		Summary: "Defer, restore, split, and drop semantics",
		Content: topicMutations,
	},
	{
		Name:    "triggers",
		Title:   "Promotion Triggers",
		Summary: "Condition syntax and when deferred tasks reactivate",
		Content: topicTriggers,
	},
	{
		Name:    "artifacts",
		Title:   "Artifacts Directory",
		Summary: "Structure of .loom/artifacts/ and what gets saved",
		Content: topicArtifacts,
	},
}

const topicQuickstart = `Quick Start
===========

1. Initialize a project:

    cd your-project
    loom init

   This creates .loom/config.yaml, a specialist prompt template, and a
   findings file example.

2. Build a task graph for a request:

    loom plan "add full-text search"

   The audit agent inventories your codebase and classifies the
   capabilities the request needs; the decomposer turns the findings into
   a layered, dependency-ordered task graph. To skip the agent, write a
   findings file yourself and pass --findings path/to/findings.yaml.

3. Preview the plan:

    loom run "add full-text search" --dry-run

4. Run for real:

    loom run "add full-text search"

   Each run starts with a risk review: flagged tasks are offered for
   defer, keep, split, or drop. Then tasks execute bottom-up through
   dispatch, review, and gates, checkpointing after every completion.

5. Check progress:

    loom status

CLI Flags
---------

  loom plan <request>              Audit the codebase and build the graph
  loom plan <request> --findings F Use a hand-written findings file
  loom run <request>               Execute the task graph
  loom run <request> --auto        No human review; policy decisions only
  loom run <request> --dry-run     Print the task plan without executing
  loom status                      Show pipeline status
  loom doctor                      Check environment, diagnose failures
  loom docs [topic]                This documentation
`

const topicConfig = `Configuration Reference
=======================

The pipeline is configured in .loom/config.yaml.

Top-level fields
----------------

  name              string   Required. Project name.
  request-pattern   string   Regex for request labels (anchored automatically).
  specialist        object   Agent that drafts task implementations.
  max-revisions     int      Review-loop bound per task. Default: 3.
  max-gate-retries  int      Retry adjudications per gate per task. Default: 3.
  gates             list     Quality checks run against each approved draft.
  integration       object   Validation command for integration tasks.
  risk              object   Brainstorm risk-check configuration.
  auto-decision     string   Mutation applied to flagged tasks in --auto
                             mode: defer (default), keep, or drop.

Specialist fields
-----------------

  prompt    string   Prompt template path, relative to project root.
  model     string   "sonnet" (default), "opus", or "haiku".
  timeout   int      Minutes. Default: 30.

Gate fields
-----------

  name      string   Required. Unique gate name.
  run       string   Required. Shell command; non-zero exit fails the gate.
  timeout   int      Minutes. Default: 10.

Risk fields
-----------

  external-keywords    list   Words marking external-dependency tasks.
  uncertain-keywords   list   Words marking high-uncertainty tasks.
  dependent-threshold  int    Transitive dependent count that flags a task
                              as long-critical-path. Default: 3.

Variables
---------

Prompt templates and gate commands may reference $REQUEST, $PROJECT_ROOT,
$WORK_DIR, $ARTIFACTS_DIR, $TASK_ID, and $TASK_TITLE. Child processes also
receive LOOM_-prefixed environment variables for the same values.
`

const topicPipeline = `Pipeline Phases
===============

A project moves forward through seven phases. The phase is stored in the
checkpoint, so an interrupted run resumes where it left off.

  intake      The request is captured.
  audit       An agent inventories the codebase and classifies each
              required capability: available, extensible, missing, or
              blocked. Blocked findings pause the pipeline for human input.
  decompose   Findings become tasks, grouped bottom-up by layer (core,
              infra, algorithm, workflow) with a trailing integration task
              depending on every leaf. A dependency must resolve to a task
              placed earlier in the same pass.
  brainstorm  Risk review. Each pending task is checked for external
              dependencies, uncertainty keywords, and long critical paths;
              flagged tasks go through the decision protocol (defer, keep,
              split, drop).
  execute     The scheduler repeatedly picks the lowest-layer ready task
              and drives it through dispatch -> review -> gates. One task
              runs at a time; the checkpoint is rewritten after each.
  verify      Gate verification is part of each task's lifecycle; the
              phase marker advances once execution drains.
  integrate   The integration task ran and the pipeline is terminal.

Review loop
-----------

A draft goes to the reviewer, who approves, requests a revision (with
feedback fed to the next dispatch), or rejects. Revisions are bounded by
max-revisions; exhaustion fails the task. A failed task never blocks the
pipeline as a whole, only its dependents.

Gate loop
---------

Gates run in declaration order. A failure is adjudicated: retry
re-dispatches the specialist with the failure details and re-verifies from
the first gate, override accepts the failure on record, pause halts the
pipeline. Each gate has its own retry budget; exhaustion escalates to
pause.

Resuming
--------

Re-running 'loom run' with the same request loads the checkpoint. Tasks
interrupted mid-flight restart from dispatch; revision and retry counters
do not survive a crash.
`

const topicMutations = `Graph Mutations
===============

All four mutations are applied to a copy of the graph and validated before
taking effect, so a structurally invalid decision leaves the graph
untouched.

defer
-----

Deferring a task removes its whole dependent closure from the active
plan: every pending task that cannot proceed or has no purpose without it
moves to deferred with it. Edges into the deferred set are suspended, not
deleted; each affected task keeps a snapshot of its original dependencies.
All tasks deferred by one operation share a defer group.

restore
-------

Restoring any member of a defer group returns the entire group to
pending and reinstates the suspended edges, exactly reversing the defer.
Work completed in the meantime is untouched.

split
-----

Splitting replaces a task with an immediately executable first slice and
a deferred remainder. The remainder depends on the slice and carries a
promotion trigger (by default, slice completion). Dependents follow the
remainder unless rewired.

drop
----

Dropping removes the task permanently and strips it from every other
task's dependency sets, active or suspended. Dependents whose only
unsatisfied dependency was the dropped task become ready.
`

const topicTriggers = `Promotion Triggers
==================

A deferred task may carry a trigger naming the condition under which it
should rejoin the plan. Triggers have the form:

    <task_id>:<predicate>

Predicates:

  completed      Fires when the named task reaches done.
  promoted       Fires when the named task is itself promoted from
                 deferred, letting deferrals cascade back in.
  <name>         Any other predicate is a named condition. It fires when
                 the named task completes AND a gate or integration script
                 reported "condition: <name>=true" on stdout.

Example: a gate script that measures search accuracy can emit

    condition: accuracy_below_threshold=true

and a task deferred with trigger "t05-eval:accuracy_below_threshold" will
be offered for promotion when t05-eval completes with that condition set.

Triggers are evaluated after every task completion and after every
integration validation (pass or fail; a failing integration also sets the
integration_failed condition). A fired trigger never promotes silently:
the decision protocol asks for confirmation, or applies the policy in
--auto mode. Promotion restores the task's entire defer group.

A deferred task without a trigger stays deferred until dropped or
manually restored.
`

const topicArtifacts = `Artifacts Directory
===================

Everything a run produces lives under .loom/artifacts/:

  checkpoint.json    Full pipeline state: request, phase, task graph,
                     decision log, blocked reason. Rewritten atomically
                     after every task completion and every mutation.
  events.jsonl       Structured event log, one JSON line per dispatch,
                     verdict, gate run, adjudication, mutation, promotion,
                     and checkpoint.
  timing.json        Per-task wall-clock durations.
  drafts/<id>.md     The latest draft for each task; on approval, the
                     final output.
  logs/<id>.log      Raw specialist and gate output per task, appended
                     across attempts.
  feedback/          Reviewer feedback per revision attempt, kept so
                     failed runs stay reconstructable.

The checkpoint is the single source of truth for resuming. Deleting
.loom/artifacts/ resets the project to a blank state.

File blocks
-----------

Draft output may contain fenced code blocks annotated with file=<path>.
On approval they are extracted into the working directory; paths are
confined to the project (no absolute paths, no escaping "..").
`
