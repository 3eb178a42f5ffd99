package graph

// Status labels the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusDeferred   Status = "deferred"
)

// Terminal reports whether a status admits no further transitions.
// Deferred is not terminal: it is reversible via restore.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Layer is the bottom-up ordering category for a task. Lower layers are
// scheduled before higher layers when both are ready.
type Layer int

const (
	LayerCore Layer = iota
	LayerInfra
	LayerAlgorithm
	LayerWorkflow
)

var layerNames = map[Layer]string{
	LayerCore:      "core",
	LayerInfra:     "infra",
	LayerAlgorithm: "algorithm",
	LayerWorkflow:  "workflow",
}

func (l Layer) String() string {
	if name, ok := layerNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLayer maps a layer name to its ordinal. Returns LayerWorkflow, false
// for unrecognized names.
func ParseLayer(name string) (Layer, bool) {
	for l, n := range layerNames {
		if n == name {
			return l, true
		}
	}
	return LayerWorkflow, false
}

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	TypeNew         TaskType = "new"
	TypeExtend      TaskType = "extend"
	TypeFix         TaskType = "fix"
	TypeTest        TaskType = "test"
	TypeIntegration TaskType = "integration"
)

// Task is a single unit of work in the project graph.
//
// Dependencies holds the currently active prerequisite ids: every one must
// be done before the task is ready. When a prerequisite is deferred its id
// moves from Dependencies to SuspendedDependencies, and the first such move
// snapshots the full pre-suspension set into OriginalDependencies so a later
// restore can reproduce it exactly.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	Layer  Layer    `json:"layer"`
	Type   TaskType `json:"type"`
	Status Status   `json:"status"`

	Dependencies          []string `json:"dependencies"`
	OriginalDependencies  []string `json:"original_dependencies,omitempty"`
	SuspendedDependencies []string `json:"suspended_dependencies,omitempty"`

	RiskLevel    string `json:"risk_level,omitempty"`
	DeferTrigger string `json:"defer_trigger,omitempty"`
	// DeferGroup ties together every task deferred by one defer operation,
	// so restore can reverse the whole operation symmetrically.
	DeferGroup string `json:"defer_group,omitempty"`

	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	// Output is the approved draft produced for this task. Opaque payload,
	// fed to specialists working on dependent tasks.
	Output string `json:"output,omitempty"`
}

// DependsOn reports whether id is an active dependency of the task.
func (t *Task) DependsOn(id string) bool {
	return containsID(t.Dependencies, id)
}

// Suspended reports whether id is a suspended dependency of the task.
func (t *Task) Suspended(id string) bool {
	return containsID(t.SuspendedDependencies, id)
}

// SuspendDependency moves id from the active to the suspended set. The first
// suspension on a task snapshots its active set into OriginalDependencies.
// No-op if id is not an active dependency.
func (t *Task) SuspendDependency(id string) {
	if !t.DependsOn(id) {
		return
	}
	if len(t.OriginalDependencies) == 0 {
		t.OriginalDependencies = append([]string(nil), t.Dependencies...)
	}
	t.Dependencies = removeID(t.Dependencies, id)
	t.SuspendedDependencies = append(t.SuspendedDependencies, id)
}

// ReinstateDependency moves id back from the suspended to the active set
// and drops the suspended set entirely once it empties.
// No-op if id is not suspended.
func (t *Task) ReinstateDependency(id string) {
	if !t.Suspended(id) {
		return
	}
	t.SuspendedDependencies = removeID(t.SuspendedDependencies, id)
	if len(t.SuspendedDependencies) == 0 {
		t.SuspendedDependencies = nil
	}
	if !t.DependsOn(id) {
		t.Dependencies = append(t.Dependencies, id)
	}
}

// StripDependency removes id from every dependency set the task holds.
// Used when the referenced task is dropped: a dropped task can never block.
func (t *Task) StripDependency(id string) {
	t.Dependencies = removeID(t.Dependencies, id)
	t.SuspendedDependencies = removeID(t.SuspendedDependencies, id)
	t.OriginalDependencies = removeID(t.OriginalDependencies, id)
	if len(t.SuspendedDependencies) == 0 {
		t.SuspendedDependencies = nil
	}
	if len(t.OriginalDependencies) == 0 {
		t.OriginalDependencies = nil
	}
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	cp := *t
	cp.Dependencies = append([]string(nil), t.Dependencies...)
	cp.OriginalDependencies = append([]string(nil), t.OriginalDependencies...)
	cp.SuspendedDependencies = append([]string(nil), t.SuspendedDependencies...)
	cp.AcceptanceCriteria = append([]string(nil), t.AcceptanceCriteria...)
	return &cp
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
