// Package state holds the ProjectState aggregate and its persistence.
// The entire pipeline operates on one explicit state value threaded through
// every phase function; checkpointing is simply serializing that value.
package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/jorge-barreto/loom/internal/graph"
)

// DecisionRecord is one entry in the append-only mutation log. Records are
// never mutated after insertion.
type DecisionRecord struct {
	ID       string    `json:"id"`
	Hook     string    `json:"hook"` // brainstorm, trigger, gate
	TaskID   string    `json:"task_id"`
	Question string    `json:"question"`
	Choice   string    `json:"choice"`
	Action   string    `json:"action"`
	Time     time.Time `json:"time"`
}

// ProjectState is the aggregate root: the single source of truth mutated by
// every other component, and the only shared mutable resource in the core.
type ProjectState struct {
	Request   string           `json:"request"`
	Phase     Phase            `json:"phase"`
	Tasks     *graph.Graph     `json:"tasks"`
	Decisions []DecisionRecord `json:"decisions"`
	// BlockedReason is the pipeline's only cancellation primitive: non-empty
	// means paused awaiting human input, and the scheduler refuses to
	// advance until it is cleared.
	BlockedReason string `json:"blocked_reason,omitempty"`
}

// New returns a fresh state at the intake phase with an empty graph.
func New(request string) *ProjectState {
	return &ProjectState{
		Request: request,
		Phase:   PhaseIntake,
		Tasks:   graph.New(),
	}
}

// RecordDecision appends a record to the mutation log and returns it.
func (s *ProjectState) RecordDecision(hook, taskID, question, choice, action string) DecisionRecord {
	rec := DecisionRecord{
		ID:       uuid.NewString(),
		Hook:     hook,
		TaskID:   taskID,
		Question: question,
		Choice:   choice,
		Action:   action,
		Time:     time.Now().UTC(),
	}
	s.Decisions = append(s.Decisions, rec)
	return rec
}

// Blocked reports whether the pipeline is paused awaiting human input.
func (s *ProjectState) Blocked() bool {
	return s.BlockedReason != ""
}

// Block pauses the pipeline with the given reason.
func (s *ProjectState) Block(reason string) {
	s.BlockedReason = reason
}

// Unblock clears the blocked reason so scheduling can resume.
func (s *ProjectState) Unblock() {
	s.BlockedReason = ""
}

func checkpointPath(artifactsDir string) string {
	return filepath.Join(artifactsDir, "checkpoint.json")
}

// Load reads the checkpoint from the artifacts directory. Returns a fresh
// state if no checkpoint exists. Any task left in_progress by a crash is
// reset to pending so its stage restarts cleanly on resume; completed,
// failed, and deferred statuses survive as-is.
func Load(artifactsDir string) (*ProjectState, error) {
	data, err := os.ReadFile(checkpointPath(artifactsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return New(""), nil
		}
		return nil, err
	}
	var s ProjectState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Tasks == nil {
		s.Tasks = graph.New()
	}
	for _, t := range s.Tasks.Tasks() {
		if t.Status == graph.StatusInProgress {
			t.Status = graph.StatusPending
		}
	}
	return &s, nil
}

// Save writes the checkpoint to the artifacts directory atomically.
func (s *ProjectState) Save(artifactsDir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(checkpointPath(artifactsDir), data, 0644)
}
