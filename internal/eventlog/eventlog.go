// Package eventlog writes the structured execution log: one JSON line per
// pipeline event (dispatch, verdict, gate outcome, mutation, checkpoint),
// with enough context to reconstruct every decision after the fact.
package eventlog

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Logger appends events to <artifacts>/events.jsonl. A nil *Logger is
// valid and drops everything, so components never need to guard their
// logging calls.
type Logger struct {
	log zerolog.Logger
	f   *os.File
}

// Open creates or appends to the event log in the artifacts directory.
func Open(artifactsDir string) (*Logger, error) {
	path := filepath.Join(artifactsDir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		log: zerolog.New(f).With().Timestamp().Logger(),
		f:   f,
	}, nil
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	return l.f.Close()
}

// Dispatch records a specialist dispatch attempt.
func (l *Logger) Dispatch(taskID string, attempt int) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "dispatch").Str("task", taskID).Int("attempt", attempt).Send()
}

// Verdict records a review outcome.
func (l *Logger) Verdict(taskID, verdict, detail string) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "review").Str("task", taskID).Str("verdict", verdict).Str("detail", detail).Send()
}

// Gate records a single gate run.
func (l *Logger) Gate(taskID, gate string, passed bool, attempt int, detail string) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "gate").Str("task", taskID).Str("gate", gate).
		Bool("passed", passed).Int("attempt", attempt).Str("detail", detail).Send()
}

// Adjudication records a gate-failure adjudication.
func (l *Logger) Adjudication(taskID, gate, outcome, reason string) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "adjudication").Str("task", taskID).Str("gate", gate).
		Str("outcome", outcome).Str("reason", reason).Send()
}

// Mutation records a brainstorm decision being applied.
func (l *Logger) Mutation(taskID, action, reason string) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "mutation").Str("task", taskID).Str("action", action).Str("reason", reason).Send()
}

// Promotion records a deferred task restored by its trigger.
func (l *Logger) Promotion(taskID, trigger string) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "promotion").Str("task", taskID).Str("trigger", trigger).Send()
}

// Status records a task status transition.
func (l *Logger) Status(taskID, status string) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "status").Str("task", taskID).Str("status", status).Send()
}

// Integration records an integration validation outcome.
func (l *Logger) Integration(taskID string, passed bool, detail string) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "integration").Str("task", taskID).Bool("passed", passed).Str("detail", detail).Send()
}

// Checkpoint records a state checkpoint.
func (l *Logger) Checkpoint(phase string, tasks int) {
	if l == nil {
		return
	}
	l.log.Info().Str("event", "checkpoint").Str("phase", phase).Int("tasks", tasks).Send()
}
