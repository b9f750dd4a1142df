package reconcile

import (
	"fmt"
	"io"

	"github.com/agentstation/utc"
	"github.com/goccy/go-yaml"
)

// ActionKind is what an execution log entry does.
type ActionKind string

const (
	ActionKeep   ActionKind = "keep"
	ActionRemove ActionKind = "remove"
	ActionCopy   ActionKind = "copy"
)

// ActionStatus is the outcome of an entry.
type ActionStatus string

const (
	StatusPlanned ActionStatus = "planned"
	StatusDone    ActionStatus = "done"
	StatusFailed  ActionStatus = "failed"
	StatusSkipped ActionStatus = "skipped"
)

// LogEntry is one line of the execution log. For copies Side is the
// destination tree and Path the source file.
type LogEntry struct {
	Action      ActionKind   `yaml:"action"`
	Side        Side         `yaml:"side"`
	Path        string       `yaml:"path"`
	Destination string       `yaml:"destination,omitempty"`
	Size        int64        `yaml:"size"`
	Status      ActionStatus `yaml:"status"`
	Reason      string       `yaml:"reason,omitempty"`
}

// ExecutionLog records every action of a run in the order it was taken.
// Dry runs and live runs produce the same entries; only Status differs.
type ExecutionLog struct {
	RunID       string     `yaml:"run_id"`
	DryRun      bool       `yaml:"dry_run"`
	RootA       string     `yaml:"root_a"`
	RootB       string     `yaml:"root_b"`
	StartedAt   utc.Time   `yaml:"started_at"`
	CompletedAt utc.Time   `yaml:"completed_at"`
	Entries     []LogEntry `yaml:"entries"`
}

// LogSummary aggregates an ExecutionLog.
type LogSummary struct {
	Kept         int
	Removed      int
	Copied       int
	Failed       int
	Skipped      int
	BytesRemoved int64
	BytesCopied  int64
}

// NewExecutionLog starts an empty log.
func NewExecutionLog(runID string, plan *Plan, dryRun bool) *ExecutionLog {
	return &ExecutionLog{
		RunID:     runID,
		DryRun:    dryRun,
		RootA:     plan.RootA,
		RootB:     plan.RootB,
		StartedAt: utc.Now(),
	}
}

func (l *ExecutionLog) add(e LogEntry) {
	l.Entries = append(l.Entries, e)
}

// Finish stamps the completion time.
func (l *ExecutionLog) Finish() {
	l.CompletedAt = utc.Now()
}

// Summary counts entries by outcome. Planned entries count as the action
// they describe.
func (l *ExecutionLog) Summary() LogSummary {
	var s LogSummary
	for _, e := range l.Entries {
		switch e.Status {
		case StatusFailed:
			s.Failed++
			continue
		case StatusSkipped:
			s.Skipped++
			continue
		}
		switch e.Action {
		case ActionKeep:
			s.Kept++
		case ActionRemove:
			s.Removed++
			s.BytesRemoved += e.Size
		case ActionCopy:
			s.Copied++
			s.BytesCopied += e.Size
		}
	}
	return s
}

// Failures returns the failed entries.
func (l *ExecutionLog) Failures() []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries {
		if e.Status == StatusFailed {
			out = append(out, e)
		}
	}
	return out
}

// WriteYAML encodes the log as YAML.
func (l *ExecutionLog) WriteYAML(w io.Writer) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode execution log: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write execution log: %w", err)
	}
	return nil
}
