package reconcile

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Summary is the structured report every run ends with, successful or not.
type Summary struct {
	RunID          string         `json:"run_id"`
	Mode           Mode           `json:"mode"`
	DryRun         bool           `json:"dry_run"`
	State          State          `json:"state"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Duration       string         `json:"duration"`
	Counts         Counts         `json:"counts"`
	SkipReasons    map[string]int `json:"skip_reasons"`
	Failures       []Failure      `json:"failures,omitempty"`
	Unresolved     []Unresolved   `json:"unresolved,omitempty"`
	Changes        []Change       `json:"changes,omitempty"`
	ChangesDropped int            `json:"changes_dropped,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Clean reports a completed run with no failed units and nothing unresolved.
func (s *Summary) Clean() bool {
	return s.State == StateCompleted && s.Counts.Failed == 0 && len(s.Unresolved) == 0
}

// ExitCode maps the summary onto the process exit status.
func (s *Summary) ExitCode() int {
	if s.Clean() {
		return 0
	}
	return 1
}

// UnresolvedErr returns ErrInvariantUnresolved when units were left unresolved, nil otherwise.
func (s *Summary) UnresolvedErr() error {
	if len(s.Unresolved) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d unit(s)", ErrInvariantUnresolved, len(s.Unresolved))
}

// Fields returns the summary as zap fields.
func (s *Summary) Fields() []zap.Field {
	fields := []zap.Field{
		zap.String("run_id", s.RunID),
		zap.String("mode", string(s.Mode)),
		zap.Bool("dry_run", s.DryRun),
		zap.String("state", string(s.State)),
		zap.String("duration", s.Duration),
		zap.Int("processed", s.Counts.Processed),
		zap.Int("created", s.Counts.Created),
		zap.Int("updated", s.Counts.Updated),
		zap.Int("unchanged", s.Counts.Unchanged),
		zap.Int("skipped", s.Counts.Skipped),
		zap.Int("failed", s.Counts.Failed),
		zap.Int("unresolved", len(s.Unresolved)),
	}
	if len(s.SkipReasons) > 0 {
		fields = append(fields, zap.Any("skip_reasons", s.SkipReasons))
	}
	if s.Error != "" {
		fields = append(fields, zap.String("error", s.Error))
	}
	return fields
}
