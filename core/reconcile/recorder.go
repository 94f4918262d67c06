package reconcile

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Recorder persists runs so that operators can audit what a run did.
type Recorder interface {
	Start(ctx context.Context, run *Run) error
	Finish(ctx context.Context, summary *Summary) error
}

// RunRecord is the reconciliation_runs row for one run.
type RunRecord struct {
	ID         string     `gorm:"column:id;primaryKey;size:36"`
	Mode       string     `gorm:"column:mode;size:32;not null"`
	DryRun     bool       `gorm:"column:dry_run;not null"`
	State      string     `gorm:"column:state;size:16;not null"`
	StartedAt  time.Time  `gorm:"column:started_at;not null"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	Processed  int        `gorm:"column:processed"`
	Created    int        `gorm:"column:created"`
	Updated    int        `gorm:"column:updated"`
	Unchanged  int        `gorm:"column:unchanged"`
	Skipped    int        `gorm:"column:skipped"`
	Failed     int        `gorm:"column:failed"`
	Unresolved int        `gorm:"column:unresolved"`
	LastError  string     `gorm:"column:last_error;type:text"`
}

// TableName returns the table name for RunRecord.
func (RunRecord) TableName() string { return "reconciliation_runs" }

// GormRecorder writes RunRecord rows through GORM.
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder creates a recorder on the target store.
func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{db: db}
}

// Migrate creates the reconciliation_runs table when it does not exist.
func (r *GormRecorder) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&RunRecord{})
}

// Start inserts the row for a newly started run.
func (r *GormRecorder) Start(ctx context.Context, run *Run) error {
	rec := RunRecord{
		ID:        run.ID(),
		Mode:      string(run.Mode()),
		DryRun:    run.DryRun(),
		State:     string(run.State()),
		StartedAt: run.StartedAt(),
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

// Finish stores the final state and counters.
func (r *GormRecorder) Finish(ctx context.Context, s *Summary) error {
	finished := s.FinishedAt
	return r.db.WithContext(ctx).Model(&RunRecord{}).
		Where("id = ?", s.RunID).
		Updates(map[string]any{
			"state":       string(s.State),
			"finished_at": &finished,
			"processed":   s.Counts.Processed,
			"created":     s.Counts.Created,
			"updated":     s.Counts.Updated,
			"unchanged":   s.Counts.Unchanged,
			"skipped":     s.Counts.Skipped,
			"failed":      s.Counts.Failed,
			"unresolved":  len(s.Unresolved),
			"last_error":  s.Error,
		}).Error
}
