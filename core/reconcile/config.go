package reconcile

import "time"

// Config holds run-lifecycle options shared by every reconciliation mode.
type Config struct {
	// DryRun suppresses every write to the target store and reports the would-be diff.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// Workers is the number of units processed concurrently. 1 keeps the pass sequential.
	Workers int `mapstructure:"workers" default:"1"`
	// RetryAttempts bounds how often a unit is attempted when it fails transiently.
	RetryAttempts int `mapstructure:"retry_attempts" default:"5"`
	// RetryInitialInterval is the first backoff delay.
	RetryInitialInterval time.Duration `mapstructure:"retry_initial_interval" default:"200ms"`
	// RetryMaxInterval caps the exponential backoff delay.
	RetryMaxInterval time.Duration `mapstructure:"retry_max_interval" default:"5s"`
	// VerifySample is how many applied price records are re-diffed while verifying.
	VerifySample int `mapstructure:"verify_sample" default:"50"`
	// RecordRuns persists a reconciliation_runs row for every non-dry run.
	RecordRuns bool `mapstructure:"record_runs" default:"true"`
	// MaxReportedChanges caps the change list carried by the summary.
	MaxReportedChanges int `mapstructure:"max_reported_changes" default:"1000"`
}
