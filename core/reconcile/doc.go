// Package reconcile provides the run lifecycle shared by every reconciliation mode.
//
// A run is driven by a Driver over an Adapter. The adapter knows what a unit of work
// is (a source price row, an order) and how to apply it; the driver owns everything
// that must behave the same in every mode:
//   - the state machine Started -> Extracting|Checking -> Applying|Repairing -> Verifying -> Completed|Failed
//   - dry-run semantics (the flag is threaded to Apply and Verify, and no run row is persisted)
//   - bounded exponential retry of transient infrastructure errors
//   - classification of unit errors into skipped, failed and run-fatal
//   - the structured Summary every run ends with
//
// # Units and transactions
//
// Each unit is committed independently by the adapter. A failure on one unit never rolls
// back another, so an interrupted run leaves the store partially reconciled but never
// half-written. With Config.Workers > 1 units are applied concurrently through an
// errgroup; unit keys are disjoint so no cross-unit locking is needed.
//
// # Errors
//
// Adapters signal intent through the sentinels in errors.go:
//   - Skip(reason, err) counts the unit as skipped under reason
//   - ErrUnknownCurrency and ErrSourceUnavailable abort the run
//   - errors for which IsTransient holds are retried; exhausting the budget aborts the run
//   - anything else fails the unit and the run continues
//
// # Usage Example
//
//	driver := reconcile.NewDriver(cfg.Run, logger)
//	driver.Recorder = reconcile.NewGormRecorder(targetDB)
//	summary, err := driver.Run(ctx, pricing.NewSyncAdapter(...))
//	os.Exit(summary.ExitCode())
package reconcile
