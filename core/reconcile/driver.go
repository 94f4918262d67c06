package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commerce-reconciler/core/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Driver orchestrates one run of an Adapter through the lifecycle
// Started -> Extracting|Checking -> Applying|Repairing -> Verifying -> Completed|Failed.
type Driver struct {
	cfg    Config
	logger *zap.Logger

	// Recorder persists the run in the target store. Nil or dry-run skips it.
	Recorder Recorder
	// Publisher receives the final summary. Nil skips it.
	Publisher Publisher

	now func() time.Time
}

// NewDriver creates a driver for the given run options.
func NewDriver(cfg Config, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{cfg: cfg, logger: logger, now: time.Now}
}

// Run executes adapter once. The returned summary is never nil; the error is
// the fatal condition that failed the run, if any.
func (d *Driver) Run(ctx context.Context, adapter Adapter) (*Summary, error) {
	run := NewRun(adapter.Mode(), d.cfg.DryRun, d.now())
	run.maxChanges = d.cfg.MaxReportedChanges
	if run.maxChanges <= 0 {
		run.maxChanges = -1
	}
	log := logger.WithRun(d.logger, run.ID(), string(run.Mode()), run.DryRun())

	log.Info("Run started", zap.Int("workers", d.workers()))
	d.record(ctx, log, func(r Recorder) error { return r.Start(ctx, run) })

	err := d.execute(ctx, log, run, adapter)
	if err != nil {
		_ = run.Fail(err)
	} else {
		err = run.Transition(StateCompleted)
		if err != nil {
			_ = run.Fail(err)
		}
	}

	summary := run.Finalize(d.now())

	// The store may be what just failed; recording uses a fresh context so an
	// interrupted run is still reported.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	d.record(finishCtx, log, func(r Recorder) error { return r.Finish(finishCtx, summary) })
	if d.Publisher != nil {
		if perr := d.Publisher.Publish(finishCtx, summary); perr != nil {
			log.Warn("Failed to publish run report", zap.Error(perr))
		}
	}

	if summary.DryRun {
		for _, c := range summary.Changes {
			log.Info("Planned change", zap.String("key", c.Key), zap.String("action", c.Action), zap.String("detail", c.Detail))
		}
		if summary.ChangesDropped > 0 {
			log.Info("Planned changes not listed", zap.Int("changes_dropped", summary.ChangesDropped))
		}
	}

	if summary.Clean() {
		log.Info("Run finished", summary.Fields()...)
	} else {
		log.Warn("Run finished with problems", summary.Fields()...)
	}
	return summary, err
}

func (d *Driver) execute(ctx context.Context, log *zap.Logger, run *Run, adapter Adapter) error {
	if err := run.Transition(adapter.Mode().scanState()); err != nil {
		return err
	}
	info := RunInfo{ID: run.ID(), Mode: run.Mode(), DryRun: run.DryRun()}
	err := Retry(ctx, d.cfg, func(ctx context.Context) error {
		return adapter.Prepare(ctx, info)
	})
	if err != nil {
		return err
	}

	if err := run.Transition(adapter.Mode().workState()); err != nil {
		return err
	}
	if err := d.process(ctx, log, run, adapter); err != nil {
		return err
	}

	if err := run.Transition(StateVerifying); err != nil {
		return err
	}
	var unresolved []Unresolved
	err = Retry(ctx, d.cfg, func(ctx context.Context) error {
		var verr error
		unresolved, verr = adapter.Verify(ctx, run.DryRun())
		return verr
	})
	if err != nil {
		return err
	}
	for _, u := range unresolved {
		log.Warn("Unresolved after run", zap.String("key", u.Key), zap.Strings("violations", u.Violations))
	}
	return run.AddUnresolved(unresolved...)
}

// process streams units from Scan into a bounded worker group.
func (d *Driver) process(ctx context.Context, log *zap.Logger, run *Run, adapter Adapter) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())

	scanErr := adapter.Scan(gctx, func(unit Unit) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			// Another worker may have aborted the run while this one waited for a slot.
			if gctx.Err() != nil {
				return nil
			}
			return d.apply(gctx, log, run, adapter, unit)
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if scanErr != nil {
		if Fatal(scanErr) || errors.Is(scanErr, context.Canceled) {
			return scanErr
		}
		return fmt.Errorf("scan failed: %w", scanErr)
	}
	return nil
}

// apply handles one unit. It only returns an error when the whole run must stop.
func (d *Driver) apply(ctx context.Context, log *zap.Logger, run *Run, adapter Adapter, unit Unit) error {
	var outcome Outcome
	err := Retry(ctx, d.cfg, func(ctx context.Context) error {
		var aerr error
		outcome, aerr = adapter.Apply(ctx, unit, run.DryRun())
		return aerr
	})

	switch {
	case err == nil:
		for _, f := range outcome.Failures {
			log.Warn("Record failed", zap.String("key", f.Key), zap.String("error", f.Error))
		}
		return run.Record(outcome)
	case Fatal(err):
		log.Error("Aborting run", zap.String("key", unit.Key()), zap.Error(err))
		return err
	}

	if reason, ok := SkipReason(err); ok {
		log.Debug("Unit skipped", zap.String("key", unit.Key()), zap.String("reason", reason))
		return run.RecordSkip(reason)
	}

	log.Warn("Unit failed", zap.String("key", unit.Key()), zap.Error(err))
	return run.RecordPartial(outcome, unit.Key(), err)
}

func (d *Driver) record(ctx context.Context, log *zap.Logger, fn func(Recorder) error) {
	if d.Recorder == nil || d.cfg.DryRun || !d.cfg.RecordRuns {
		return
	}
	if err := fn(d.Recorder); err != nil {
		log.Warn("Failed to record run", zap.Error(err))
	}
}

func (d *Driver) workers() int {
	if d.cfg.Workers < 1 {
		return 1
	}
	return d.cfg.Workers
}
