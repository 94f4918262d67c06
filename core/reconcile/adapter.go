package reconcile

import "context"

// Unit is one independently committed piece of work: a source row or an order.
type Unit interface {
	Key() string
}

// Outcome is what applying one unit did, or would do in dry-run.
type Outcome struct {
	Created   int
	Updated   int
	Unchanged int
	// Skipped counts sub-records left out of the unit, keyed by reason.
	Skipped  map[string]int
	Failures []Failure
	Changes  []Change
}

// Add merges o2 into o.
func (o *Outcome) Add(o2 Outcome) {
	o.Created += o2.Created
	o.Updated += o2.Updated
	o.Unchanged += o2.Unchanged
	for reason, n := range o2.Skipped {
		o.Skip(reason, n)
	}
	o.Failures = append(o.Failures, o2.Failures...)
	o.Changes = append(o.Changes, o2.Changes...)
}

// Skip counts n sub-records skipped for reason.
func (o *Outcome) Skip(reason string, n int) {
	if n == 0 {
		return
	}
	if o.Skipped == nil {
		o.Skipped = make(map[string]int)
	}
	o.Skipped[reason] += n
}

// RunInfo identifies the run an adapter works for.
type RunInfo struct {
	ID     string
	Mode   Mode
	DryRun bool
}

// Adapter implements one reconciliation mode for the Driver.
//
// The driver calls Prepare once, then Scan, handing every emitted unit to
// Apply (possibly from several goroutines), then Verify once.
type Adapter interface {
	// Mode names the run mode.
	Mode() Mode

	// Prepare loads everything the run must hold constant (snapshots, indices)
	// and checks that the stores are reachable.
	Prepare(ctx context.Context, run RunInfo) error

	// Scan emits the run's units in order. It stops at the first error emit returns.
	Scan(ctx context.Context, emit func(Unit) error) error

	// Apply reconciles one unit inside its own transaction(s). Returning an error
	// produced by Skip counts the unit as skipped; a Fatal error aborts the run.
	Apply(ctx context.Context, unit Unit, dryRun bool) (Outcome, error)

	// Verify confirms convergence after all units were applied and returns
	// whatever is still outstanding.
	Verify(ctx context.Context, dryRun bool) ([]Unresolved, error)
}
