package reconcile

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mode selects what a run reconciles.
type Mode string

const (
	// ModePriceSync copies external prices into the target price records.
	ModePriceSync Mode = "price-sync"
	// ModeOrderRepair restores fulfillment invariants on orders.
	ModeOrderRepair Mode = "order-repair"
)

// ParseMode validates a mode name given on the command line.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePriceSync, ModeOrderRepair:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (expected %s or %s)", s, ModePriceSync, ModeOrderRepair)
}

// State is a step of the run lifecycle.
type State string

const (
	StateStarted    State = "started"
	StateExtracting State = "extracting"
	StateChecking   State = "checking"
	StateApplying   State = "applying"
	StateRepairing  State = "repairing"
	StateVerifying  State = "verifying"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

var transitions = map[State][]State{
	StateStarted:    {StateExtracting, StateChecking},
	StateExtracting: {StateApplying},
	StateChecking:   {StateRepairing},
	StateApplying:   {StateVerifying},
	StateRepairing:  {StateVerifying},
	StateVerifying:  {StateCompleted},
}

// scanState and workState are the mode-specific names of the two middle phases.
func (m Mode) scanState() State {
	if m == ModeOrderRepair {
		return StateChecking
	}
	return StateExtracting
}

func (m Mode) workState() State {
	if m == ModeOrderRepair {
		return StateRepairing
	}
	return StateApplying
}

// Counts aggregates per-unit outcomes of a run.
type Counts struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Failure records one unit that could not be applied.
type Failure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// Unresolved records a unit still violating an invariant after the run.
type Unresolved struct {
	Key        string   `json:"key"`
	Violations []string `json:"violations"`
}

// Change describes one write the run performed, or would perform in dry-run.
type Change struct {
	Key    string `json:"key"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
}

// Run is the ReconciliationRun owned by one Driver. It is safe for concurrent
// use by the driver's workers and becomes immutable once finalized.
type Run struct {
	mu sync.Mutex

	id        string
	mode      Mode
	dryRun    bool
	startedAt time.Time

	state       State
	finishedAt  time.Time
	counts      Counts
	skipReasons map[string]int
	failures    []Failure
	unresolved  []Unresolved
	changes     []Change
	maxChanges  int
	droppedChgs int
	lastError   error
	finalized   bool
}

// NewRun creates a run in the Started state.
func NewRun(mode Mode, dryRun bool, now time.Time) *Run {
	return &Run{
		id:          uuid.NewString(),
		mode:        mode,
		dryRun:      dryRun,
		startedAt:   now,
		state:       StateStarted,
		skipReasons: make(map[string]int),
		maxChanges:  -1,
	}
}

func (r *Run) ID() string           { return r.id }
func (r *Run) Mode() Mode           { return r.mode }
func (r *Run) DryRun() bool         { return r.dryRun }
func (r *Run) StartedAt() time.Time { return r.startedAt }

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Counts returns a copy of the current counters.
func (r *Run) Counts() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts
}

// Transition moves the run to next if the lifecycle allows it.
// Any non-terminal state may move to Failed.
func (r *Run) Transition(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return ErrRunFinalized
	}
	if next == StateFailed && !r.state.Terminal() {
		r.state = next
		return nil
	}
	for _, allowed := range transitions[r.state] {
		if allowed == next {
			r.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, next)
}

// Fail records err as the last error and moves the run to Failed.
func (r *Run) Fail(err error) error {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return ErrRunFinalized
	}
	r.lastError = err
	r.mu.Unlock()
	return r.Transition(StateFailed)
}

// Record folds the outcome of one processed unit into the counters.
func (r *Run) Record(o Outcome) error {
	return r.mutate(func() {
		r.counts.Processed++
		r.merge(o)
	})
}

// RecordSkip counts one unit skipped as a whole.
func (r *Run) RecordSkip(reason string) error {
	return r.mutate(func() {
		r.counts.Processed++
		r.counts.Skipped++
		r.skipReasons[reason]++
	})
}

// RecordFailure counts one unit that failed as a whole.
func (r *Run) RecordFailure(key string, err error) error {
	return r.RecordPartial(Outcome{}, key, err)
}

// RecordPartial counts one unit that failed after some of its writes landed.
// The outcome's counts and changes are kept alongside the failure.
func (r *Run) RecordPartial(o Outcome, key string, err error) error {
	return r.mutate(func() {
		r.counts.Processed++
		r.merge(o)
		r.counts.Failed++
		r.failures = append(r.failures, Failure{Key: key, Error: err.Error()})
	})
}

// AddUnresolved lists units that still violate an invariant.
func (r *Run) AddUnresolved(items ...Unresolved) error {
	return r.mutate(func() {
		r.unresolved = append(r.unresolved, items...)
	})
}

func (r *Run) merge(o Outcome) {
	r.counts.Created += o.Created
	r.counts.Updated += o.Updated
	r.counts.Unchanged += o.Unchanged
	for reason, n := range o.Skipped {
		r.counts.Skipped += n
		r.skipReasons[reason] += n
	}
	r.counts.Failed += len(o.Failures)
	r.failures = append(r.failures, o.Failures...)
	r.addChanges(o.Changes)
}

func (r *Run) addChanges(changes []Change) {
	for _, c := range changes {
		if r.maxChanges >= 0 && len(r.changes) >= r.maxChanges {
			r.droppedChgs++
			continue
		}
		r.changes = append(r.changes, c)
	}
}

func (r *Run) mutate(fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return ErrRunFinalized
	}
	fn()
	return nil
}

// Finalize freezes the run and returns its summary. Calling it again returns
// the same summary.
func (r *Run) Finalize(now time.Time) *Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finalized {
		r.finalized = true
		r.finishedAt = now
	}

	s := &Summary{
		RunID:          r.id,
		Mode:           r.mode,
		DryRun:         r.dryRun,
		State:          r.state,
		StartedAt:      r.startedAt,
		FinishedAt:     r.finishedAt,
		Duration:       r.finishedAt.Sub(r.startedAt).String(),
		Counts:         r.counts,
		SkipReasons:    make(map[string]int, len(r.skipReasons)),
		Failures:       append([]Failure(nil), r.failures...),
		Unresolved:     append([]Unresolved(nil), r.unresolved...),
		Changes:        append([]Change(nil), r.changes...),
		ChangesDropped: r.droppedChgs,
	}
	for k, v := range r.skipReasons {
		s.SkipReasons[k] = v
	}
	if r.lastError != nil {
		s.Error = r.lastError.Error()
	}
	return s
}
