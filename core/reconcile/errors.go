package reconcile

import (
	"context"
	"errors"
	"fmt"

	"commerce-reconciler/core/database"
)

var (
	// ErrSourceUnavailable means the source store cannot be reached. The run aborts before any write.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMappingNotFound means a source row has no internal identity. The row is skipped.
	ErrMappingNotFound = errors.New("mapping not found")
	// ErrUnknownCurrency means no precision is known for a currency. Fatal for the whole run.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrTransient marks infrastructure failures that are retried with backoff.
	ErrTransient = errors.New("transient infrastructure error")
	// ErrRetriesExhausted wraps a transient error that kept failing past the retry budget.
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrConstraintViolation is a per-unit failure; the run continues.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrInvariantUnresolved is reported when violations remain after repair.
	ErrInvariantUnresolved = errors.New("invariant unresolved")
	// ErrRunFinalized is returned when a finished run is mutated.
	ErrRunFinalized = errors.New("run already finalized")
	// ErrInvalidTransition is returned for a state change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid run state transition")
)

// SkipError marks a unit that was intentionally not applied.
type SkipError struct {
	Reason string
	Err    error
}

func (e *SkipError) Error() string {
	if e.Err == nil {
		return "skipped: " + e.Reason
	}
	return fmt.Sprintf("skipped (%s): %v", e.Reason, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

// Skip wraps err as a skip with the given reason.
func Skip(reason string, err error) error {
	return &SkipError{Reason: reason, Err: err}
}

// SkipReason returns the skip reason carried by err, if any.
func SkipReason(err error) (string, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip.Reason, true
	}
	return "", false
}

// Fatal reports whether err makes every further write of the run unsafe.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnknownCurrency) ||
		errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrRetriesExhausted) ||
		errors.Is(err, context.Canceled)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := SkipReason(err); ok {
		return false
	}
	if errors.Is(err, ErrUnknownCurrency) || errors.Is(err, ErrConstraintViolation) || errors.Is(err, ErrRetriesExhausted) {
		return false
	}
	return errors.Is(err, ErrTransient) || database.IsTransient(err)
}
