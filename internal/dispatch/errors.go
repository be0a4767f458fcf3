// Package dispatch implements the daily dispatch scheduler: the schedule
// conflict guard, candidate ranking and trip synthesis.
package dispatch

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError reports a double-booking attempt. Resource is "vehicle" or
// "driver"; ScheduleID is the existing schedule holding the claim, so the
// caller can re-rank and retry without guessing.
type ConflictError struct {
	Resource   string
	ResourceID string
	ScheduleID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s is already assigned on this date by schedule %s",
		e.Resource, e.ResourceID, e.ScheduleID)
}

// NotFoundError reports an unknown schedule, route, vehicle or driver id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// TransientStoreError wraps storage contention or timeouts. It precedes any
// partial commit, so callers may retry with backoff.
type TransientStoreError struct {
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error: %v", e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransient reports whether err is safe to retry with backoff.
func IsTransient(err error) bool {
	var te *TransientStoreError
	return errors.As(err, &te)
}
