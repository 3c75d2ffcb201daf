/*
errors.go - Error kinds surfaced by payroll and leave operations

PURPOSE:
  All error types in one place. Every operation reports failures as one of
  these kinds so callers can branch with errors.Is without parsing text.

ERROR KINDS:
  ErrNotFound          employee, request, plan, rate or selection missing
  ErrPermissionDenied  role or ownership check failed
  ErrValidationFailed  malformed input, bad dates, request already actioned
  ErrOverlap           leave interval collides with an approved one
  ErrInsufficientBalance leave balance too low
  ErrDuplicatePeriod   payroll record already exists for that span
  ErrPersistenceFailed record store read or write failed

USAGE:
  if errors.Is(err, hr.ErrInsufficientBalance) {
      var ib *hr.InsufficientBalanceError
      errors.As(err, &ib)
  }

SEE ALSO:
  - api/errors.go: HTTP status mapping
*/
package hr

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrValidationFailed    = errors.New("validation failed")
	ErrOverlap             = errors.New("overlaps approved leave")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrDuplicatePeriod     = errors.New("payroll record already exists for period")
	ErrPersistenceFailed   = errors.New("persistence failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the kind and id of the missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Kind, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NotFound(kind string, id any) error {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

type PermissionError struct {
	Actor     string
	Role      Role
	Operation string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s (%s) may not %s", e.Actor, e.Role, e.Operation)
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }

// OverlapError identifies the approved request the new interval collides with.
type OverlapError struct {
	EmployeeID EmployeeID
	Requested  Period
	Conflict   RequestID
	Existing   Period
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("leave %s for %s overlaps approved request %s %s",
		e.Requested, e.EmployeeID, e.Conflict, e.Existing)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Available  int
	Requested  int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient leave balance for %s: available %d, requested %d",
		e.EmployeeID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

type DuplicatePeriodError struct {
	EmployeeID EmployeeID
	Period     Period
}

func (e *DuplicatePeriodError) Error() string {
	return fmt.Sprintf("payroll record for %s already exists for %s", e.EmployeeID, e.Period)
}

func (e *DuplicatePeriodError) Unwrap() error { return ErrDuplicatePeriod }

// PersistenceError wraps a record store failure. It matches both
// ErrPersistenceFailed and the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistenceFailed, e.Err} }

// Persistence wraps err as a PersistenceError unless it already carries one
// of the business error kinds, which pass through untouched.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || IsNotFound(err) || errors.Is(err, ErrPersistenceFailed) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClientError returns true if the error is due to the caller's input or rights.
func IsClientError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDuplicatePeriod)
}
