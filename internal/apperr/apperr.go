// Package apperr defines the error taxonomy shared by services and handlers.
// Every core operation surfaces exactly one of these to its caller; nothing
// here is fatal to the process.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth boundary. Unauthenticated (no identity) and
// forbidden (identity present, capability denied) must stay distinguishable.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
)

// ValidationError reports malformed input with field-level detail.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a single field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidStateTransitionError reports a decide() call against a request that
// already left the pending state.
type InvalidStateTransitionError struct {
	Current string
	Target  string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot transition request from %q to %q", e.Current, e.Target)
}

// AuthError reports a credential or token failure from the auth flow.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }

// Auth builds an AuthError.
func Auth(reason string) *AuthError { return &AuthError{Reason: reason} }

// StoreUnavailableError wraps a data-store or driver failure. Transient from
// the caller's perspective; the service never retries internally.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("data store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// StoreUnavailable wraps err as a StoreUnavailableError. Nil stays nil.
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return &StoreUnavailableError{Err: err}
}
