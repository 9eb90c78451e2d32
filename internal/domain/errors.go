package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals input rejected before any network call.
	ErrValidation = errors.New("validation failed")
	// ErrTransport signals a network failure or a non-2xx response.
	ErrTransport = errors.New("transport error")
	// ErrParse signals a malformed stream record.
	ErrParse = errors.New("malformed record")
	// ErrTelemetry signals a failed best-effort telemetry call.
	ErrTelemetry = errors.New("telemetry error")
	// ErrRollback signals an optimistic update that was reverted.
	ErrRollback = errors.New("optimistic update rolled back")
	// ErrAbandoned signals a result for a session that is no longer active.
	ErrAbandoned = errors.New("session abandoned")
	// ErrAdminAccessDenied signals a missing admin capability.
	ErrAdminAccessDenied = errors.New("admin access denied")
	// ErrCorrectionProvider signals a failed query correction call.
	ErrCorrectionProvider = errors.New("correction provider error")
	// ErrNoCorrection signals that "search instead" is not available for a session.
	ErrNoCorrection = errors.New("no corrected query to search instead")
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransportError wraps a failed request. StatusCode is 0 for network failures.
type TransportError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + ErrTransport.Error()
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrTransport for every transport error, and ErrNotFound for 404s.
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	return target == ErrNotFound && e.StatusCode == 404
}

// ParseError is a soft, per-line decoding failure.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d: %v", ErrParse.Error(), e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// TelemetryError wraps a failed duration recording. Never surfaced to users.
type TelemetryError struct {
	SearchID string
	Err      error
}

func (e *TelemetryError) Error() string {
	return fmt.Sprintf("%s: search %s: %v", ErrTelemetry.Error(), e.SearchID, e.Err)
}

func (e *TelemetryError) Unwrap() error { return e.Err }

// Is matches ErrTelemetry.
func (e *TelemetryError) Is(target error) bool { return target == ErrTelemetry }

// MutationRollbackError reports a failed persistence call after an optimistic update.
// Reverted is false when a later trigger had already superseded the failed one.
type MutationRollbackError struct {
	Mutation string
	Reverted bool
	Err      error
}

func (e *MutationRollbackError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Mutation, ErrRollback.Error(), e.Err)
}

func (e *MutationRollbackError) Unwrap() error { return e.Err }

// Is matches ErrRollback.
func (e *MutationRollbackError) Is(target error) bool { return target == ErrRollback }
