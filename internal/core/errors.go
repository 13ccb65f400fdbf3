package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNotFound indicates a referenced record does not exist within the
	// caller's organization scope.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the record exists but belongs to a different
	// organization or user.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed or out-of-range input. It accumulates
// every violated field, not just the first, so callers can surface a
// complete field-level detail map.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty validation error ready to collect
// field violations.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a violation for the named field. The first message per field
// wins.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// Addf records a formatted violation for the named field.
func (e *ValidationError) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

// OrNil returns the error if any field was violated, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e.Fields[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports a uniqueness violation or an attempt to delete
// master data still referenced by historical transactions.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Conflictf builds a ConflictError with a formatted message.
func Conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// StoreUnavailableError wraps a failure of the underlying database. The
// original error is retained for server-side logging; HTTP responses carry
// only a generic message.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return "store unavailable: " + e.Err.Error()
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
