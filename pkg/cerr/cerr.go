// Package cerr implements the coordinator's error taxonomy: transient I/O,
// capacity exhaustion, idempotency short-circuits, validation, invariant
// breaches, and forbidden state-machine transitions. Every component wraps
// the error it returns with fmt.Errorf("...: %w", err), exactly as the rest
// of the tree does; this package only adds the classification needed so
// callers (bulk operations, recovery loops, an eventual HTTP surface) can
// decide whether to retry, record-and-continue, or abort.
package cerr

import (
	"errors"
	"fmt"
)

// Code is a short machine-readable error classification.
type Code string

const (
	CodeTransient         Code = "transient"
	CodeCapacityExhausted Code = "capacity_exhausted"
	CodeIdempotent        Code = "idempotent"
	CodeValidation        Code = "validation"
	CodeInvariantBreach   Code = "invariant_breach"
	CodeForbidden         Code = "forbidden"
)

// Error is a structured error carrying a Code and optional Details, per the
// "{ code, message, details? }" shape an eventual HTTP-facing surface would
// serialize (spec §7). It always wraps an underlying cause.
type Error struct {
	code    Code
	message string
	details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the error's classification.
func (e *Error) Code() Code { return e.code }

// Details returns ancillary structured context, possibly nil.
func (e *Error) Details() map[string]any { return e.details }

func newErr(code Code, msg string, cause error, details map[string]any) *Error {
	return &Error{code: code, message: msg, cause: cause, details: details}
}

// Transient marks a retryable I/O failure (channel disconnect, timeout,
// object-storage 5xx).
func Transient(msg string, cause error) error {
	return newErr(CodeTransient, msg, cause, nil)
}

// CapacityExhausted marks "no placement target found". Not retried
// synchronously; the caller is expected to record it (e.g. recovery's
// `waiting`) and retry later via an explicit trigger.
func CapacityExhausted(msg string, details map[string]any) error {
	return newErr(CodeCapacityExhausted, msg, nil, details)
}

// Validation marks a rejected request: bulk size cap exceeded, malformed
// tenant id, and similar caller-fixable errors.
func Validation(msg string) error {
	return newErr(CodeValidation, msg, nil, nil)
}

// InvariantBreach marks a fatal condition for the current operation only:
// no suitable node existed when one was assumed, target == source, etc.
func InvariantBreach(msg string) error {
	return newErr(CodeInvariantBreach, msg, nil, nil)
}

// Forbidden marks a state-machine transition that is not permitted from the
// entity's current state (e.g. suspending an already-destroyed instance).
// Callers inside a bulk or recovery loop record this as a per-item failure
// and continue; it never aborts the whole operation.
func Forbidden(msg string) error {
	return newErr(CodeForbidden, msg, nil, nil)
}

// CodeOf extracts the Code from err if it (or something it wraps) is a
// *Error; ok is false for plain errors.
func CodeOf(err error) (code Code, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return "", false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
