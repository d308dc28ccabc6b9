// Package domainerrors provides coded errors for the approval engine.
//
// Services translate infrastructure sentinels (pkg/platform/sentinel) into
// coded errors at their boundary; httputil maps codes onto HTTP statuses.
// Business outcomes (a rejected decision) are NOT errors — only system
// conditions are.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for boundary translation.
type Code string

const (
	// CodeNotFound — the requested entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidState — the entity is in a terminal or otherwise wrong state
	// for the requested operation.
	CodeInvalidState Code = "invalid_state"
	// CodeConflict — a lost optimistic-concurrency race; the caller should
	// reload and retry rather than report a failure.
	CodeConflict Code = "conflict"
	// CodeBadRequest — the request shape is unusable.
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput — a field failed validation at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeUnauthorized — no acting principal could be established.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvariantViolation — a domain invariant would be broken.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout — the operation was cancelled or timed out before commit.
	CodeTimeout Code = "timeout"
	// CodeInternal — persistence or another dependency failed; nothing was
	// committed.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a safe human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New builds a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. A nil cause
// returns nil so call sites can wrap unconditionally.
func Wrap(cause error, code Code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so nothing leaks as a 200.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}

// MessageOf extracts the safe message from err. Unclassified errors yield an
// empty message; callers must not expose raw error text to users.
func MessageOf(err error) string {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Message
	}
	return ""
}
