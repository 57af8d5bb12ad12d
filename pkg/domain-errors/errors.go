// Package errors provides coded domain errors shared by services and the
// HTTP transport. Stores return sentinel errors (pkg/platform/sentinel);
// services translate them into coded errors here so handlers can map a code
// to an HTTP status without inspecting error strings.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and assertions.
type Code string

const (
	// CodeValidation covers malformed or missing caller input. No state is
	// mutated when a validation error is returned.
	CodeValidation Code = "validation"

	// CodeInvalidInput is a narrower validation failure raised while parsing
	// domain primitives (ids, enums) at trust boundaries.
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest covers transport-level request problems (unreadable
	// body, wrong content type).
	CodeBadRequest Code = "bad_request"

	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"

	// CodeConflict signals an operation that would violate an invariant,
	// e.g. retrying a registration that is not failed.
	CodeConflict Code = "conflict"

	// CodePreconditionFailed signals an operation requested against a record
	// whose status does not permit it, e.g. document generation before the
	// registration succeeded.
	CodePreconditionFailed Code = "precondition_failed"

	CodeTimeout  Code = "timeout"
	CodeInternal Code = "internal"

	// CodeInvariantViolation is raised by model constructors and transition
	// guards. Services usually translate it to CodeValidation or
	// CodeConflict before it reaches a caller.
	CodeInvariantViolation Code = "invariant_violation"
)

// Error is a coded domain error. It wraps an optional underlying cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Is is an alias for HasCode kept for call-site readability in tests.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// MessageOf returns the domain message of err, or err.Error() when err is
// not a coded error. Used where a human-readable message must be persisted.
func MessageOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// CodeOf returns the code of err, or CodeInternal when err is not a coded
// error.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status the transport should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
