package scheme

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for scheme and CRM calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the remote took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorAuthentication indicates the credential was rejected.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorRejected indicates the scheme refused the registration itself
	// (invalid deposit data, duplicate protection, policy refusal).
	ErrorRejected ErrorCategory = "rejected"

	// ErrorBadResponse indicates the remote returned something we could not
	// parse against its documented contract.
	ErrorBadResponse ErrorCategory = "bad_response"

	// ErrorOutage indicates the remote is unreachable or returning 5xx.
	ErrorOutage ErrorCategory = "outage"
)

// AdapterError wraps a scheme or CRM failure with normalized categorization.
// The engine converts these into Registration.status = failed; they never
// propagate raw past the engine boundary.
type AdapterError struct {
	Category   ErrorCategory
	Scheme     string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *AdapterError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("scheme %s [%s]: %s: %v", e.Scheme, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("scheme %s [%s]: %s", e.Scheme, e.Category, e.Message)
}

func (e *AdapterError) Unwrap() error {
	return e.Underlying
}

// NewAdapterError creates a normalized adapter error. Timeouts and outages
// are worth retrying; rejections and auth failures need operator action
// first, though the engine still allows an explicit retry after any failure.
func NewAdapterError(category ErrorCategory, schemeName, message string, underlying error) *AdapterError {
	return &AdapterError{
		Category:   category,
		Scheme:     schemeName,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorOutage,
	}
}

// IsAdapterError reports whether err is (or wraps) an AdapterError.
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}

// CategoryOf extracts the category, defaulting to outage for unclassified
// failures so they stay retryable.
func CategoryOf(err error) ErrorCategory {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ErrorOutage
}

// MessageOf returns the adapter's human-readable message, or err.Error()
// for unclassified failures. This is what gets persisted verbatim as a
// failed registration's error message.
func MessageOf(err error) string {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
