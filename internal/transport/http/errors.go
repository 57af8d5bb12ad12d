package httptransport

import (
	"errors"

	dErrors "depositgate/pkg/domain-errors"
)

func asDomainError(err error, target **dErrors.Error) bool {
	return errors.As(err, target)
}

// isClientError separates 4xx outcomes (logged at warn) from server faults
// (logged at error).
func isClientError(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeTimeout, dErrors.CodeInvariantViolation:
		return false
	default:
		return true
	}
}
