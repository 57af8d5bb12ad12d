package models

import (
	"time"

	id "depositgate/pkg/domain"
	dErrors "depositgate/pkg/domain-errors"
)

// Status is the registration lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusRegistered Status = "registered"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
	StatusRenewed    Status = "renewed"
	StatusReleased   Status = "released"
)

// allowedTransitions is the closed transition table. Renewed behaves like
// registered for everything downstream of registration.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusRegistered, StatusFailed},
	StatusFailed:     {StatusInProgress},
	StatusRegistered: {StatusExpired, StatusReleased},
	StatusRenewed:    {StatusExpired, StatusReleased},
	StatusExpired:    {StatusRenewed},
	StatusReleased:   {},
}

// CanTransitionTo reports whether the transition table allows s -> target.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the registration's life under
// normal operation. A terminal row is historical; a new register() call for
// the tenancy creates a fresh row.
func (s Status) IsTerminal() bool {
	return s == StatusExpired || s == StatusReleased
}

// IsActiveAttempt reports whether an adapter call may be in flight.
func (s Status) IsActiveAttempt() bool {
	return s == StatusPending || s == StatusInProgress
}

// IsProtected reports whether the deposit is currently protected; the
// equivalence class {registered, renewed} for document operations.
func (s Status) IsProtected() bool {
	return s == StatusRegistered || s == StatusRenewed
}

// Mode records which path created the registration.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeAPI    Mode = "api"
	ModeCRM    Mode = "crm"
)

// ParseMode validates a mode string at a trust boundary.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeManual, ModeAPI, ModeCRM:
		return Mode(s), nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "registration mode is required")
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown registration mode: %s", s)
	}
}

// Registration is the single authoritative record of deposit protection for
// a tenancy.
//
// Invariants:
//   - at most one non-terminal registration exists per tenancy
//   - ErrorMessage is non-empty if and only if Status is failed
//   - scheme and protection type are a snapshot taken at creation; deleting
//     the originating credential does not touch the registration
//   - terminal rows are never reopened; a retry reuses the same row only
//     from failed
type Registration struct {
	ID             id.RegistrationID `json:"id"`
	TenancyID      id.TenancyID      `json:"tenancy_id"`
	PropertyID     id.PropertyID     `json:"property_id"`
	OwnerUserID    id.UserID         `json:"owner_user_id"`
	Scheme         id.SchemeName     `json:"scheme"`
	ProtectionType id.ProtectionType `json:"protection_type"`
	Mode           Mode              `json:"mode"`

	// CRMSystem is set only for CRM-mode registrations.
	CRMSystem *id.CRMSystem `json:"crm_system,omitempty"`

	// CredentialID references the credential of the live attempt; nil for
	// manual mode. Informational only, never resolved after the attempt.
	CredentialID *id.CredentialID `json:"credential_id,omitempty"`

	DepositAmountPence int64  `json:"deposit_amount_pence"`
	DepositReferenceID string `json:"deposit_reference_id,omitempty"`
	CertificateURL     string `json:"certificate_url,omitempty"`
	PrescribedInfoURL  string `json:"prescribed_info_url,omitempty"`

	Status       Status     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Transition is one step of the registration's audit history, written in the
// same transaction as the status change it records.
type Transition struct {
	RegistrationID id.RegistrationID `json:"registration_id"`
	FromStatus     Status            `json:"from_status"`
	ToStatus       Status            `json:"to_status"`
	Trigger        string            `json:"trigger"`
	ErrorMessage   string            `json:"error_message,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// NewRegistration constructs a pending registration. The row is created the
// moment an attempt is first issued; there is no draft state.
func NewRegistration(
	registrationID id.RegistrationID,
	tenancyID id.TenancyID,
	propertyID id.PropertyID,
	owner id.UserID,
	schemeName id.SchemeName,
	protection id.ProtectionType,
	mode Mode,
	depositAmountPence int64,
	now time.Time,
) (*Registration, error) {
	if tenancyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "tenancy id is required")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner user id is required")
	}
	if depositAmountPence <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "deposit amount must be positive")
	}
	return &Registration{
		ID:                 registrationID,
		TenancyID:          tenancyID,
		PropertyID:         propertyID,
		OwnerUserID:        owner,
		Scheme:             schemeName,
		ProtectionType:     protection,
		Mode:               mode,
		DepositAmountPence: depositAmountPence,
		Status:             StatusPending,
		RegisteredAt:       now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// CanDispatch checks the pending -> in_progress transition.
func (r *Registration) CanDispatch() error {
	if !r.Status.CanTransitionTo(StatusInProgress) || r.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot dispatch registration in status %s", r.Status)
	}
	return nil
}

// ApplyDispatch marks the attempt as in flight and records which credential
// it uses. Call CanDispatch first.
func (r *Registration) ApplyDispatch(credentialID *id.CredentialID, now time.Time) {
	r.Status = StatusInProgress
	r.CredentialID = credentialID
	r.UpdatedAt = now
}

// CanComplete checks the in_progress -> registered transition.
func (r *Registration) CanComplete() error {
	if !r.Status.CanTransitionTo(StatusRegistered) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot complete registration in status %s", r.Status)
	}
	return nil
}

// ApplyCompleted records a successful submission.
func (r *Registration) ApplyCompleted(depositReferenceID, certificateURL string, expiryDate *time.Time, now time.Time) {
	r.Status = StatusRegistered
	r.DepositReferenceID = depositReferenceID
	r.CertificateURL = certificateURL
	if expiryDate != nil {
		r.ExpiryDate = expiryDate
	}
	r.ErrorMessage = ""
	r.UpdatedAt = now
}

// CanFail checks the in_progress -> failed transition.
func (r *Registration) CanFail() error {
	if !r.Status.CanTransitionTo(StatusFailed) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot fail registration in status %s", r.Status)
	}
	return nil
}

// ApplyFailed stores the adapter's message verbatim.
func (r *Registration) ApplyFailed(message string, now time.Time) {
	r.Status = StatusFailed
	r.ErrorMessage = message
	r.UpdatedAt = now
}

// CanRetry checks that retry is issued from failed; every other status is a
// conflict.
func (r *Registration) CanRetry() error {
	if r.Status != StatusFailed {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "retry is only valid from failed, not %s", r.Status)
	}
	return nil
}

// ApplyRetry re-enters in_progress and clears the error message so the
// message-iff-failed invariant holds mid-attempt.
func (r *Registration) ApplyRetry(credentialID *id.CredentialID, now time.Time) {
	r.Status = StatusInProgress
	if credentialID != nil {
		r.CredentialID = credentialID
	}
	r.ErrorMessage = ""
	r.UpdatedAt = now
}

// CanExpire checks the registered/renewed -> expired transition.
func (r *Registration) CanExpire() error {
	if !r.Status.CanTransitionTo(StatusExpired) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot expire registration in status %s", r.Status)
	}
	return nil
}

func (r *Registration) ApplyExpire(now time.Time) {
	r.Status = StatusExpired
	r.UpdatedAt = now
}

// CanRenew checks the expired -> renewed transition.
func (r *Registration) CanRenew() error {
	if !r.Status.CanTransitionTo(StatusRenewed) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot renew registration in status %s", r.Status)
	}
	return nil
}

// ApplyRenew reactivates protection with a fresh expiry date.
func (r *Registration) ApplyRenew(newExpiry time.Time, now time.Time) {
	r.Status = StatusRenewed
	r.ExpiryDate = &newExpiry
	r.UpdatedAt = now
}

// CanRelease checks the registered/renewed -> released transition.
func (r *Registration) CanRelease() error {
	if !r.Status.CanTransitionTo(StatusReleased) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot release registration in status %s", r.Status)
	}
	return nil
}

func (r *Registration) ApplyRelease(now time.Time) {
	r.Status = StatusReleased
	r.UpdatedAt = now
}

// CanGenerateDocuments gates prescribed information generation on the
// {registered, renewed} equivalence class.
func (r *Registration) CanGenerateDocuments() error {
	if !r.Status.IsProtected() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "documents require a protected deposit, status is %s", r.Status)
	}
	return nil
}

// ApplyPrescribedInfo overwrites the document URL unconditionally;
// regeneration is always safe and does not change status.
func (r *Registration) ApplyPrescribedInfo(url string, now time.Time) {
	r.PrescribedInfoURL = url
	r.UpdatedAt = now
}
