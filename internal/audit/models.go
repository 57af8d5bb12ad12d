// Package audit records the actions that matter for compliance review:
// credential lifecycle and every registration outcome.
package audit

import "time"

// Action names what happened. The set is closed so downstream consumers can
// switch on it.
type Action string

const (
	ActionCredentialAdded    Action = "credential_added"
	ActionCredentialDeleted  Action = "credential_deleted"
	ActionCredentialVerified Action = "credential_verified"

	ActionRegistrationSubmitted Action = "registration_submitted"
	ActionRegistrationSucceeded Action = "registration_succeeded"
	ActionRegistrationFailed    Action = "registration_failed"
	ActionRegistrationRetried   Action = "registration_retried"
	ActionRegistrationExpired   Action = "registration_expired"
	ActionRegistrationRenewed   Action = "registration_renewed"
	ActionRegistrationReleased  Action = "registration_released"

	ActionPrescribedInfoGenerated Action = "prescribed_info_generated"
)

// Event is emitted from domain logic to capture key actions. IDs are plain
// strings so the event marshals cleanly for any sink. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	UserID         string    `json:"user_id"`
	Action         Action    `json:"action"`
	RegistrationID string    `json:"registration_id,omitempty"`
	CredentialID   string    `json:"credential_id,omitempty"`
	TenancyID      string    `json:"tenancy_id,omitempty"`
	Scheme         string    `json:"scheme,omitempty"`
	Detail         string    `json:"detail,omitempty"`
}
