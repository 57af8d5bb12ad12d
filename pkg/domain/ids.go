// Package domain holds shared domain primitives: typed identifiers and the
// closed scheme/CRM enumerations. IDs are distinct uuid.UUID newtypes so the
// compiler rejects cross-type assignment (a CredentialID can never be passed
// where a TenancyID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "depositgate/pkg/domain-errors"
)

type (
	// UserID identifies the landlord or agent who owns credentials and
	// registrations. Supplied by the auth layer, never minted here.
	UserID uuid.UUID

	// CredentialID identifies a stored scheme credential.
	CredentialID uuid.UUID

	// RegistrationID identifies a deposit registration record.
	RegistrationID uuid.UUID

	// TenancyID identifies a tenancy in the external tenancy read API.
	TenancyID uuid.UUID

	// PropertyID identifies a property in the external property read API.
	PropertyID uuid.UUID
)

func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id CredentialID) String() string   { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id TenancyID) String() string      { return uuid.UUID(id).String() }
func (id PropertyID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TenancyID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PropertyID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders IDs as canonical UUID strings in JSON payloads.
func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id CredentialID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id RegistrationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id TenancyID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id PropertyID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CredentialID) UnmarshalText(text []byte) error {
	parsed, err := ParseCredentialID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RegistrationID) UnmarshalText(text []byte) error {
	parsed, err := ParseRegistrationID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TenancyID) UnmarshalText(text []byte) error {
	parsed, err := ParseTenancyID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PropertyID) UnmarshalText(text []byte) error {
	parsed, err := ParsePropertyID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", kind)
	}
	return parsed, nil
}

func ParseUserID(s string) (UserID, error) {
	parsed, err := parseUUID(s, "user id")
	return UserID(parsed), err
}

func ParseCredentialID(s string) (CredentialID, error) {
	parsed, err := parseUUID(s, "credential id")
	return CredentialID(parsed), err
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	parsed, err := parseUUID(s, "registration id")
	return RegistrationID(parsed), err
}

func ParseTenancyID(s string) (TenancyID, error) {
	parsed, err := parseUUID(s, "tenancy id")
	return TenancyID(parsed), err
}

func ParsePropertyID(s string) (PropertyID, error) {
	parsed, err := parseUUID(s, "property id")
	return PropertyID(parsed), err
}
