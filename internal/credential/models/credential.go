package models

import (
	"encoding/json"
	"fmt"
	"time"

	id "depositgate/pkg/domain"
	dErrors "depositgate/pkg/domain-errors"
)

// SchemeCredential is a landlord's or agent's authentication material for one
// deposit protection scheme. The secret is stored sealed; plaintext material
// exists only transiently inside a service call.
//
// Invariants:
//   - either Username+password or APIKey+secret material is present
//   - at most one credential per owner carries IsDefault
//   - deleting a credential never touches registrations (they hold a
//     snapshot of scheme and protection type, not a live reference)
type SchemeCredential struct {
	ID             id.CredentialID   `json:"id"`
	OwnerUserID    id.UserID         `json:"owner_user_id"`
	Scheme         id.SchemeName     `json:"scheme"`
	ProtectionType id.ProtectionType `json:"protection_type"`
	Username       string            `json:"username,omitempty"`
	AccountNumber  string            `json:"account_number,omitempty"`

	// EncryptedSecret is the sealed SecretMaterial blob.
	EncryptedSecret string `json:"-"`

	IsDefault      bool       `json:"is_default"`
	IsVerified     bool       `json:"is_verified"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// SecretMaterial is the plaintext secret payload sealed into
// EncryptedSecret. Exactly one of the two shapes is populated.
type SecretMaterial struct {
	Password  string `json:"password,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	APISecret string `json:"api_secret,omitempty"`
}

// Validate enforces the credential-shape invariant: a password credential
// needs a username, an API credential needs both key and secret.
func (m SecretMaterial) Validate(username string) error {
	hasPassword := m.Password != ""
	hasAPIKey := m.APIKey != "" || m.APISecret != ""

	switch {
	case hasPassword && hasAPIKey:
		return dErrors.New(dErrors.CodeValidation, "provide either a password or an api key pair, not both")
	case hasPassword:
		if username == "" {
			return dErrors.New(dErrors.CodeValidation, "username is required with a password")
		}
		return nil
	case hasAPIKey:
		if m.APIKey == "" || m.APISecret == "" {
			return dErrors.New(dErrors.CodeValidation, "api key and api secret are both required")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "credential secret material is required")
	}
}

// Marshal encodes the material for sealing.
func (m SecretMaterial) Marshal() ([]byte, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode secret material: %w", err)
	}
	return encoded, nil
}

// UnmarshalSecretMaterial decodes a previously sealed payload.
func UnmarshalSecretMaterial(data []byte) (SecretMaterial, error) {
	var m SecretMaterial
	if err := json.Unmarshal(data, &m); err != nil {
		return SecretMaterial{}, fmt.Errorf("decode secret material: %w", err)
	}
	return m, nil
}

// ApplyVerified stamps a successful verification.
func (c *SchemeCredential) ApplyVerified(now time.Time) {
	c.IsVerified = true
	verifiedAt := now
	c.LastVerifiedAt = &verifiedAt
	c.UpdatedAt = now
}

// NewSchemeCredential validates and constructs a credential. The caller
// seals the secret material separately and sets EncryptedSecret before the
// record reaches a store.
func NewSchemeCredential(
	credentialID id.CredentialID,
	owner id.UserID,
	schemeName id.SchemeName,
	protection id.ProtectionType,
	username, accountNumber string,
	material SecretMaterial,
	isDefault bool,
	now time.Time,
) (*SchemeCredential, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner user id is required")
	}
	if err := material.Validate(username); err != nil {
		return nil, err
	}
	return &SchemeCredential{
		ID:             credentialID,
		OwnerUserID:    owner,
		Scheme:         schemeName,
		ProtectionType: protection,
		Username:       username,
		AccountNumber:  accountNumber,
		IsDefault:      isDefault,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
