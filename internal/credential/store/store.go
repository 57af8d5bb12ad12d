// Package store persists scheme credentials. Implementations return
// sentinel errors for infrastructure facts; the service translates them into
// coded domain errors.
package store

import (
	"context"

	"depositgate/internal/credential/models"
	id "depositgate/pkg/domain"
)

// Store is the credential persistence contract. The default-flag swap in
// Create and SetDefault must be atomic per owner: at no observable point may
// two credentials for one owner both carry the default flag.
type Store interface {
	// Create inserts a credential. When cred.IsDefault is set, any prior
	// default for the owner is cleared in the same transaction.
	Create(ctx context.Context, cred *models.SchemeCredential) error

	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.SchemeCredential, error)

	// ListByOwner returns the owner's credentials, newest first.
	ListByOwner(ctx context.Context, owner id.UserID) ([]*models.SchemeCredential, error)

	// FindDefault returns the owner's default credential, or
	// sentinel.ErrNotFound when none is flagged.
	FindDefault(ctx context.Context, owner id.UserID) (*models.SchemeCredential, error)

	// SetDefault atomically moves the default flag to the given credential.
	// Returns sentinel.ErrNotFound when the credential does not exist or
	// belongs to a different owner.
	SetDefault(ctx context.Context, owner id.UserID, credentialID id.CredentialID) error

	// Update persists verification stamps.
	Update(ctx context.Context, cred *models.SchemeCredential) error

	Delete(ctx context.Context, credentialID id.CredentialID) error
}
