// Package store persists registrations and their transition history.
// Implementations return sentinel errors for infrastructure facts; the
// engine translates them into coded domain errors.
package store

import (
	"context"

	"depositgate/internal/registration/models"
	id "depositgate/pkg/domain"
)

// Store is the registration persistence contract.
//
// The per-tenancy uniqueness rule lives here: at most one non-terminal
// registration may exist per tenancy, enforced atomically by Create. All
// status changes go through Execute, which holds the row lock (mutex or
// FOR UPDATE) across both validation and mutation and writes a transition
// history row in the same unit of work whenever the status changed.
type Store interface {
	// Create inserts a registration. Returns sentinel.ErrConflict when the
	// tenancy already has a non-terminal registration.
	Create(ctx context.Context, reg *models.Registration) error

	FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)

	// FindCurrentByTenancy returns the tenancy's non-terminal registration,
	// or sentinel.ErrNotFound when every registration is terminal or none
	// exists.
	FindCurrentByTenancy(ctx context.Context, tenancyID id.TenancyID) (*models.Registration, error)

	// ListByOwner returns the owner's registrations, newest first.
	ListByOwner(ctx context.Context, owner id.UserID) ([]*models.Registration, error)

	// Execute atomically loads the registration, runs validate, and if it
	// returns nil runs mutate and persists the result. When mutate changed
	// the status, a transition row tagged with trigger is recorded in the
	// same unit of work. The returned registration reflects the mutation.
	Execute(
		ctx context.Context,
		registrationID id.RegistrationID,
		trigger string,
		validate func(*models.Registration) error,
		mutate func(*models.Registration),
	) (*models.Registration, error)

	// History returns the registration's transitions, oldest first.
	History(ctx context.Context, registrationID id.RegistrationID) ([]*models.Transition, error)

	// HasActiveAttempt reports whether any pending or in_progress
	// registration references the credential.
	HasActiveAttempt(ctx context.Context, credentialID id.CredentialID) (bool, error)
}
