package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"depositgate/internal/credential/models"
	id "depositgate/pkg/domain"
	"depositgate/pkg/platform/sentinel"
)

// InMemory keeps credentials in a mutex-guarded map. The single mutex gives
// the same per-owner atomicity for the default-flag swap that the postgres
// store gets from a transaction.
type InMemory struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]*models.SchemeCredential
}

func NewInMemory() *InMemory {
	return &InMemory{credentials: make(map[id.CredentialID]*models.SchemeCredential)}
}

func (s *InMemory) Create(_ context.Context, cred *models.SchemeCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[cred.ID]; exists {
		return fmt.Errorf("credential %s: %w", cred.ID, sentinel.ErrConflict)
	}
	if cred.IsDefault {
		s.clearDefaultLocked(cred.OwnerUserID)
	}
	copied := *cred
	s.credentials[cred.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, credentialID id.CredentialID) (*models.SchemeCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[credentialID]
	if !ok {
		return nil, fmt.Errorf("credential %s: %w", credentialID, sentinel.ErrNotFound)
	}
	copied := *cred
	return &copied, nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner id.UserID) ([]*models.SchemeCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.SchemeCredential
	for _, cred := range s.credentials {
		if cred.OwnerUserID == owner {
			copied := *cred
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemory) FindDefault(_ context.Context, owner id.UserID) (*models.SchemeCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, cred := range s.credentials {
		if cred.OwnerUserID == owner && cred.IsDefault {
			copied := *cred
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("default credential for owner %s: %w", owner, sentinel.ErrNotFound)
}

func (s *InMemory) SetDefault(_ context.Context, owner id.UserID, credentialID id.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials[credentialID]
	if !ok || cred.OwnerUserID != owner {
		return fmt.Errorf("credential %s: %w", credentialID, sentinel.ErrNotFound)
	}
	s.clearDefaultLocked(owner)
	cred.IsDefault = true
	return nil
}

func (s *InMemory) Update(_ context.Context, cred *models.SchemeCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[cred.ID]; !ok {
		return fmt.Errorf("credential %s: %w", cred.ID, sentinel.ErrNotFound)
	}
	copied := *cred
	s.credentials[cred.ID] = &copied
	return nil
}

func (s *InMemory) Delete(_ context.Context, credentialID id.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[credentialID]; !ok {
		return fmt.Errorf("credential %s: %w", credentialID, sentinel.ErrNotFound)
	}
	delete(s.credentials, credentialID)
	return nil
}

func (s *InMemory) clearDefaultLocked(owner id.UserID) {
	for _, cred := range s.credentials {
		if cred.OwnerUserID == owner && cred.IsDefault {
			cred.IsDefault = false
		}
	}
}
