package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"depositgate/internal/registration/models"
	id "depositgate/pkg/domain"
	"depositgate/pkg/platform/sentinel"
	"depositgate/pkg/requestcontext"
)

// InMemory keeps registrations in a mutex-guarded map. The single mutex
// serializes Execute calls, giving the same lost-update protection the
// postgres store gets from SELECT ... FOR UPDATE.
type InMemory struct {
	mu            sync.RWMutex
	registrations map[id.RegistrationID]*models.Registration
	transitions   map[id.RegistrationID][]*models.Transition
}

func NewInMemory() *InMemory {
	return &InMemory{
		registrations: make(map[id.RegistrationID]*models.Registration),
		transitions:   make(map[id.RegistrationID][]*models.Transition),
	}
}

func (s *InMemory) Create(_ context.Context, reg *models.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.registrations[reg.ID]; exists {
		return fmt.Errorf("registration %s: %w", reg.ID, sentinel.ErrConflict)
	}
	for _, existing := range s.registrations {
		if existing.TenancyID == reg.TenancyID && !existing.Status.IsTerminal() {
			return fmt.Errorf("tenancy %s already has registration %s: %w",
				reg.TenancyID, existing.ID, sentinel.ErrConflict)
		}
	}
	copied := *reg
	s.registrations[reg.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.registrations[registrationID]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", registrationID, sentinel.ErrNotFound)
	}
	copied := *reg
	return &copied, nil
}

func (s *InMemory) FindCurrentByTenancy(_ context.Context, tenancyID id.TenancyID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, reg := range s.registrations {
		if reg.TenancyID == tenancyID && !reg.Status.IsTerminal() {
			copied := *reg
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("current registration for tenancy %s: %w", tenancyID, sentinel.ErrNotFound)
}

func (s *InMemory) ListByOwner(_ context.Context, owner id.UserID) ([]*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Registration
	for _, reg := range s.registrations {
		if reg.OwnerUserID == owner {
			copied := *reg
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemory) Execute(
	ctx context.Context,
	registrationID id.RegistrationID,
	trigger string,
	validate func(*models.Registration) error,
	mutate func(*models.Registration),
) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[registrationID]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", registrationID, sentinel.ErrNotFound)
	}

	working := *reg
	if err := validate(&working); err != nil {
		return nil, err
	}
	before := working.Status
	mutate(&working)

	if working.Status != before {
		s.transitions[registrationID] = append(s.transitions[registrationID], &models.Transition{
			RegistrationID: registrationID,
			FromStatus:     before,
			ToStatus:       working.Status,
			Trigger:        trigger,
			ErrorMessage:   working.ErrorMessage,
			OccurredAt:     requestcontext.Now(ctx),
		})
	}
	stored := working
	s.registrations[registrationID] = &stored

	copied := working
	return &copied, nil
}

func (s *InMemory) History(_ context.Context, registrationID id.RegistrationID) ([]*models.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.registrations[registrationID]; !ok {
		return nil, fmt.Errorf("registration %s: %w", registrationID, sentinel.ErrNotFound)
	}
	history := s.transitions[registrationID]
	result := make([]*models.Transition, len(history))
	for i, tr := range history {
		copied := *tr
		result[i] = &copied
	}
	return result, nil
}

func (s *InMemory) HasActiveAttempt(_ context.Context, credentialID id.CredentialID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, reg := range s.registrations {
		if reg.CredentialID != nil && *reg.CredentialID == credentialID && reg.Status.IsActiveAttempt() {
			return true, nil
		}
	}
	return false, nil
}
