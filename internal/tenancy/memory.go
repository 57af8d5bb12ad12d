package tenancy

import (
	"context"
	"fmt"
	"sync"

	id "depositgate/pkg/domain"
	"depositgate/pkg/platform/sentinel"
)

// InMemory is a Reader backed by a map, used in tests and local wiring.
type InMemory struct {
	mu        sync.RWMutex
	tenancies map[id.TenancyID]*Details
}

func NewInMemory() *InMemory {
	return &InMemory{tenancies: make(map[id.TenancyID]*Details)}
}

// Put stores a tenancy record.
func (m *InMemory) Put(details *Details) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *details
	m.tenancies[details.TenancyID] = &copied
}

func (m *InMemory) GetTenancy(_ context.Context, tenancyID id.TenancyID) (*Details, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	details, ok := m.tenancies[tenancyID]
	if !ok {
		return nil, fmt.Errorf("tenancy %s: %w", tenancyID, sentinel.ErrNotFound)
	}
	copied := *details
	return &copied, nil
}
