package audit

import (
	"context"
	"sync"

	id "depositgate/pkg/domain"
)

// Store is an append-only event sink with per-owner reads.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// InMemory keeps events in process memory. Used in tests and when no
// durable sink is configured.
type InMemory struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := userID.String()
	var out []Event
	for _, event := range s.events {
		if event.UserID == want {
			out = append(out, event)
		}
	}
	return out, nil
}
