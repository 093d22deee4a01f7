package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/ask-michael/internal/domain"
)

// UsageStore is an in-memory domain.UsageStore.
type UsageStore struct {
	mu    sync.Mutex
	clock clock
	usage map[domain.UserID]*domain.UserUsage
}

func NewUsageStore(opts ...Option) *UsageStore {
	return &UsageStore{
		clock: newClock(opts),
		usage: make(map[domain.UserID]*domain.UserUsage),
	}
}

func (s *UsageStore) RecordUsage(_ context.Context, userID domain.UserID) (*domain.UserUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.now()
	u, ok := s.usage[userID]
	if !ok {
		u = &domain.UserUsage{UserID: userID, CreatedAt: now}
		s.usage[userID] = u
	}
	u.MessageCount++
	u.TotalRequests++
	u.UpdatedAt = now

	out := *u
	return &out, nil
}

func (s *UsageStore) GetUsage(_ context.Context, userID domain.UserID) (*domain.UserUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usage[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *u
	return &out, nil
}
