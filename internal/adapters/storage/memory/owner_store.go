package memory

import (
	"context"
	"sync"
	"time"

	"github.com/PabloGalante/taskbot/internal/domain"
)

// Store is a simple in-memory implementation of domain.Store.
// It is NOT persistent and is only suitable for development / local mode.
type Store struct {
	mu      sync.RWMutex
	owners  map[domain.OwnerID]*domain.Owner
	byPhone map[string]domain.OwnerID
	tasks   map[domain.OwnerID]map[domain.TaskID]*domain.Task
}

func NewStore() *Store {
	return &Store{
		owners:  make(map[domain.OwnerID]*domain.Owner),
		byPhone: make(map[string]domain.OwnerID),
		tasks:   make(map[domain.OwnerID]map[domain.TaskID]*domain.Task),
	}
}

func (s *Store) FindOrCreateOwner(ctx context.Context, phoneKey string, now time.Time) (*domain.Owner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byPhone[phoneKey]; ok {
		o := s.owners[id]
		o.LastActiveAt = now
		cp := *o
		return &cp, nil
	}

	o := &domain.Owner{
		ID:           domain.OwnerID(domain.NewID(now)),
		PhoneKey:     phoneKey,
		LastView:     domain.ViewAll,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	s.owners[o.ID] = o
	s.byPhone[phoneKey] = o.ID

	cp := *o
	return &cp, nil
}

func (s *Store) UpdateOwner(ctx context.Context, owner *domain.Owner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.owners[owner.ID]
	if !ok {
		return domain.ErrNotFound
	}
	// The phone key is the identity; it never changes.
	cp := *owner
	cp.PhoneKey = current.PhoneKey
	s.owners[owner.ID] = &cp
	return nil
}
