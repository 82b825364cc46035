package memory

import (
	"context"
	"errors"
	"time"

	"github.com/PabloGalante/taskbot/internal/domain"
)

func (s *Store) InsertTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.owners[task.OwnerID]; !ok {
		return errors.New("owner does not exist")
	}
	byID := s.tasks[task.OwnerID]
	if byID == nil {
		byID = make(map[domain.TaskID]*domain.Task)
		s.tasks[task.OwnerID] = byID
	}
	if _, exists := byID[task.ID]; exists {
		return errors.New("task already exists")
	}
	byID[task.ID] = task.Clone()
	return nil
}

func (s *Store) GetTask(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[ownerID][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *Store) QueryTasks(ctx context.Context, ownerID domain.OwnerID, q domain.TaskQuery) ([]*domain.Task, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Task, 0, len(s.tasks[ownerID]))
	for _, t := range s.tasks[ownerID] {
		all = append(all, t)
	}
	page, total := domain.ApplyQuery(all, q)

	out := make([]*domain.Task, 0, len(page))
	for _, t := range page {
		out = append(out, t.Clone())
	}
	return out, total, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID, status domain.Status, now time.Time) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[ownerID][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = now
	return t.Clone(), nil
}

func (s *Store) UpdateTask(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[task.OwnerID][task.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := task.Clone()
	cp.OwnerID = current.OwnerID
	cp.CreatedAt = current.CreatedAt
	s.tasks[task.OwnerID][task.ID] = cp
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[ownerID][id]; !ok {
		return false, nil
	}
	delete(s.tasks[ownerID], id)
	return true, nil
}
