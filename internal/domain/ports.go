package domain

import (
	"context"
	"time"
)

// OwnerStore persists owners keyed by their normalized phone key.
type OwnerStore interface {
	// FindOrCreateOwner returns the owner for phoneKey, creating it on first
	// sight and bumping LastActiveAt otherwise.
	FindOrCreateOwner(ctx context.Context, phoneKey string, now time.Time) (*Owner, error)
	UpdateOwner(ctx context.Context, owner *Owner) error
}

// TaskStore persists tasks. Every call is scoped by owner id; a task id that
// belongs to somebody else behaves exactly like a missing one (ErrNotFound).
type TaskStore interface {
	InsertTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, ownerID OwnerID, id TaskID) (*Task, error)
	// QueryTasks returns one page of matching tasks sorted per q.Sort (with the
	// Sort.Less tiebreaks) and the total number of matches.
	QueryTasks(ctx context.Context, ownerID OwnerID, q TaskQuery) ([]*Task, int, error)
	UpdateTaskStatus(ctx context.Context, ownerID OwnerID, id TaskID, status Status, now time.Time) (*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, ownerID OwnerID, id TaskID) (bool, error)
}

// Store is the full persistence port. Every backend implements both halves.
type Store interface {
	OwnerStore
	TaskStore
}

// CalendarSink mirrors tasks as calendar events.
type CalendarSink interface {
	// UpsertEvent creates or updates the event for task and returns its id.
	UpsertEvent(ctx context.Context, task *Task) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}
