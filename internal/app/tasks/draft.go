package tasks

import (
	"strings"
	"time"

	"github.com/PabloGalante/taskbot/internal/domain"
)

// Draft is the raw material of a new task. Enumerated fields are free text:
// values outside their enumeration are dropped and the default is kept.
type Draft struct {
	Description string
	DueDate     time.Time
	Priority    string
	Status      string
	Repeat      string
	Course      string
}

// Build validates d and returns the task it describes, with defaults
// applied and a fresh id. It does not touch storage.
func Build(ownerID domain.OwnerID, d Draft, now time.Time) (*domain.Task, error) {
	var problems []string
	if ownerID == "" {
		problems = append(problems, "owner is required")
	}
	desc := strings.TrimSpace(d.Description)
	if desc == "" {
		problems = append(problems, "Task description is required")
	}
	if d.DueDate.IsZero() {
		problems = append(problems, "Due date is required")
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	t := &domain.Task{
		ID:          domain.TaskID(domain.NewID(now)),
		OwnerID:     ownerID,
		Description: desc,
		Status:      domain.StatusNew,
		Priority:    domain.PriorityMedium,
		DueDate:     d.DueDate,
		Repeat:      domain.RepeatNone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s, ok := domain.ParseStatus(d.Status); ok {
		t.Status = s
	}
	if p, ok := domain.ParsePriority(d.Priority); ok {
		t.Priority = p
	}
	if r, ok := domain.ParseRepeat(d.Repeat); ok {
		t.Repeat = r
	}
	if c := strings.TrimSpace(d.Course); c != "" {
		t.Course = &c
	}
	return t, nil
}

// Patch is a partial edit. Nil fields are left alone.
type Patch struct {
	Description *string
	DueDate     *time.Time
	Status      *string
	Priority    *string
	Repeat      *string
	// Course set to "" clears it.
	Course *string
}

// Apply returns a copy of t with p applied. Invalid enumerated values are
// ignored; an empty description is a validation error.
func (p Patch) Apply(t *domain.Task, now time.Time) (*domain.Task, error) {
	out := t.Clone()
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if desc == "" {
			return nil, domain.NewValidationError("Task description cannot be empty")
		}
		out.Description = desc
	}
	if p.DueDate != nil {
		if p.DueDate.IsZero() {
			return nil, domain.NewValidationError("Due date cannot be empty")
		}
		out.DueDate = *p.DueDate
	}
	if p.Status != nil {
		if s, ok := domain.ParseStatus(*p.Status); ok {
			out.Status = s
		}
	}
	if p.Priority != nil {
		if pr, ok := domain.ParsePriority(*p.Priority); ok {
			out.Priority = pr
		}
	}
	if p.Repeat != nil {
		if r, ok := domain.ParseRepeat(*p.Repeat); ok {
			out.Repeat = r
		}
	}
	if p.Course != nil {
		if c := strings.TrimSpace(*p.Course); c != "" {
			out.Course = &c
		} else {
			out.Course = nil
		}
	}
	out.UpdatedAt = now
	return out, nil
}
