package domain

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusNew        Status = "New"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// ParseStatus accepts the canonical values case-insensitively plus a few
// spellings of "In Progress". ok is false for anything else.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new":
		return StatusNew, true
	case "in progress", "inprogress", "in_progress", "in-progress":
		return StatusInProgress, true
	case "done":
		return StatusDone, true
	default:
		return "", false
	}
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	default:
		return "", false
	}
}

// Rank orders priorities so that High sorts above Medium above Low.
// Unknown values rank below Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type Repeat string

const (
	RepeatNone    Repeat = "none"
	RepeatDaily   Repeat = "Daily"
	RepeatWeekly  Repeat = "Weekly"
	RepeatMonthly Repeat = "Monthly"
	RepeatYearly  Repeat = "Yearly"
)

func ParseRepeat(s string) (Repeat, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return RepeatNone, true
	case "daily":
		return RepeatDaily, true
	case "weekly":
		return RepeatWeekly, true
	case "monthly":
		return RepeatMonthly, true
	case "yearly":
		return RepeatYearly, true
	default:
		return "", false
	}
}

// Task is a single to-do item owned by exactly one Owner.
type Task struct {
	ID          TaskID
	OwnerID     OwnerID
	Description string
	Status      Status
	Priority    Priority
	DueDate     Timestamp

	// Course is optional free text, nil when unset.
	Course *string
	Repeat Repeat

	// CalendarEventID links the task to its mirrored calendar event, if any.
	CalendarEventID string

	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// IsOverdue reports whether the task is still open and its due date has passed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status != StatusDone && t.DueDate.Before(now)
}

// Clone returns a deep copy so stores can hand out tasks without sharing memory.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Course != nil {
		course := *t.Course
		c.Course = &course
	}
	return &c
}
