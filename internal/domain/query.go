package domain

import (
	"sort"
	"strings"
	"time"
)

// TaskFilter narrows a task query. Zero values mean "no constraint".
type TaskFilter struct {
	Status        Status
	ExcludeStatus Status
	Priority      Priority
	Course        string
	DueFrom       *time.Time // inclusive
	DueTo         *time.Time // inclusive
}

// Matches reports whether t satisfies every constraint of f.
func (f TaskFilter) Matches(t *Task) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.ExcludeStatus != "" && t.Status == f.ExcludeStatus {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Course != "" && (t.Course == nil || *t.Course != f.Course) {
		return false
	}
	if f.DueFrom != nil && t.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueTo != nil && t.DueDate.After(*f.DueTo) {
		return false
	}
	return true
}

type SortField string

const (
	SortDueDate   SortField = "dueDate"
	SortPriority  SortField = "priority"
	SortCreatedAt SortField = "createdAt"
	SortStatus    SortField = "status"
)

// ParseSortField maps API sort keys onto the supported fields.
func ParseSortField(s string) (SortField, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "duedate", "due_date", "due":
		return SortDueDate, true
	case "priority":
		return SortPriority, true
	case "createdat", "created_at", "created":
		return SortCreatedAt, true
	case "status":
		return SortStatus, true
	default:
		return "", false
	}
}

type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

type Sort struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSort is ascending due date.
var DefaultSort = Sort{Field: SortDueDate, Direction: Asc}

// Page is a limit/skip window. Limit <= 0 means unbounded.
type Page struct {
	Limit int
	Skip  int
}

type TaskQuery struct {
	Filter TaskFilter
	Sort   Sort
	Page   Page
}

// Less is the total order every store must reproduce: the primary sort,
// then due date ascending, then id ascending. The id tiebreak keeps
// numbered chat listings stable between two requests.
func (s Sort) Less(a, b *Task) bool {
	if c := s.compare(a, b); c != 0 {
		return c < 0
	}
	if !a.DueDate.Equal(b.DueDate) {
		return a.DueDate.Before(b.DueDate)
	}
	return a.ID < b.ID
}

func (s Sort) compare(a, b *Task) int {
	var c int
	switch s.Field {
	case SortPriority:
		c = a.Priority.Rank() - b.Priority.Rank()
	case SortCreatedAt:
		c = a.CreatedAt.Compare(b.CreatedAt)
	case SortStatus:
		c = strings.Compare(string(a.Status), string(b.Status))
	default:
		c = a.DueDate.Compare(b.DueDate)
	}
	if s.Direction == Desc {
		c = -c
	}
	return c
}

// ApplyQuery filters, sorts and pages tasks in memory. It returns the page
// and the number of tasks that matched before paging.
func ApplyQuery(tasks []*Task, q TaskQuery) ([]*Task, int) {
	matched := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Filter.Matches(t) {
			matched = append(matched, t)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return q.Sort.Less(matched[i], matched[j])
	})

	total := len(matched)
	start := min(max(q.Page.Skip, 0), total)
	end := total
	if q.Page.Limit > 0 {
		end = min(start+q.Page.Limit, total)
	}
	return matched[start:end], total
}
