// Package storetest holds the behaviour every domain.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/PabloGalante/taskbot/internal/domain"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) domain.Store

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// Run exercises newStore against the common contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("FindOrCreateOwner", func(t *testing.T) { testFindOrCreateOwner(t, newStore(t)) })
	t.Run("UpdateOwner", func(t *testing.T) { testUpdateOwner(t, newStore(t)) })
	t.Run("InsertAndGet", func(t *testing.T) { testInsertAndGet(t, newStore(t)) })
	t.Run("OwnerIsolation", func(t *testing.T) { testOwnerIsolation(t, newStore(t)) })
	t.Run("QueryFilterSortPage", func(t *testing.T) { testQuery(t, newStore(t)) })
	t.Run("UpdateTaskStatus", func(t *testing.T) { testUpdateTaskStatus(t, newStore(t)) })
	t.Run("UpdateTask", func(t *testing.T) { testUpdateTask(t, newStore(t)) })
	t.Run("DeleteTask", func(t *testing.T) { testDeleteTask(t, newStore(t)) })
}

func newTask(owner *domain.Owner, desc string, due time.Time, p domain.Priority) *domain.Task {
	return &domain.Task{
		ID:          domain.TaskID(domain.NewID(base)),
		OwnerID:     owner.ID,
		Description: desc,
		Status:      domain.StatusNew,
		Priority:    p,
		DueDate:     due,
		Repeat:      domain.RepeatNone,
		CreatedAt:   base,
		UpdatedAt:   base,
	}
}

func mustOwner(t *testing.T, s domain.Store, phone string) *domain.Owner {
	t.Helper()
	o, err := s.FindOrCreateOwner(context.Background(), phone, base)
	if err != nil {
		t.Fatalf("FindOrCreateOwner(%q): %v", phone, err)
	}
	return o
}

func mustInsert(t *testing.T, s domain.Store, task *domain.Task) {
	t.Helper()
	if err := s.InsertTask(context.Background(), task); err != nil {
		t.Fatalf("InsertTask: %v", err)
	}
}

func descriptions(tasks []*domain.Task) string {
	out := ""
	for i, t := range tasks {
		if i > 0 {
			out += ","
		}
		out += t.Description
	}
	return out
}

func testFindOrCreateOwner(t *testing.T, s domain.Store) {
	ctx := context.Background()

	first, err := s.FindOrCreateOwner(ctx, "+15551234567", base)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.ID == "" || first.PhoneKey != "+15551234567" {
		t.Fatalf("unexpected owner: %+v", first)
	}
	if first.LastView != domain.ViewAll {
		t.Fatalf("LastView = %q, want %q", first.LastView, domain.ViewAll)
	}

	later := base.Add(time.Hour)
	second, err := s.FindOrCreateOwner(ctx, "+15551234567", later)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("same phone key produced two owners: %s vs %s", first.ID, second.ID)
	}
	if !second.LastActiveAt.Equal(later) {
		t.Fatalf("LastActiveAt = %v, want %v", second.LastActiveAt, later)
	}
	if !second.CreatedAt.Equal(base) {
		t.Fatalf("CreatedAt changed: %v", second.CreatedAt)
	}

	other := mustOwner(t, s, "+15559999999")
	if other.ID == first.ID {
		t.Fatalf("different phone keys share an owner")
	}
}

func testUpdateOwner(t *testing.T, s domain.Store) {
	ctx := context.Background()
	o := mustOwner(t, s, "+15550000001")

	o.Name = "Ana"
	o.CalendarSync = true
	o.LastView = domain.ViewToday
	if err := s.UpdateOwner(ctx, o); err != nil {
		t.Fatalf("UpdateOwner: %v", err)
	}

	got := mustOwner(t, s, "+15550000001")
	if got.Name != "Ana" || !got.CalendarSync || got.LastView != domain.ViewToday {
		t.Fatalf("owner not updated: %+v", got)
	}

	missing := &domain.Owner{ID: "nope", PhoneKey: "+1"}
	if err := s.UpdateOwner(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateOwner(missing) = %v, want ErrNotFound", err)
	}
}

func testInsertAndGet(t *testing.T, s domain.Store) {
	ctx := context.Background()
	o := mustOwner(t, s, "+15550000002")

	course := "Physics"
	task := newTask(o, "Lab report", base.Add(48*time.Hour), domain.PriorityHigh)
	task.Course = &course
	task.Repeat = domain.RepeatWeekly
	mustInsert(t, s, task)

	got, err := s.GetTask(ctx, o.ID, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Description != "Lab report" || got.Priority != domain.PriorityHigh || got.Status != domain.StatusNew {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.Course == nil || *got.Course != "Physics" {
		t.Fatalf("Course = %v", got.Course)
	}
	if got.Repeat != domain.RepeatWeekly {
		t.Fatalf("Repeat = %q", got.Repeat)
	}
	if !got.DueDate.Equal(task.DueDate) {
		t.Fatalf("DueDate = %v, want %v", got.DueDate, task.DueDate)
	}

	noCourse := newTask(o, "No course", base, domain.PriorityLow)
	mustInsert(t, s, noCourse)
	got, err = s.GetTask(ctx, o.ID, noCourse.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Course != nil {
		t.Fatalf("Course = %q, want nil", *got.Course)
	}

	if _, err := s.GetTask(ctx, o.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetTask(missing) = %v, want ErrNotFound", err)
	}
}

func testOwnerIsolation(t *testing.T, s domain.Store) {
	ctx := context.Background()
	alice := mustOwner(t, s, "+15550000010")
	bob := mustOwner(t, s, "+15550000011")

	task := newTask(alice, "Alice only", base, domain.PriorityMedium)
	mustInsert(t, s, task)

	if _, err := s.GetTask(ctx, bob.ID, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("bob sees alice's task: %v", err)
	}
	if _, err := s.UpdateTaskStatus(ctx, bob.ID, task.ID, domain.StatusDone, base); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("bob updated alice's task: %v", err)
	}
	if ok, err := s.DeleteTask(ctx, bob.ID, task.ID); err != nil || ok {
		t.Fatalf("bob deleted alice's task: ok=%v err=%v", ok, err)
	}
	tasks, total, err := s.QueryTasks(ctx, bob.ID, domain.TaskQuery{Sort: domain.DefaultSort})
	if err != nil {
		t.Fatalf("QueryTasks: %v", err)
	}
	if total != 0 || len(tasks) != 0 {
		t.Fatalf("bob's listing = %d/%d tasks", len(tasks), total)
	}
}

func testQuery(t *testing.T, s domain.Store) {
	ctx := context.Background()
	o := mustOwner(t, s, "+15550000020")

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	math := "Math"
	seed := []struct {
		desc   string
		due    time.Time
		p      domain.Priority
		status domain.Status
		course *string
	}{
		{"a", day.Add(10 * time.Hour), domain.PriorityLow, domain.StatusNew, nil},
		{"b", day.Add(8 * time.Hour), domain.PriorityHigh, domain.StatusNew, &math},
		{"c", day.Add(30 * time.Hour), domain.PriorityMedium, domain.StatusInProgress, &math},
		{"d", day.Add(12 * time.Hour), domain.PriorityHigh, domain.StatusDone, nil},
		{"e", day.Add(12 * time.Hour), domain.PriorityHigh, domain.StatusNew, nil},
	}
	for i, sd := range seed {
		task := newTask(o, sd.desc, sd.due, sd.p)
		task.ID = domain.TaskID(fmt.Sprintf("q%02d", i))
		task.Status = sd.status
		task.Course = sd.course
		mustInsert(t, s, task)
	}

	from := day
	to := day.Add(24*time.Hour - time.Nanosecond)

	cases := []struct {
		name      string
		q         domain.TaskQuery
		want      string
		wantTotal int
	}{
		{
			name:      "all by due date",
			q:         domain.TaskQuery{Sort: domain.DefaultSort},
			want:      "b,a,d,e,c",
			wantTotal: 5,
		},
		{
			name: "today open by priority",
			q: domain.TaskQuery{
				Filter: domain.TaskFilter{ExcludeStatus: domain.StatusDone, DueFrom: &from, DueTo: &to},
				Sort:   domain.Sort{Field: domain.SortPriority, Direction: domain.Desc},
			},
			want:      "b,e,a",
			wantTotal: 3,
		},
		{
			name: "status filter",
			q: domain.TaskQuery{
				Filter: domain.TaskFilter{Status: domain.StatusInProgress},
				Sort:   domain.DefaultSort,
			},
			want:      "c",
			wantTotal: 1,
		},
		{
			name: "course and priority",
			q: domain.TaskQuery{
				Filter: domain.TaskFilter{Course: "Math", Priority: domain.PriorityHigh},
				Sort:   domain.DefaultSort,
			},
			want:      "b",
			wantTotal: 1,
		},
		{
			name:      "paged",
			q:         domain.TaskQuery{Sort: domain.DefaultSort, Page: domain.Page{Limit: 2, Skip: 1}},
			want:      "a,d",
			wantTotal: 5,
		},
		{
			name:      "skip past end",
			q:         domain.TaskQuery{Sort: domain.DefaultSort, Page: domain.Page{Limit: 2, Skip: 10}},
			want:      "",
			wantTotal: 5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tasks, total, err := s.QueryTasks(ctx, o.ID, tc.q)
			if err != nil {
				t.Fatalf("QueryTasks: %v", err)
			}
			if got := descriptions(tasks); got != tc.want {
				t.Fatalf("order = %q, want %q", got, tc.want)
			}
			if total != tc.wantTotal {
				t.Fatalf("total = %d, want %d", total, tc.wantTotal)
			}
		})
	}
}

func testUpdateTaskStatus(t *testing.T, s domain.Store) {
	ctx := context.Background()
	o := mustOwner(t, s, "+15550000030")
	task := newTask(o, "Finish essay", base, domain.PriorityMedium)
	mustInsert(t, s, task)

	later := base.Add(time.Hour)
	got, err := s.UpdateTaskStatus(ctx, o.ID, task.ID, domain.StatusDone, later)
	if err != nil {
		t.Fatalf("UpdateTaskStatus: %v", err)
	}
	if got.Status != domain.StatusDone {
		t.Fatalf("Status = %q", got.Status)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Fatalf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}

	// Marking done again succeeds and keeps the status.
	again, err := s.UpdateTaskStatus(ctx, o.ID, task.ID, domain.StatusDone, later)
	if err != nil || again.Status != domain.StatusDone {
		t.Fatalf("second UpdateTaskStatus: %v, %+v", err, again)
	}

	if _, err := s.UpdateTaskStatus(ctx, o.ID, "missing", domain.StatusDone, later); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateTaskStatus(missing) = %v, want ErrNotFound", err)
	}
}

func testUpdateTask(t *testing.T, s domain.Store) {
	ctx := context.Background()
	o := mustOwner(t, s, "+15550000040")
	task := newTask(o, "Draft", base, domain.PriorityLow)
	mustInsert(t, s, task)

	course := "History"
	task.Description = "Final"
	task.Priority = domain.PriorityHigh
	task.Course = &course
	task.CalendarEventID = "evt-1"
	task.UpdatedAt = base.Add(time.Minute)
	if err := s.UpdateTask(ctx, task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	got, err := s.GetTask(ctx, o.ID, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Description != "Final" || got.Priority != domain.PriorityHigh || got.CalendarEventID != "evt-1" {
		t.Fatalf("task not updated: %+v", got)
	}
	if got.Course == nil || *got.Course != "History" {
		t.Fatalf("Course = %v", got.Course)
	}

	ghost := newTask(o, "ghost", base, domain.PriorityLow)
	if err := s.UpdateTask(ctx, ghost); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateTask(missing) = %v, want ErrNotFound", err)
	}
}

func testDeleteTask(t *testing.T, s domain.Store) {
	ctx := context.Background()
	o := mustOwner(t, s, "+15550000050")
	task := newTask(o, "Throwaway", base, domain.PriorityLow)
	mustInsert(t, s, task)

	ok, err := s.DeleteTask(ctx, o.ID, task.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteTask = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.DeleteTask(ctx, o.ID, task.ID)
	if err != nil || ok {
		t.Fatalf("second DeleteTask = %v, %v; want false, nil", ok, err)
	}
	if _, err := s.GetTask(ctx, o.ID, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetTask after delete = %v", err)
	}
}

// Seed inserts n open tasks due on consecutive hours starting at start.
func Seed(t *testing.T, s domain.Store, owner *domain.Owner, start time.Time, n int) []*domain.Task {
	t.Helper()
	out := make([]*domain.Task, 0, n)
	for i := 0; i < n; i++ {
		task := newTask(owner, fmt.Sprintf("task %d", i+1), start.Add(time.Duration(i)*time.Hour), domain.PriorityMedium)
		mustInsert(t, s, task)
		out = append(out, task)
	}
	return out
}
