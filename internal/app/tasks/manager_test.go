package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PabloGalante/taskbot/internal/adapters/storage/memory"
	"github.com/PabloGalante/taskbot/internal/adapters/storage/storetest"
	"github.com/PabloGalante/taskbot/internal/app/dates"
	"github.com/PabloGalante/taskbot/internal/app/fields"
	"github.com/PabloGalante/taskbot/internal/domain"
)

type fakeCalendar struct {
	upserts []domain.TaskID
	deletes []string
	err     error
}

func (f *fakeCalendar) UpsertEvent(ctx context.Context, task *domain.Task) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.upserts = append(f.upserts, task.ID)
	return "evt-" + string(task.ID), nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.deletes = append(f.deletes, eventID)
	return f.err
}

type brokenStore struct {
	domain.Store
}

func (brokenStore) InsertTask(ctx context.Context, task *domain.Task) error {
	return errors.New("disk on fire")
}

func (brokenStore) QueryTasks(ctx context.Context, ownerID domain.OwnerID, q domain.TaskQuery) ([]*domain.Task, int, error) {
	return nil, 0, errors.New("disk on fire")
}

func newTestManager(t *testing.T, now time.Time, opts ...Option) (*Manager, *domain.Owner) {
	t.Helper()
	store := memory.NewStore()
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	m := NewManager(store, opts...)
	owner, err := m.Owner(context.Background(), "whatsapp:+1 555 000 1111")
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	return m, owner
}

func TestOwnerRequiresPhoneKey(t *testing.T) {
	m := NewManager(memory.NewStore())
	if _, err := m.Owner(context.Background(), "whatsapp:"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestOwnerNormalizesPhoneKey(t *testing.T) {
	m, owner := newTestManager(t, t0)
	again, err := m.Owner(context.Background(), "+15550001111")
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if again.ID != owner.ID {
		t.Fatalf("normalized keys produced different owners")
	}
}

func TestCreateFromFieldsDefaults(t *testing.T) {
	m, owner := newTestManager(t, t0)

	f, err := fields.Extract("Submit assignment")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	task, err := m.CreateFromFields(context.Background(), owner, f)
	if err != nil {
		t.Fatalf("CreateFromFields: %v", err)
	}

	wantDue := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)
	if !task.DueDate.Equal(wantDue) {
		t.Errorf("DueDate = %v, want %v", task.DueDate, wantDue)
	}
	if task.Priority != domain.PriorityMedium || task.Status != domain.StatusNew || task.Repeat != domain.RepeatNone {
		t.Errorf("defaults = %+v", task)
	}
	if task.Course != nil {
		t.Errorf("Course = %q", *task.Course)
	}
}

func TestCreateFromFieldsLabels(t *testing.T) {
	m, owner := newTestManager(t, t0)

	f, err := fields.Extract("Task: Buy milk, Due: tomorrow, Priority: high, Course: Errands")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	task, err := m.CreateFromFields(context.Background(), owner, f)
	if err != nil {
		t.Fatalf("CreateFromFields: %v", err)
	}
	if task.Description != "Buy milk" || task.Priority != domain.PriorityHigh {
		t.Errorf("task = %+v", task)
	}
	if want := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC); !task.DueDate.Equal(want) {
		t.Errorf("DueDate = %v, want %v", task.DueDate, want)
	}
	if task.Course == nil || *task.Course != "Errands" {
		t.Errorf("Course = %v", task.Course)
	}
}

func TestListDueTodayBoundaries(t *testing.T) {
	m, owner := newTestManager(t, t0)
	ctx := context.Background()

	mk := func(desc string, due time.Time, priority string) *domain.Task {
		task, err := m.Create(ctx, owner, Draft{Description: desc, DueDate: due, Priority: priority})
		if err != nil {
			t.Fatalf("Create(%s): %v", desc, err)
		}
		return task
	}
	mk("midnight start", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "low")
	mk("last second", time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC), "high")
	mk("tomorrow midnight", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), "high")
	mk("yesterday", time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), "high")
	done := mk("already done", time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC), "high")
	if _, err := m.MarkDone(ctx, owner, Ref{ID: done.ID}); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	res, err := m.ListDueToday(ctx, owner)
	if err != nil {
		t.Fatalf("ListDueToday: %v", err)
	}
	if len(res.Tasks) != 2 || res.Total != 2 {
		t.Fatalf("got %d tasks (total %d), want 2", len(res.Tasks), res.Total)
	}
	if res.Tasks[0].Description != "last second" || res.Tasks[1].Description != "midnight start" {
		t.Fatalf("order = %q, %q", res.Tasks[0].Description, res.Tasks[1].Description)
	}
}

func TestListPaging(t *testing.T) {
	m, owner := newTestManager(t, t0)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.Create(ctx, owner, Draft{Description: "task", DueDate: t0.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	res, err := m.List(ctx, owner, domain.TaskQuery{Page: domain.Page{Limit: 2, Skip: 2}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(res.Tasks) != 2 || res.Total != 5 || !res.HasMore {
		t.Fatalf("page = %d tasks, total %d, hasMore %v", len(res.Tasks), res.Total, res.HasMore)
	}

	res, err = m.List(ctx, owner, domain.TaskQuery{Page: domain.Page{Limit: 500}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Query.Page.Limit != MaxListLimit || res.HasMore {
		t.Fatalf("limit = %d, hasMore %v", res.Query.Page.Limit, res.HasMore)
	}
}

func TestShowViewRecordsListContext(t *testing.T) {
	m, owner := newTestManager(t, t0)
	ctx := context.Background()

	storetest.Seed(t, m.store, owner, time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), 2)
	today, err := m.Create(ctx, owner, Draft{Description: "due today", DueDate: t0.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := m.ShowView(ctx, owner, domain.ViewToday); err != nil {
		t.Fatalf("ShowView: %v", err)
	}
	if owner.LastView != domain.ViewToday {
		t.Fatalf("LastView = %q", owner.LastView)
	}

	// The today view holds a single task.
	if _, err := m.MarkDone(ctx, owner, Ref{Position: 2}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("position 2 of today view: err = %v", err)
	}
	got, err := m.MarkDone(ctx, owner, Ref{Position: 1})
	if err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if got.ID != today.ID {
		t.Fatalf("resolved %s, want %s", got.ID, today.ID)
	}

	if _, err := m.ShowView(ctx, owner, domain.ViewAll); err != nil {
		t.Fatalf("ShowView: %v", err)
	}
	if _, err := m.MarkDone(ctx, owner, Ref{Position: 3}); err != nil {
		t.Fatalf("position 3 of all view: %v", err)
	}
}

func TestMarkDoneIsIdempotent(t *testing.T) {
	m, owner := newTestManager(t, t0)
	ctx := context.Background()
	task, err := m.Create(ctx, owner, Draft{Description: "Essay", DueDate: t0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 2; i++ {
		got, err := m.MarkDone(ctx, owner, Ref{ID: task.ID})
		if err != nil {
			t.Fatalf("MarkDone #%d: %v", i+1, err)
		}
		if got.Status != domain.StatusDone {
			t.Fatalf("Status = %q", got.Status)
		}
	}

	if _, err := m.MarkDone(ctx, owner, Ref{ID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("MarkDone(missing) = %v", err)
	}
}

func TestDelete(t *testing.T) {
	m, owner := newTestManager(t, t0)
	ctx := context.Background()
	task, err := m.Create(ctx, owner, Draft{Description: "Throw away", DueDate: t0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if ok, err := m.Delete(ctx, owner, Ref{ID: "missing"}); err != nil || ok {
		t.Fatalf("Delete(missing id) = %v, %v", ok, err)
	}
	if _, err := m.Delete(ctx, owner, Ref{Position: 7}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete(position 7) = %v", err)
	}
	if ok, err := m.Delete(ctx, owner, Ref{ID: task.ID}); err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if _, err := m.Get(ctx, owner, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after delete = %v", err)
	}
}

func TestUpdate(t *testing.T) {
	m, owner := newTestManager(t, t0)
	ctx := context.Background()
	task, err := m.Create(ctx, owner, Draft{Description: "Quiz", DueDate: t0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	priority := "High"
	got, err := m.Update(ctx, owner, task.ID, Patch{Priority: &priority})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Priority != domain.PriorityHigh {
		t.Fatalf("Priority = %q", got.Priority)
	}

	if _, err := m.Update(ctx, owner, "missing", Patch{Priority: &priority}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update(missing) = %v", err)
	}
}

func TestCalendarMirror(t *testing.T) {
	cal := &fakeCalendar{}
	m, owner := newTestManager(t, t0, WithCalendar(cal))
	ctx := context.Background()

	// Owners without calendar sync are never mirrored.
	if _, err := m.Create(ctx, owner, Draft{Description: "Private", DueDate: t0}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(cal.upserts) != 0 {
		t.Fatalf("mirrored without sync: %v", cal.upserts)
	}

	on := true
	owner, err := m.UpdateOwner(ctx, owner, nil, &on)
	if err != nil {
		t.Fatalf("UpdateOwner: %v", err)
	}
	task, err := m.Create(ctx, owner, Draft{Description: "Synced", DueDate: t0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stored, err := m.Get(ctx, owner, task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.CalendarEventID != "evt-"+string(task.ID) {
		t.Fatalf("CalendarEventID = %q", stored.CalendarEventID)
	}

	if _, err := m.Delete(ctx, owner, Ref{ID: task.ID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(cal.deletes) != 1 || cal.deletes[0] != stored.CalendarEventID {
		t.Fatalf("deletes = %v", cal.deletes)
	}
}

func TestCalendarFailureDoesNotFailCreate(t *testing.T) {
	cal := &fakeCalendar{err: errors.New("quota")}
	m, owner := newTestManager(t, t0, WithCalendar(cal))
	ctx := context.Background()

	on := true
	owner, err := m.UpdateOwner(ctx, owner, nil, &on)
	if err != nil {
		t.Fatalf("UpdateOwner: %v", err)
	}
	task, err := m.Create(ctx, owner, Draft{Description: "Still saved", DueDate: t0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.CalendarEventID != "" {
		t.Fatalf("CalendarEventID = %q", task.CalendarEventID)
	}
}

func TestStorageFailures(t *testing.T) {
	store := brokenStore{Store: memory.NewStore()}
	m := NewManager(store, WithClock(func() time.Time { return t0 }))
	ctx := context.Background()

	owner, err := m.Owner(ctx, "+15550002222")
	if err != nil {
		t.Fatalf("Owner: %v", err)
	}
	if _, err := m.Create(ctx, owner, Draft{Description: "x task", DueDate: t0}); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("Create err = %v, want storage error", err)
	}
	if _, err := m.ListDueToday(ctx, owner); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("ListDueToday err = %v, want storage error", err)
	}
}

func TestLocationSetsToday(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on March 2 is still March 1 at UTC-5.
	now := time.Date(2024, 3, 2, 2, 0, 0, 0, time.UTC)
	m, _ := newTestManager(t, now, WithLocation(loc))

	if got := m.Now(); got.Day() != 1 || got.Location() != loc {
		t.Fatalf("Now = %v", got)
	}
	want := time.Date(2024, 3, 1, 23, 59, 59, 0, loc)
	if got := m.ResolveDue(""); !got.Equal(want) {
		t.Fatalf("ResolveDue(\"\") = %v, want %v", got, want)
	}
}

func TestParseRef(t *testing.T) {
	cases := []struct {
		in   string
		want Ref
		ok   bool
	}{
		{"2", Ref{Position: 2}, true},
		{" 01HV3 ", Ref{ID: "01HV3"}, true},
		{"", Ref{}, false},
		{"-1", Ref{Position: -1}, true},
	}
	for _, tc := range cases {
		got, ok := ParseRef(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseRef(%q) = %+v, %v", tc.in, got, ok)
		}
	}
}

func TestWithResolverExtendsGrammar(t *testing.T) {
	eod := dates.Grammar{Name: "eod", Match: func(f string, now time.Time) (time.Time, bool) {
		if f != "eod" {
			return time.Time{}, false
		}
		return time.Date(now.Year(), now.Month(), now.Day(), 17, 0, 0, 0, now.Location()), true
	}}
	r := dates.NewResolverWith(append(dates.DefaultGrammars(), eod)...)
	m, owner := newTestManager(t, t0, WithResolver(r))

	task, err := m.CreateFromFields(context.Background(), owner, fields.Fields{Description: "Ship report", Due: "EOD"})
	if err != nil {
		t.Fatalf("CreateFromFields: %v", err)
	}
	if task.DueDate.Hour() != 17 || task.DueDate.Day() != t0.Day() {
		t.Fatalf("due = %v, want today 17:00", task.DueDate)
	}
	if m.Resolver() != r {
		t.Fatal("Resolver should return the configured resolver")
	}
}
