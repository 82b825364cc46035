// Package tasks owns the task lifecycle: building, validating, listing,
// addressing and mutating tasks on behalf of an owner.
package tasks

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/taskbot/internal/app/dates"
	"github.com/PabloGalante/taskbot/internal/app/fields"
	"github.com/PabloGalante/taskbot/internal/domain"
	"github.com/PabloGalante/taskbot/internal/observability"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type Manager struct {
	store     domain.Store
	resolver  *dates.Resolver
	calendar  domain.CalendarSink
	loc       *time.Location
	listLimit int
	now       func() time.Time
}

type Option func(*Manager)

// WithCalendar mirrors tasks of owners with calendar sync into sink.
func WithCalendar(sink domain.CalendarSink) Option {
	return func(m *Manager) { m.calendar = sink }
}

// WithLocation sets the reference timezone for due dates and "today".
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithListLimit caps how many tasks a chat listing shows.
func WithListLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.listLimit = min(n, MaxListLimit)
		}
	}
}

func WithResolver(r *dates.Resolver) Option {
	return func(m *Manager) { m.resolver = r }
}

func NewManager(store domain.Store, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		resolver:  dates.NewResolver(),
		loc:       time.UTC,
		listLimit: DefaultListLimit,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Now returns the current time in the reference timezone.
func (m *Manager) Now() time.Time {
	return m.now().In(m.loc)
}

func (m *Manager) Location() *time.Location {
	return m.loc
}

func (m *Manager) Resolver() *dates.Resolver {
	return m.resolver
}

// ─────────────────────────────────────────────
// Owners
// ─────────────────────────────────────────────

// Owner finds or registers the owner behind a raw phone key.
func (m *Manager) Owner(ctx context.Context, phoneKey string) (*domain.Owner, error) {
	key := domain.NormalizePhoneKey(phoneKey)
	if key == "" {
		return nil, domain.NewValidationError("Phone number is required")
	}
	owner, err := m.store.FindOrCreateOwner(ctx, key, m.Now())
	if err != nil {
		return nil, storageErr("find owner", err)
	}
	return owner, nil
}

// UpdateOwner applies a name and calendar sync preference when given.
func (m *Manager) UpdateOwner(ctx context.Context, owner *domain.Owner, name *string, calendarSync *bool) (*domain.Owner, error) {
	updated := *owner
	if name != nil {
		updated.Name = strings.TrimSpace(*name)
	}
	if calendarSync != nil {
		updated.CalendarSync = *calendarSync
	}
	if err := m.store.UpdateOwner(ctx, &updated); err != nil {
		return nil, storageErr("update owner", err)
	}
	return &updated, nil
}

// ─────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────

// CreateFromFields creates a task from a parsed chat message. A missing or
// unrecognized due date falls back to dates.DefaultDue.
func (m *Manager) CreateFromFields(ctx context.Context, owner *domain.Owner, f fields.Fields) (*domain.Task, error) {
	now := m.Now()
	return m.Create(ctx, owner, Draft{
		Description: f.Description,
		DueDate:     m.resolver.ResolveOrDefault(f.Due, now),
		Priority:    string(f.Priority),
		Repeat:      string(f.Repeat),
		Course:      f.Course,
	})
}

// ResolveDue exposes the date resolver with the manager's clock and timezone.
func (m *Manager) ResolveDue(fragment string) time.Time {
	return m.resolver.ResolveOrDefault(fragment, m.Now())
}

func (m *Manager) Create(ctx context.Context, owner *domain.Owner, d Draft) (*domain.Task, error) {
	task, err := Build(owner.ID, d, m.Now())
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With("owner_id", owner.ID, "task_id", task.ID)
	if err := m.store.InsertTask(ctx, task); err != nil {
		log.Error("failed to insert task", "error", err)
		return nil, storageErr("insert task", err)
	}
	log.Info("task created", "due", task.DueDate, "priority", task.Priority)

	m.mirror(ctx, owner, task)
	return task, nil
}

// ─────────────────────────────────────────────
// Read
// ─────────────────────────────────────────────

// ListResult is one page of tasks.
type ListResult struct {
	Tasks   []*domain.Task
	Total   int
	HasMore bool
	Query   domain.TaskQuery
}

// List runs q for owner. A zero sort means ascending due date; the limit is
// clamped to MaxListLimit and defaults to DefaultListLimit.
func (m *Manager) List(ctx context.Context, owner *domain.Owner, q domain.TaskQuery) (*ListResult, error) {
	if q.Sort.Field == "" {
		q.Sort.Field = domain.DefaultSort.Field
	}
	if q.Sort.Direction != domain.Desc {
		q.Sort.Direction = domain.Asc
	}
	if q.Page.Limit <= 0 {
		q.Page.Limit = DefaultListLimit
	}
	q.Page.Limit = min(q.Page.Limit, MaxListLimit)
	q.Page.Skip = max(q.Page.Skip, 0)

	found, total, err := m.store.QueryTasks(ctx, owner.ID, q)
	if err != nil {
		return nil, storageErr("query tasks", err)
	}
	return &ListResult{
		Tasks:   found,
		Total:   total,
		HasMore: total > q.Page.Skip+q.Page.Limit,
		Query:   q,
	}, nil
}

// ViewQuery is the exact query behind a chat listing. Resolving "done 2"
// re-runs it, so it must stay deterministic.
func (m *Manager) ViewQuery(view domain.ListView) domain.TaskQuery {
	page := domain.Page{Limit: m.listLimit}
	switch view {
	case domain.ViewToday:
		start, end := dates.DayBounds(m.Now())
		return domain.TaskQuery{
			Filter: domain.TaskFilter{DueFrom: &start, DueTo: &end, ExcludeStatus: domain.StatusDone},
			Sort:   domain.Sort{Field: domain.SortPriority, Direction: domain.Desc},
			Page:   page,
		}
	default:
		return domain.TaskQuery{Sort: domain.DefaultSort, Page: page}
	}
}

// ListDueToday returns open tasks due today, highest priority first.
func (m *Manager) ListDueToday(ctx context.Context, owner *domain.Owner) (*ListResult, error) {
	return m.List(ctx, owner, m.ViewQuery(domain.ViewToday))
}

// ShowView lists a chat view and remembers it as the owner's list context.
func (m *Manager) ShowView(ctx context.Context, owner *domain.Owner, view domain.ListView) (*ListResult, error) {
	res, err := m.List(ctx, owner, m.ViewQuery(view))
	if err != nil {
		return nil, err
	}
	if owner.LastView != view {
		updated := *owner
		updated.LastView = view
		if err := m.store.UpdateOwner(ctx, &updated); err != nil {
			// Positions fall back to the previous view; the listing itself is fine.
			observability.LoggerFromContext(ctx).Warn("failed to record list view", "owner_id", owner.ID, "error", err)
		} else {
			*owner = updated
		}
	}
	return res, nil
}

func (m *Manager) Get(ctx context.Context, owner *domain.Owner, id domain.TaskID) (*domain.Task, error) {
	t, err := m.store.GetTask(ctx, owner.ID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Kind: "task", Ref: string(id)}
		}
		return nil, storageErr("get task", err)
	}
	return t, nil
}

// ─────────────────────────────────────────────
// Addressing
// ─────────────────────────────────────────────

// Ref points at a task either by its 1-based position in the owner's last
// chat listing or by its stable id.
type Ref struct {
	Position int
	ID       domain.TaskID
}

// ParseRef reads a chat argument: integers are positions, anything else an id.
func ParseRef(raw string) (Ref, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return Ref{Position: n}, true
	}
	return Ref{ID: domain.TaskID(raw)}, true
}

func (r Ref) isPosition() bool { return r.ID == "" }

// ResolvePosition re-runs the listing for view and returns the task shown at
// position. Concurrent edits between the listing and this call can shift
// positions; the deterministic view query keeps that window between
// messages.
func (m *Manager) ResolvePosition(ctx context.Context, owner *domain.Owner, position int, view domain.ListView) (*domain.Task, error) {
	if position < 1 {
		return nil, &domain.NotFoundError{Kind: "task number", Ref: strconv.Itoa(position)}
	}
	q := m.ViewQuery(view)
	if position > q.Page.Limit {
		return nil, &domain.NotFoundError{Kind: "task number", Ref: strconv.Itoa(position)}
	}
	found, _, err := m.store.QueryTasks(ctx, owner.ID, q)
	if err != nil {
		return nil, storageErr("query tasks", err)
	}
	if position > len(found) {
		return nil, &domain.NotFoundError{Kind: "task number", Ref: strconv.Itoa(position)}
	}
	return found[position-1], nil
}

// Resolve turns a Ref into a task using the owner's last list view.
func (m *Manager) Resolve(ctx context.Context, owner *domain.Owner, ref Ref) (*domain.Task, error) {
	if ref.isPosition() {
		return m.ResolvePosition(ctx, owner, ref.Position, lastView(owner))
	}
	return m.Get(ctx, owner, ref.ID)
}

func lastView(o *domain.Owner) domain.ListView {
	if o.LastView == "" {
		return domain.ViewAll
	}
	return o.LastView
}

// ─────────────────────────────────────────────
// Mutations
// ─────────────────────────────────────────────

// MarkDone sets the task's status to Done. Repeating the call is harmless.
func (m *Manager) MarkDone(ctx context.Context, owner *domain.Owner, ref Ref) (*domain.Task, error) {
	target, err := m.Resolve(ctx, owner, ref)
	if err != nil {
		return nil, err
	}
	updated, err := m.store.UpdateTaskStatus(ctx, owner.ID, target.ID, domain.StatusDone, m.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Kind: "task", Ref: string(target.ID)}
		}
		return nil, storageErr("update task status", err)
	}
	observability.LoggerFromContext(ctx).Info("task marked done", "owner_id", owner.ID, "task_id", updated.ID)

	m.mirror(ctx, owner, updated)
	return updated, nil
}

// Delete removes the task and reports whether anything was removed. An
// out-of-range position is a NotFoundError; an unknown id is simply false.
func (m *Manager) Delete(ctx context.Context, owner *domain.Owner, ref Ref) (bool, error) {
	target, err := m.Resolve(ctx, owner, ref)
	if err != nil {
		if !ref.isPosition() && errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	removed, err := m.store.DeleteTask(ctx, owner.ID, target.ID)
	if err != nil {
		return false, storageErr("delete task", err)
	}
	if removed {
		observability.LoggerFromContext(ctx).Info("task deleted", "owner_id", owner.ID, "task_id", target.ID)
		m.unmirror(ctx, target)
	}
	return removed, nil
}

// Update applies p to the task id. Status may be set to any value here.
func (m *Manager) Update(ctx context.Context, owner *domain.Owner, id domain.TaskID, p Patch) (*domain.Task, error) {
	current, err := m.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	updated, err := p.Apply(current, m.Now())
	if err != nil {
		return nil, err
	}
	if err := m.store.UpdateTask(ctx, updated); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.NotFoundError{Kind: "task", Ref: string(id)}
		}
		return nil, storageErr("update task", err)
	}
	m.mirror(ctx, owner, updated)
	return updated, nil
}

// ─────────────────────────────────────────────
// Calendar mirror
// ─────────────────────────────────────────────

func (m *Manager) mirror(ctx context.Context, owner *domain.Owner, task *domain.Task) {
	if m.calendar == nil || !owner.CalendarSync {
		return
	}
	log := observability.LoggerFromContext(ctx).With("owner_id", owner.ID, "task_id", task.ID)

	eventID, err := m.calendar.UpsertEvent(ctx, task)
	if err != nil {
		log.Warn("calendar upsert failed", "error", err)
		return
	}
	if eventID == task.CalendarEventID {
		return
	}
	task.CalendarEventID = eventID
	if err := m.store.UpdateTask(ctx, task); err != nil {
		log.Warn("failed to store calendar event id", "error", err)
	}
}

func (m *Manager) unmirror(ctx context.Context, task *domain.Task) {
	if m.calendar == nil || task.CalendarEventID == "" {
		return
	}
	if err := m.calendar.DeleteEvent(ctx, task.CalendarEventID); err != nil {
		observability.LoggerFromContext(ctx).Warn("calendar delete failed", "task_id", task.ID, "error", err)
	}
}

func storageErr(op string, err error) error {
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StorageError{Op: op, Err: err}
}
