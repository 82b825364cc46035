// Package sqlite is a single-file domain.Store for self-hosted deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PabloGalante/taskbot/internal/domain"
)

type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at dbPath and migrates it.
func NewStore(dbPath string) (*Store, error) {
	if strings.HasPrefix(dbPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS owners (
			id TEXT PRIMARY KEY,
			phone_key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			calendar_sync INTEGER NOT NULL DEFAULT 0,
			last_view TEXT NOT NULL DEFAULT 'all',
			created_at INTEGER NOT NULL,
			last_active_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES owners(id),
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			priority_rank INTEGER NOT NULL,
			due_date INTEGER NOT NULL,
			course TEXT,
			repeat TEXT NOT NULL DEFAULT 'none',
			calendar_event_id TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_owner_due ON tasks(owner_id, due_date);
		CREATE INDEX IF NOT EXISTS idx_tasks_owner_status ON tasks(owner_id, status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────
// OwnerStore implementation
// ─────────────────────────────────────────

func (s *Store) FindOrCreateOwner(ctx context.Context, phoneKey string, now time.Time) (*domain.Owner, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO owners (id, phone_key, last_view, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(phone_key) DO UPDATE SET last_active_at = excluded.last_active_at`,
		domain.NewID(now), phoneKey, string(domain.ViewAll), now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite FindOrCreateOwner: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, phone_key, name, calendar_sync, last_view, created_at, last_active_at
		FROM owners WHERE phone_key = ?`, phoneKey)

	var (
		o                 domain.Owner
		calSync           int
		created, lastSeen int64
	)
	if err := row.Scan(&o.ID, &o.PhoneKey, &o.Name, &calSync, &o.LastView, &created, &lastSeen); err != nil {
		return nil, fmt.Errorf("sqlite FindOrCreateOwner scan: %w", err)
	}
	o.CalendarSync = calSync != 0
	o.CreatedAt = fromNanos(created, now.Location())
	o.LastActiveAt = fromNanos(lastSeen, now.Location())
	return &o, nil
}

func (s *Store) UpdateOwner(ctx context.Context, owner *domain.Owner) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE owners SET name = ?, calendar_sync = ?, last_view = ?, last_active_at = ?
		WHERE id = ?`,
		owner.Name, boolInt(owner.CalendarSync), string(owner.LastView), owner.LastActiveAt.UnixNano(), string(owner.ID),
	)
	if err != nil {
		return fmt.Errorf("sqlite UpdateOwner: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ─────────────────────────────────────────
// TaskStore implementation
// ─────────────────────────────────────────

const taskColumns = `id, owner_id, description, status, priority, due_date, course, repeat, calendar_event_id, created_at, updated_at`

func (s *Store) InsertTask(ctx context.Context, t *domain.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, owner_id, description, status, priority, priority_rank, due_date, course, repeat, calendar_event_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.OwnerID), t.Description, string(t.Status), string(t.Priority), t.Priority.Rank(),
		t.DueDate.UnixNano(), nullable(t.Course), string(t.Repeat), t.CalendarEventID,
		t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite InsertTask: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? AND id = ?`, string(ownerID), string(id))
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite GetTask: %w", err)
	}
	return t, nil
}

func (s *Store) QueryTasks(ctx context.Context, ownerID domain.OwnerID, q domain.TaskQuery) ([]*domain.Task, int, error) {
	where, args := whereClause(ownerID, q.Filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite QueryTasks count: %w", err)
	}

	limit := -1
	if q.Page.Limit > 0 {
		limit = q.Page.Limit
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY ` + orderClause(q.Sort) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, max(q.Page.Skip, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite QueryTasks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("decode task row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite QueryTasks: %w", err)
	}
	return out, total, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID, status domain.Status, now time.Time) (*domain.Task, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		string(status), now.UnixNano(), string(ownerID), string(id))
	if err != nil {
		return nil, fmt.Errorf("sqlite UpdateTaskStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetTask(ctx, ownerID, id)
}

func (s *Store) UpdateTask(ctx context.Context, t *domain.Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET description = ?, status = ?, priority = ?, priority_rank = ?, due_date = ?,
			course = ?, repeat = ?, calendar_event_id = ?, updated_at = ?
		WHERE owner_id = ? AND id = ?`,
		t.Description, string(t.Status), string(t.Priority), t.Priority.Rank(), t.DueDate.UnixNano(),
		nullable(t.Course), string(t.Repeat), t.CalendarEventID, t.UpdatedAt.UnixNano(),
		string(t.OwnerID), string(t.ID),
	)
	if err != nil {
		return fmt.Errorf("sqlite UpdateTask: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = ? AND id = ?`, string(ownerID), string(id))
	if err != nil {
		return false, fmt.Errorf("sqlite DeleteTask: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite DeleteTask: %w", err)
	}
	return n > 0, nil
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func whereClause(ownerID domain.OwnerID, f domain.TaskFilter) (string, []any) {
	conds := []string{"owner_id = ?"}
	args := []any{string(ownerID)}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ExcludeStatus != "" {
		conds = append(conds, "status <> ?")
		args = append(args, string(f.ExcludeStatus))
	}
	if f.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.Course != "" {
		conds = append(conds, "course = ?")
		args = append(args, f.Course)
	}
	if f.DueFrom != nil {
		conds = append(conds, "due_date >= ?")
		args = append(args, f.DueFrom.UnixNano())
	}
	if f.DueTo != nil {
		conds = append(conds, "due_date <= ?")
		args = append(args, f.DueTo.UnixNano())
	}
	return strings.Join(conds, " AND "), args
}

func orderClause(s domain.Sort) string {
	col := "due_date"
	switch s.Field {
	case domain.SortPriority:
		col = "priority_rank"
	case domain.SortCreatedAt:
		col = "created_at"
	case domain.SortStatus:
		col = "status"
	}
	dir := "ASC"
	if s.Direction == domain.Desc {
		dir = "DESC"
	}
	return col + " " + dir + ", due_date ASC, id ASC"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*domain.Task, error) {
	var (
		t                     domain.Task
		due, created, updated int64
		course                sql.NullString
	)
	err := sc.Scan(&t.ID, &t.OwnerID, &t.Description, &t.Status, &t.Priority, &due, &course,
		&t.Repeat, &t.CalendarEventID, &created, &updated)
	if err != nil {
		return nil, err
	}
	t.DueDate = fromNanos(due, time.UTC)
	t.CreatedAt = fromNanos(created, time.UTC)
	t.UpdatedAt = fromNanos(updated, time.UTC)
	if course.Valid {
		c := course.String
		t.Course = &c
	}
	return &t, nil
}

func fromNanos(n int64, loc *time.Location) time.Time {
	return time.Unix(0, n).In(loc)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
