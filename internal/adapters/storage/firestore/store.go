package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/taskbot/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (TASKBOT_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) ownersCol() *firestore.CollectionRef {
	return s.client.Collection("owners")
}

func (s *Store) ownerDoc(id domain.OwnerID) *firestore.DocumentRef {
	return s.ownersCol().Doc(string(id))
}

func (s *Store) tasksCol(ownerID domain.OwnerID) *firestore.CollectionRef {
	return s.ownerDoc(ownerID).Collection("tasks")
}

func (s *Store) taskDoc(ownerID domain.OwnerID, id domain.TaskID) *firestore.DocumentRef {
	return s.tasksCol(ownerID).Doc(string(id))
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type ownerDoc struct {
	PhoneKey     string    `firestore:"phone_key"`
	Name         string    `firestore:"name"`
	CalendarSync bool      `firestore:"calendar_sync"`
	LastView     string    `firestore:"last_view"`
	CreatedAt    time.Time `firestore:"created_at"`
	LastActiveAt time.Time `firestore:"last_active_at"`
}

type taskDoc struct {
	OwnerID         string    `firestore:"owner_id"`
	Description     string    `firestore:"description"`
	Status          string    `firestore:"status"`
	Priority        string    `firestore:"priority"`
	PriorityRank    int       `firestore:"priority_rank"`
	DueDate         time.Time `firestore:"due_date"`
	Course          *string   `firestore:"course"`
	Repeat          string    `firestore:"repeat"`
	CalendarEventID string    `firestore:"calendar_event_id"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

func toTaskDoc(t *domain.Task) taskDoc {
	return taskDoc{
		OwnerID:         string(t.OwnerID),
		Description:     t.Description,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		PriorityRank:    t.Priority.Rank(),
		DueDate:         t.DueDate,
		Course:          t.Course,
		Repeat:          string(t.Repeat),
		CalendarEventID: t.CalendarEventID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func fromTaskSnap(snap *firestore.DocumentSnapshot) (*domain.Task, error) {
	var doc taskDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode taskDoc: %w", err)
	}
	return &domain.Task{
		ID:              domain.TaskID(snap.Ref.ID),
		OwnerID:         domain.OwnerID(doc.OwnerID),
		Description:     doc.Description,
		Status:          domain.Status(doc.Status),
		Priority:        domain.Priority(doc.Priority),
		DueDate:         doc.DueDate,
		Course:          doc.Course,
		Repeat:          domain.Repeat(doc.Repeat),
		CalendarEventID: doc.CalendarEventID,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}

func fromOwnerSnap(snap *firestore.DocumentSnapshot) (*domain.Owner, error) {
	var doc ownerDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode ownerDoc: %w", err)
	}
	return &domain.Owner{
		ID:           domain.OwnerID(snap.Ref.ID),
		PhoneKey:     doc.PhoneKey,
		Name:         doc.Name,
		CalendarSync: doc.CalendarSync,
		LastView:     domain.ListView(doc.LastView),
		CreatedAt:    doc.CreatedAt,
		LastActiveAt: doc.LastActiveAt,
	}, nil
}

// ─────────────────────────────────────────
// OwnerStore implementation
// ─────────────────────────────────────────

func (s *Store) FindOrCreateOwner(ctx context.Context, phoneKey string, now time.Time) (*domain.Owner, error) {
	var owner *domain.Owner

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		q := s.ownersCol().Where("phone_key", "==", phoneKey).Limit(1)
		snaps, err := tx.Documents(q).GetAll()
		if err != nil {
			return err
		}

		if len(snaps) > 0 {
			o, err := fromOwnerSnap(snaps[0])
			if err != nil {
				return err
			}
			o.LastActiveAt = now
			owner = o
			return tx.Update(snaps[0].Ref, []firestore.Update{{Path: "last_active_at", Value: now}})
		}

		o := &domain.Owner{
			ID:           domain.OwnerID(domain.NewID(now)),
			PhoneKey:     phoneKey,
			LastView:     domain.ViewAll,
			CreatedAt:    now,
			LastActiveAt: now,
		}
		owner = o
		return tx.Create(s.ownerDoc(o.ID), ownerDoc{
			PhoneKey:     o.PhoneKey,
			LastView:     string(o.LastView),
			CreatedAt:    o.CreatedAt,
			LastActiveAt: o.LastActiveAt,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("firestore FindOrCreateOwner: %w", err)
	}
	return owner, nil
}

func (s *Store) UpdateOwner(ctx context.Context, owner *domain.Owner) error {
	_, err := s.ownerDoc(owner.ID).Update(ctx, []firestore.Update{
		{Path: "name", Value: owner.Name},
		{Path: "calendar_sync", Value: owner.CalendarSync},
		{Path: "last_view", Value: string(owner.LastView)},
		{Path: "last_active_at", Value: owner.LastActiveAt},
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore UpdateOwner: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// TaskStore implementation
// ─────────────────────────────────────────

func (s *Store) InsertTask(ctx context.Context, t *domain.Task) error {
	_, err := s.taskDoc(t.OwnerID, t.ID).Create(ctx, toTaskDoc(t))
	if err != nil {
		return fmt.Errorf("firestore InsertTask: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID) (*domain.Task, error) {
	snap, err := s.taskDoc(ownerID, id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore GetTask: %w", err)
	}
	return fromTaskSnap(snap)
}

func (s *Store) QueryTasks(ctx context.Context, ownerID domain.OwnerID, q domain.TaskQuery) ([]*domain.Task, int, error) {
	query := applyFilter(s.tasksCol(ownerID).Query, q.Filter)

	total, err := count(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("firestore QueryTasks count: %w", err)
	}

	query = applySort(query, q.Sort)
	if q.Page.Skip > 0 {
		query = query.Offset(q.Page.Skip)
	}
	if q.Page.Limit > 0 {
		query = query.Limit(q.Page.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Task
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, 0, fmt.Errorf("firestore QueryTasks: %w", err)
		}
		t, err := fromTaskSnap(snap)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID, st domain.Status, now time.Time) (*domain.Task, error) {
	_, err := s.taskDoc(ownerID, id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "updated_at", Value: now},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("firestore UpdateTaskStatus: %w", err)
	}
	return s.GetTask(ctx, ownerID, id)
}

func (s *Store) UpdateTask(ctx context.Context, t *domain.Task) error {
	doc := toTaskDoc(t)
	_, err := s.taskDoc(t.OwnerID, t.ID).Update(ctx, []firestore.Update{
		{Path: "description", Value: doc.Description},
		{Path: "status", Value: doc.Status},
		{Path: "priority", Value: doc.Priority},
		{Path: "priority_rank", Value: doc.PriorityRank},
		{Path: "due_date", Value: doc.DueDate},
		{Path: "course", Value: doc.Course},
		{Path: "repeat", Value: doc.Repeat},
		{Path: "calendar_event_id", Value: doc.CalendarEventID},
		{Path: "updated_at", Value: doc.UpdatedAt},
	})
	if err != nil {
		if isNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("firestore UpdateTask: %w", err)
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID) (bool, error) {
	_, err := s.taskDoc(ownerID, id).Delete(ctx, firestore.Exists)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("firestore DeleteTask: %w", err)
	}
	return true, nil
}

// ─────────────────────────────────────────
// Query building
// ─────────────────────────────────────────

func applyFilter(q firestore.Query, f domain.TaskFilter) firestore.Query {
	if f.Status != "" {
		q = q.Where("status", "==", string(f.Status))
	}
	if f.ExcludeStatus != "" {
		q = q.Where("status", "!=", string(f.ExcludeStatus))
	}
	if f.Priority != "" {
		q = q.Where("priority", "==", string(f.Priority))
	}
	if f.Course != "" {
		q = q.Where("course", "==", f.Course)
	}
	if f.DueFrom != nil {
		q = q.Where("due_date", ">=", *f.DueFrom)
	}
	if f.DueTo != nil {
		q = q.Where("due_date", "<=", *f.DueTo)
	}
	return q
}

type orderKey struct {
	path string
	dir  firestore.Direction
}

// sortKeys reproduces domain.Sort.Less: primary field, due date, document id.
// Combined with filters these need the composite indexes in
// firestore.indexes.json; the today view (status != Done, due_date range,
// priority_rank desc) is the one chat needs.
func sortKeys(s domain.Sort) []orderKey {
	dir := firestore.Asc
	if s.Direction == domain.Desc {
		dir = firestore.Desc
	}
	tail := []orderKey{{"due_date", firestore.Asc}, {firestore.DocumentID, firestore.Asc}}
	switch s.Field {
	case domain.SortPriority:
		return append([]orderKey{{"priority_rank", dir}}, tail...)
	case domain.SortCreatedAt:
		return append([]orderKey{{"created_at", dir}}, tail...)
	case domain.SortStatus:
		return append([]orderKey{{"status", dir}}, tail...)
	default:
		return []orderKey{{"due_date", dir}, {firestore.DocumentID, firestore.Asc}}
	}
}

func applySort(q firestore.Query, s domain.Sort) firestore.Query {
	for _, k := range sortKeys(s) {
		q = q.OrderBy(k.path, k.dir)
	}
	return q
}

func count(ctx context.Context, q firestore.Query) (int, error) {
	res, err := q.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["total"].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("unexpected count result %T", res["total"])
	}
	return int(v.GetIntegerValue()), nil
}
