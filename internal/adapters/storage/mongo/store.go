// Package mongo stores owners and tasks in MongoDB, one collection each.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/PabloGalante/taskbot/internal/domain"
)

const (
	ownersCollection = "owners"
	tasksCollection  = "tasks"
)

type Store struct {
	client *mongo.Client
	owners *mongo.Collection
	tasks  *mongo.Collection
}

// NewStore connects to uri, pings the server and ensures the indexes the
// queries rely on.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" || database == "" {
		return nil, fmt.Errorf("mongo uri and database are required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		owners: db.Collection(ownersCollection),
		tasks:  db.Collection(tasksCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.owners.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "phone_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating owners index: %w", err)
	}
	_, err = s.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "due_date", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating tasks indexes: %w", err)
	}
	return nil
}

type ownerDoc struct {
	ID           string    `bson:"_id"`
	PhoneKey     string    `bson:"phone_key"`
	Name         string    `bson:"name"`
	CalendarSync bool      `bson:"calendar_sync"`
	LastView     string    `bson:"last_view"`
	CreatedAt    time.Time `bson:"created_at"`
	LastActiveAt time.Time `bson:"last_active_at"`
}

func (d ownerDoc) toDomain() *domain.Owner {
	return &domain.Owner{
		ID:           domain.OwnerID(d.ID),
		PhoneKey:     d.PhoneKey,
		Name:         d.Name,
		CalendarSync: d.CalendarSync,
		LastView:     domain.ListView(d.LastView),
		CreatedAt:    d.CreatedAt,
		LastActiveAt: d.LastActiveAt,
	}
}

type taskDoc struct {
	ID              string    `bson:"_id"`
	OwnerID         string    `bson:"owner_id"`
	Description     string    `bson:"description"`
	Status          string    `bson:"status"`
	Priority        string    `bson:"priority"`
	PriorityRank    int       `bson:"priority_rank"`
	DueDate         time.Time `bson:"due_date"`
	Course          *string   `bson:"course"`
	Repeat          string    `bson:"repeat"`
	CalendarEventID string    `bson:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toTaskDoc(t *domain.Task) taskDoc {
	return taskDoc{
		ID:              string(t.ID),
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

func (d taskDoc) toDomain() *domain.Task {
	return &domain.Task{
		ID:              domain.TaskID(d.ID),
		OwnerID:         domain.OwnerID(d.OwnerID),
		Description:     d.Description,
		Status:          domain.Status(d.Status),
		Priority:        domain.Priority(d.Priority),
		DueDate:         d.DueDate,
		Course:          d.Course,
		Repeat:          domain.Repeat(d.Repeat),
		CalendarEventID: d.CalendarEventID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// OwnerStore

func (s *Store) FindOrCreateOwner(ctx context.Context, phoneKey string, now time.Time) (*domain.Owner, error) {
	update := bson.M{
		"$set": bson.M{"last_active_at": now},
		"$setOnInsert": bson.M{
			"_id":           domain.NewID(now),
			"name":          "",
			"calendar_sync": false,
			"last_view":     string(domain.ViewAll),
			"created_at":    now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc ownerDoc
	err := s.owners.FindOneAndUpdate(ctx, bson.M{"phone_key": phoneKey}, update, opts).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("mongo FindOrCreateOwner: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) UpdateOwner(ctx context.Context, owner *domain.Owner) error {
	res, err := s.owners.UpdateByID(ctx, string(owner.ID), bson.M{"$set": bson.M{
		"name":           owner.Name,
		"calendar_sync":  owner.CalendarSync,
		"last_view":      string(owner.LastView),
		"last_active_at": owner.LastActiveAt,
	}})
	if err != nil {
		return fmt.Errorf("mongo UpdateOwner: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TaskStore

func (s *Store) InsertTask(ctx context.Context, t *domain.Task) error {
	if _, err := s.tasks.InsertOne(ctx, toTaskDoc(t)); err != nil {
		return fmt.Errorf("mongo InsertTask: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID) (*domain.Task, error) {
	var doc taskDoc
	err := s.tasks.FindOne(ctx, taskKey(ownerID, id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mongo GetTask: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) QueryTasks(ctx context.Context, ownerID domain.OwnerID, q domain.TaskQuery) ([]*domain.Task, int, error) {
	filter := buildFilter(ownerID, q.Filter)

	total, err := s.tasks.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo QueryTasks count: %w", err)
	}

	opts := options.Find().SetSort(buildSort(q.Sort))
	if q.Page.Skip > 0 {
		opts.SetSkip(int64(q.Page.Skip))
	}
	if q.Page.Limit > 0 {
		opts.SetLimit(int64(q.Page.Limit))
	}

	cur, err := s.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("mongo QueryTasks: %w", err)
	}
	defer cur.Close(ctx)

	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("mongo QueryTasks decode: %w", err)
	}
	out := make([]*domain.Task, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, int(total), nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID, st domain.Status, now time.Time) (*domain.Task, error) {
	update := bson.M{"$set": bson.M{"status": string(st), "updated_at": now}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc taskDoc
	err := s.tasks.FindOneAndUpdate(ctx, taskKey(ownerID, id), update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mongo UpdateTaskStatus: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) UpdateTask(ctx context.Context, t *domain.Task) error {
	res, err := s.tasks.ReplaceOne(ctx, taskKey(t.OwnerID, t.ID), toTaskDoc(t))
	if err != nil {
		return fmt.Errorf("mongo UpdateTask: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID domain.OwnerID, id domain.TaskID) (bool, error) {
	res, err := s.tasks.DeleteOne(ctx, taskKey(ownerID, id))
	if err != nil {
		return false, fmt.Errorf("mongo DeleteTask: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func taskKey(ownerID domain.OwnerID, id domain.TaskID) bson.M {
	return bson.M{"_id": string(id), "owner_id": string(ownerID)}
}

func buildFilter(ownerID domain.OwnerID, f domain.TaskFilter) bson.M {
	filter := bson.M{"owner_id": string(ownerID)}

	status := bson.M{}
	if f.Status != "" {
		status["$eq"] = string(f.Status)
	}
	if f.ExcludeStatus != "" {
		status["$ne"] = string(f.ExcludeStatus)
	}
	if len(status) > 0 {
		filter["status"] = status
	}
	if f.Priority != "" {
		filter["priority"] = string(f.Priority)
	}
	if f.Course != "" {
		filter["course"] = f.Course
	}

	due := bson.M{}
	if f.DueFrom != nil {
		due["$gte"] = *f.DueFrom
	}
	if f.DueTo != nil {
		due["$lte"] = *f.DueTo
	}
	if len(due) > 0 {
		filter["due_date"] = due
	}
	return filter
}

// buildSort mirrors domain.Sort.Less: primary field, due date, id.
func buildSort(s domain.Sort) bson.D {
	dir := 1
	if s.Direction == domain.Desc {
		dir = -1
	}
	switch s.Field {
	case domain.SortPriority:
		return bson.D{{Key: "priority_rank", Value: dir}, {Key: "due_date", Value: 1}, {Key: "_id", Value: 1}}
	case domain.SortCreatedAt:
		return bson.D{{Key: "created_at", Value: dir}, {Key: "due_date", Value: 1}, {Key: "_id", Value: 1}}
	case domain.SortStatus:
		return bson.D{{Key: "status", Value: dir}, {Key: "due_date", Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "due_date", Value: dir}, {Key: "_id", Value: 1}}
	}
}
