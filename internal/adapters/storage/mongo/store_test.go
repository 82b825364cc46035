package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/PabloGalante/taskbot/internal/domain"
)

func TestBuildFilter(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Nanosecond)

	got := buildFilter("owner-1", domain.TaskFilter{
		ExcludeStatus: domain.StatusDone,
		Course:        "Math",
		DueFrom:       &from,
		DueTo:         &to,
	})

	if got["owner_id"] != "owner-1" {
		t.Fatalf("owner_id = %v", got["owner_id"])
	}
	status, ok := got["status"].(bson.M)
	if !ok || status["$ne"] != string(domain.StatusDone) {
		t.Fatalf("status = %#v", got["status"])
	}
	if got["course"] != "Math" {
		t.Fatalf("course = %v", got["course"])
	}
	due, ok := got["due_date"].(bson.M)
	if !ok || due["$gte"] != from || due["$lte"] != to {
		t.Fatalf("due_date = %#v", got["due_date"])
	}
	if _, ok := got["priority"]; ok {
		t.Fatalf("unexpected priority constraint")
	}
}

func TestBuildSort(t *testing.T) {
	got := buildSort(domain.Sort{Field: domain.SortPriority, Direction: domain.Desc})
	want := bson.D{{Key: "priority_rank", Value: -1}, {Key: "due_date", Value: 1}, {Key: "_id", Value: 1}}
	if len(got) != len(want) {
		t.Fatalf("sort = %v", got)
	}
	for i := range want {
		if got[i].Key != want[i].Key || got[i].Value != want[i].Value {
			t.Fatalf("sort[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	def := buildSort(domain.DefaultSort)
	if def[0].Key != "due_date" || def[0].Value != 1 {
		t.Fatalf("default sort = %v", def)
	}
}

func TestTaskDocRoundTrip(t *testing.T) {
	course := "Biology"
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	task := &domain.Task{
		ID:          "t1",
		OwnerID:     "o1",
		Description: "Lab report",
		Status:      domain.StatusNew,
		Priority:    domain.PriorityHigh,
		DueDate:     now,
		Course:      &course,
		Repeat:      domain.RepeatWeekly,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	doc := toTaskDoc(task)
	if doc.PriorityRank != 3 {
		t.Fatalf("priority_rank = %d", doc.PriorityRank)
	}
	back := doc.toDomain()
	if back.Description != task.Description || *back.Course != course || back.Repeat != domain.RepeatWeekly {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}
