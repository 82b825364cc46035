package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/PabloGalante/taskbot/internal/domain"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    []string
	existing string
	gone     map[string]bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	last := parts[len(parts)-1]

	switch r.Method {
	case http.MethodGet:
		items := []map[string]string{}
		if f.existing != "" {
			items = append(items, map[string]string{"id": f.existing})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	case http.MethodPost:
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "evt-new"})
	case http.MethodPatch, http.MethodDelete:
		if f.gone[last] {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 404, "message": "Not Found"}})
			return
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": last})
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	srv, err := gcal.NewService(context.Background(), option.WithEndpoint(ts.URL+"/"), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(srv, "", time.UTC)
}

func testTask() *domain.Task {
	return &domain.Task{
		ID:          "t1",
		Description: "Lab report",
		Status:      domain.StatusNew,
		Priority:    domain.PriorityHigh,
		DueDate:     time.Date(2024, 3, 2, 17, 0, 0, 0, time.UTC),
		Repeat:      domain.RepeatWeekly,
	}
}

func TestUpsertCreatesWhenMissing(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	id, err := c.UpsertEvent(context.Background(), testTask())
	if err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if id != "evt-new" {
		t.Fatalf("id = %q", id)
	}
	if len(api.calls) != 2 || !strings.HasPrefix(api.calls[0], "GET") || !strings.HasPrefix(api.calls[1], "POST") {
		t.Fatalf("calls = %v", api.calls)
	}
}

func TestUpsertPatchesKnownEvent(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	task := testTask()
	task.CalendarEventID = "evt-7"
	id, err := c.UpsertEvent(context.Background(), task)
	if err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if id != "evt-7" {
		t.Fatalf("id = %q", id)
	}
	if len(api.calls) != 1 || api.calls[0] != "PATCH /calendars/primary/events/evt-7" {
		t.Fatalf("calls = %v", api.calls)
	}
}

func TestUpsertRecreatesDeletedEvent(t *testing.T) {
	api := &fakeAPI{gone: map[string]bool{"evt-7": true}}
	c := newTestClient(t, api)

	task := testTask()
	task.CalendarEventID = "evt-7"
	id, err := c.UpsertEvent(context.Background(), task)
	if err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if id != "evt-new" {
		t.Fatalf("id = %q", id)
	}
}

func TestUpsertFindsEventByTaskID(t *testing.T) {
	api := &fakeAPI{existing: "evt-found"}
	c := newTestClient(t, api)

	id, err := c.UpsertEvent(context.Background(), testTask())
	if err != nil {
		t.Fatalf("UpsertEvent: %v", err)
	}
	if id != "evt-found" {
		t.Fatalf("id = %q", id)
	}
}

func TestDeleteIgnoresMissingEvent(t *testing.T) {
	api := &fakeAPI{gone: map[string]bool{"evt-9": true}}
	c := newTestClient(t, api)

	if err := c.DeleteEvent(context.Background(), "evt-9"); err != nil {
		t.Fatalf("DeleteEvent(gone) = %v", err)
	}
	if err := c.DeleteEvent(context.Background(), "evt-1"); err != nil {
		t.Fatalf("DeleteEvent = %v", err)
	}
}

func TestToEvent(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	c := NewWithService(nil, "team", loc)

	course := "Biology"
	task := testTask()
	task.Course = &course
	task.Status = domain.StatusDone

	ev := c.toEvent(task)
	if ev.Summary != "✔ Lab report" {
		t.Errorf("Summary = %q", ev.Summary)
	}
	if ev.End.DateTime != "2024-03-02T14:00:00-03:00" || ev.Start.DateTime != "2024-03-02T13:30:00-03:00" {
		t.Errorf("times = %s .. %s", ev.Start.DateTime, ev.End.DateTime)
	}
	if ev.ExtendedProperties.Private[taskIDProperty] != "t1" {
		t.Errorf("missing task id property")
	}
	if len(ev.Recurrence) != 1 || ev.Recurrence[0] != "RRULE:FREQ=WEEKLY" {
		t.Errorf("Recurrence = %v", ev.Recurrence)
	}
	if !strings.Contains(ev.Description, "Course: Biology") {
		t.Errorf("Description = %q", ev.Description)
	}
}
