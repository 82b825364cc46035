// Package calendar mirrors tasks into a Google Calendar.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/PabloGalante/taskbot/internal/domain"
)

// taskIDProperty is the private extended property linking an event to its task.
const taskIDProperty = "taskbot_task_id"

// DefaultEventLength is how long a mirrored event lasts, ending at the due date.
const DefaultEventLength = 30 * time.Minute

type Client struct {
	srv         *gcal.Service
	calendarID  string
	loc         *time.Location
	eventLength time.Duration
}

// New builds a client from a service account credentials file.
func New(ctx context.Context, credentialsFile, calendarID string, loc *time.Location) (*Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read calendar credentials %s: %w", credentialsFile, err)
	}
	creds, err := google.CredentialsFromJSON(ctx, b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse calendar credentials: %w", err)
	}

	srv, err := gcal.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar client: %w", err)
	}
	return NewWithService(srv, calendarID, loc), nil
}

// NewWithService wraps an existing Calendar service.
func NewWithService(srv *gcal.Service, calendarID string, loc *time.Location) *Client {
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{srv: srv, calendarID: calendarID, loc: loc, eventLength: DefaultEventLength}
}

// UpsertEvent patches the task's event, or creates it when the task has
// none yet (or its event was removed on the calendar side).
func (c *Client) UpsertEvent(ctx context.Context, task *domain.Task) (string, error) {
	event := c.toEvent(task)

	eventID := task.CalendarEventID
	if eventID == "" {
		existing, err := c.findByTaskID(ctx, task.ID)
		if err != nil {
			return "", fmt.Errorf("error searching for event: %w", err)
		}
		if existing != nil {
			eventID = existing.Id
		}
	}

	if eventID != "" {
		patched, err := c.srv.Events.Patch(c.calendarID, eventID, event).Context(ctx).Do()
		if err == nil {
			return patched.Id, nil
		}
		if !isGone(err) {
			return "", fmt.Errorf("patching event %s: %w", eventID, err)
		}
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("inserting event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent removes the event. An event that is already gone is not an error.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil && !isGone(err) {
		return fmt.Errorf("deleting event %s: %w", eventID, err)
	}
	return nil
}

func (c *Client) findByTaskID(ctx context.Context, id domain.TaskID) (*gcal.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", taskIDProperty, id)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

func (c *Client) toEvent(task *domain.Task) *gcal.Event {
	end := task.DueDate.In(c.loc)
	start := end.Add(-c.eventLength)

	summary := task.Description
	if task.Status == domain.StatusDone {
		summary = "✔ " + summary
	}

	lines := []string{"Priority: " + string(task.Priority), "Status: " + string(task.Status)}
	if task.Course != nil {
		lines = append(lines, "Course: "+*task.Course)
	}

	ev := &gcal.Event{
		Summary:     summary,
		Description: strings.Join(lines, "\n"),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: c.loc.String()},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: c.loc.String()},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{taskIDProperty: string(task.ID)},
		},
	}
	if rule := recurrence(task.Repeat); rule != "" {
		ev.Recurrence = []string{rule}
	}
	return ev
}

func recurrence(r domain.Repeat) string {
	switch r {
	case domain.RepeatDaily:
		return "RRULE:FREQ=DAILY"
	case domain.RepeatWeekly:
		return "RRULE:FREQ=WEEKLY"
	case domain.RepeatMonthly:
		return "RRULE:FREQ=MONTHLY"
	case domain.RepeatYearly:
		return "RRULE:FREQ=YEARLY"
	default:
		return ""
	}
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}
