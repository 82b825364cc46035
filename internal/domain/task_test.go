package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseEnums(t *testing.T) {
	if s, ok := ParseStatus(" in-progress "); !ok || s != StatusInProgress {
		t.Errorf("ParseStatus = %q, %v", s, ok)
	}
	if _, ok := ParseStatus("finished"); ok {
		t.Error("ParseStatus(finished) should fail")
	}
	if p, ok := ParsePriority("HIGH"); !ok || p != PriorityHigh {
		t.Errorf("ParsePriority = %q, %v", p, ok)
	}
	if _, ok := ParsePriority("urgent"); ok {
		t.Error("ParsePriority(urgent) should fail")
	}
	if r, ok := ParseRepeat("weekly"); !ok || r != RepeatWeekly {
		t.Errorf("ParseRepeat = %q, %v", r, ok)
	}
	if _, ok := ParseRepeat("hourly"); ok {
		t.Error("ParseRepeat(hourly) should fail")
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityHigh.Rank() > PriorityMedium.Rank() && PriorityMedium.Rank() > PriorityLow.Rank()) {
		t.Fatal("priority ranks out of order")
	}
	if Priority("").Rank() >= PriorityLow.Rank() {
		t.Fatal("unknown priority should rank below Low")
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	task := &Task{Status: StatusNew, DueDate: now.Add(-time.Minute)}
	if !task.IsOverdue(now) {
		t.Error("open task past due should be overdue")
	}
	task.Status = StatusDone
	if task.IsOverdue(now) {
		t.Error("done task is never overdue")
	}
	task.Status = StatusNew
	task.DueDate = now.Add(time.Minute)
	if task.IsOverdue(now) {
		t.Error("future task should not be overdue")
	}
}

func TestCloneCopiesCourse(t *testing.T) {
	course := "Math"
	orig := &Task{ID: "x", Course: &course}
	c := orig.Clone()
	*c.Course = "Physics"
	if *orig.Course != "Math" {
		t.Fatalf("clone shares course pointer")
	}
	if (*Task)(nil).Clone() != nil {
		t.Fatal("nil clone should be nil")
	}
}

func TestNormalizePhoneKey(t *testing.T) {
	tests := map[string]string{
		"whatsapp:+1 555-123-4567": "+15551234567",
		"WhatsApp:15551234567":     "+15551234567",
		"(555) 123.4567":           "+5551234567",
		"++44 20":                  "+4420",
		"whatsapp:":                "",
		"   ":                      "",
	}
	for in, want := range tests {
		if got := NormalizePhoneKey(in); got != want {
			t.Errorf("NormalizePhoneKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewIDSortsByTime(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewID(t0)
	b := NewID(t0)
	c := NewID(t0.Add(time.Second))
	if !(a < b && b < c) {
		t.Fatalf("ids not monotonic: %s %s %s", a, b, c)
	}
	if len(a) != 26 {
		t.Fatalf("len(id) = %d, want 26", len(a))
	}
}

func TestErrorsMatchSentinels(t *testing.T) {
	var err error = NewValidationError("a", "b")
	if !errors.Is(err, ErrValidation) || err.Error() != "a; b" {
		t.Errorf("validation error = %v", err)
	}

	err = fmt.Errorf("wrapped: %w", &NotFoundError{Kind: "task", Ref: "42"})
	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Error() != "task 42 not found" {
		t.Errorf("NotFoundError = %v", nf)
	}

	cause := errors.New("disk full")
	err = &StorageError{Op: "insert", Err: cause}
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Error("StorageError should match ErrStorage and its cause")
	}
}
