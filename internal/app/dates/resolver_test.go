package dates_test

import (
	"testing"
	"time"

	"github.com/PabloGalante/taskbot/internal/app/dates"
)

func TestResolve(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := dates.NewResolver()

	tests := []struct {
		fragment string
		want     time.Time
	}{
		{"today", time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)},
		{"  TODAY ", time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)},
		{"tomorrow", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)},
		{"today at 5pm", time.Date(2024, 1, 1, 17, 0, 0, 0, time.UTC)},
		{"today at 9:45am", time.Date(2024, 1, 1, 9, 45, 0, 0, time.UTC)},
		{"tomorrow 5pm", time.Date(2024, 1, 2, 17, 0, 0, 0, time.UTC)},
		{"tomorrow at 12am", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"tomorrow at 12pm", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)},
		{"tomorrow at 18:30", time.Date(2024, 1, 2, 18, 30, 0, 0, time.UTC)},
		{"02/29/2024", time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)},
		{"3/7", time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)},
		{"12/31/2025", time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := r.Resolve(tt.fragment, now)
		if !ok {
			t.Errorf("Resolve(%q): no match", tt.fragment)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("Resolve(%q) = %v, want %v", tt.fragment, got, tt.want)
		}
	}
}

func TestResolveRejects(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := dates.NewResolver()

	for _, fragment := range []string{
		"",
		"   ",
		"13/40/2024",
		"02/30/2024",
		"02/29/2023",
		"0/10/2024",
		"today at 13pm",
		"tomorrow at 25",
		"today at 5:75",
		"next friday",
		"today at",
		"today5pm",
		"tomorrow12",
		"today at5pm",
		"soon",
	} {
		if got, ok := r.Resolve(fragment, now); ok {
			t.Errorf("Resolve(%q) = %v, want no match", fragment, got)
		}
	}
}

func TestResolveOrDefault(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	r := dates.NewResolver()

	want := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)
	if got := r.ResolveOrDefault("whenever", now); !got.Equal(want) {
		t.Fatalf("fallback = %v, want %v", got, want)
	}
	if got := r.ResolveOrDefault("", now); !got.Equal(dates.DefaultDue(now)) {
		t.Fatalf("empty fragment = %v, want default", got)
	}
	today, _ := r.Resolve("today", now)
	if !today.Equal(dates.DefaultDue(now)) {
		t.Fatalf("today and the default must be the same instant")
	}
}

func TestResolveUsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2024, 6, 10, 22, 0, 0, 0, loc)

	got, ok := dates.NewResolver().Resolve("tomorrow", now)
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Location() != loc || got.Day() != 11 || got.Hour() != dates.DefaultHour {
		t.Fatalf("got %v", got)
	}
}

func TestDayBounds(t *testing.T) {
	now := time.Date(2024, 5, 5, 15, 0, 0, 0, time.UTC)
	start, end := dates.DayBounds(now)

	if !start.Equal(time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", start)
	}
	if !end.Before(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end %v reaches the next day", end)
	}
	if end.Before(dates.EndOfDay(now)) {
		t.Fatalf("end %v excludes 23:59:59", end)
	}
}

func TestCustomGrammarOrder(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	noon := dates.Grammar{Name: "noon", Match: func(f string, now time.Time) (time.Time, bool) {
		if f != "noon" {
			return time.Time{}, false
		}
		return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location()), true
	}}
	r := dates.NewResolverWith(noon)

	if _, ok := r.Resolve("today", now); ok {
		t.Fatal("custom resolver should not know the default grammars")
	}
	if got, ok := r.Resolve("Noon", now); !ok || got.Hour() != 12 {
		t.Fatalf("Resolve(noon) = %v, %v", got, ok)
	}
}
