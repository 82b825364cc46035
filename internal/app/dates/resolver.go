// Package dates turns the free-text due-date fragment of a chat message into
// an absolute time.
//
// Policy, applied in the location of the supplied "now":
//
//	today                      today 23:59:59
//	tomorrow                   tomorrow 12:00
//	today|tomorrow [at] 5[:30][am|pm]
//	                           that day at the given time
//	M/D[/YYYY]                 that date at 12:00, current year when omitted
//
// Anything else resolves to nothing and the caller falls back to
// DefaultDue, which is the same instant as "today".
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultHour is the time of day used when a grammar names a day but no time.
const DefaultHour = 12

// Grammar recognizes one textual date pattern. fragment is already
// lower-cased with whitespace collapsed.
type Grammar struct {
	Name  string
	Match func(fragment string, now time.Time) (time.Time, bool)
}

// Resolver tries its grammars in order and returns the first match.
type Resolver struct {
	grammars []Grammar
}

// NewResolver returns a resolver with the default grammars in precedence order.
func NewResolver() *Resolver {
	return &Resolver{grammars: DefaultGrammars()}
}

// NewResolverWith returns a resolver over a custom ordered grammar list.
func NewResolverWith(grammars ...Grammar) *Resolver {
	return &Resolver{grammars: grammars}
}

func DefaultGrammars() []Grammar {
	return []Grammar{
		{Name: "today", Match: matchToday},
		{Name: "tomorrow", Match: matchTomorrow},
		{Name: "day-at-time", Match: matchDayAtTime},
		{Name: "month-day-year", Match: matchCalendarDate},
	}
}

// Resolve returns the instant named by fragment. ok is false when the
// fragment is empty or matches no grammar; it never panics on bad input.
func (r *Resolver) Resolve(fragment string, now time.Time) (t time.Time, ok bool) {
	f := normalize(fragment)
	if f == "" {
		return time.Time{}, false
	}
	for _, g := range r.grammars {
		if t, ok := g.Match(f, now); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveOrDefault resolves fragment and falls back to DefaultDue.
func (r *Resolver) ResolveOrDefault(fragment string, now time.Time) time.Time {
	if t, ok := r.Resolve(fragment, now); ok {
		return t
	}
	return DefaultDue(now)
}

// DefaultDue is the due date given to tasks whose message names none.
func DefaultDue(now time.Time) time.Time {
	return EndOfDay(now)
}

// StartOfDay returns 00:00:00 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// DayBounds returns the inclusive range covering every instant of t's day.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func matchToday(f string, now time.Time) (time.Time, bool) {
	if f != "today" {
		return time.Time{}, false
	}
	return EndOfDay(now), true
}

func matchTomorrow(f string, now time.Time) (time.Time, bool) {
	if f != "tomorrow" {
		return time.Time{}, false
	}
	return atClock(now.AddDate(0, 0, 1), DefaultHour, 0), true
}

// fragment is normalized, so separators are single spaces.
var dayAtTimeRe = regexp.MustCompile(`^(today|tomorrow)(?: at)? (\d{1,2})(?::(\d{2}))? ?(am|pm)?$`)

func matchDayAtTime(f string, now time.Time) (time.Time, bool) {
	m := dayAtTimeRe.FindStringSubmatch(f)
	if m == nil {
		return time.Time{}, false
	}
	hour, minute, ok := clock(m[2], m[3], m[4])
	if !ok {
		return time.Time{}, false
	}
	day := now
	if m[1] == "tomorrow" {
		day = now.AddDate(0, 0, 1)
	}
	return atClock(day, hour, minute), true
}

var calendarDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?$`)

func matchCalendarDate(f string, now time.Time) (time.Time, bool) {
	m := calendarDateRe.FindStringSubmatch(f)
	if m == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year := now.Year()
	if m[3] != "" {
		year, _ = strconv.Atoi(m[3])
	}
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, DefaultHour, 0, 0, 0, now.Location())
	// time.Date normalizes Feb 30 into March; reject instead of clamping.
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// clock converts 12- or 24-hour parts into hour and minute.
func clock(hourStr, minuteStr, meridiem string) (int, int, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, 0, false
	}
	minute := 0
	if minuteStr != "" {
		if minute, err = strconv.Atoi(minuteStr); err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	switch meridiem {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if meridiem == "am" && hour == 12 {
			hour = 0
		}
		if meridiem == "pm" && hour < 12 {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

func atClock(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
