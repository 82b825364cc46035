// Package format renders tasks and command outcomes as WhatsApp text.
// Nothing here reads the clock: "now" and the timezone come in through
// Options so the output is a pure function of its inputs.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/taskbot/internal/domain"
)

// MaxReplyChars is the longest single WhatsApp message body we send.
const MaxReplyChars = 1600

const (
	DueLayout   = "Jan 2, 2006 at 3:04 PM"
	NoTasks     = "You don't have any tasks yet. Add one by sending a message!"
	TitleAll    = "Your Tasks"
	TitleToday  = "Today's Tasks"
	truncSuffix = "\n… (truncated)"
)

type Options struct {
	// Location for due dates. Nil means UTC.
	Location *time.Location
	// Now marks overdue tasks. The zero value disables the marker.
	Now time.Time
	// IncludeID adds the stable task id line.
	IncludeID bool
}

func (o Options) loc() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func StatusGlyph(s domain.Status) string {
	switch s {
	case domain.StatusDone:
		return "✅"
	case domain.StatusInProgress:
		return "⏳"
	default:
		return "🆕"
	}
}

func PriorityGlyph(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "🔴"
	case domain.PriorityMedium:
		return "🟡"
	case domain.PriorityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// Due formats a due date in the reader's timezone.
func Due(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DueLayout)
}

func cleanDescription(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return "(untitled)"
	}
	return s
}

// Task renders a single task block.
func Task(t *domain.Task, opts Options) string {
	var b strings.Builder
	writeTask(&b, t, opts)
	return b.String()
}

func writeTask(b *strings.Builder, t *domain.Task, opts Options) {
	fmt.Fprintf(b, "%s *%s*\n", StatusGlyph(t.Status), cleanDescription(t.Description))

	b.WriteString("  📅 Due: ")
	b.WriteString(Due(t.DueDate, opts.loc()))
	if !opts.Now.IsZero() && t.IsOverdue(opts.Now) {
		b.WriteString(" ⚠️ overdue")
	}
	b.WriteString("\n")

	fmt.Fprintf(b, "  %s %s\n", PriorityGlyph(t.Priority), t.Priority)

	if t.Course != nil && strings.TrimSpace(*t.Course) != "" {
		fmt.Fprintf(b, "  📚 Course: %s\n", strings.TrimSpace(*t.Course))
	}
	if t.Repeat != "" && t.Repeat != domain.RepeatNone {
		fmt.Fprintf(b, "  🔄 Repeat: %s\n", t.Repeat)
	}
	if opts.IncludeID {
		fmt.Fprintf(b, "  🆔 ID: %s\n", t.ID)
	}
}

// List renders a numbered listing. Numbers match what "done N" and
// "delete N" address. When more tasks exist than are shown, a footer says
// how many were left out.
func List(title string, tasks []*domain.Task, total int, opts Options) string {
	if len(tasks) == 0 {
		return NoTasks
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s:*\n\n", title)
	for i, t := range tasks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "*%d.* ", i+1)
		writeTask(&b, t, opts)
	}
	if rest := total - len(tasks); rest > 0 {
		fmt.Fprintf(&b, "\n… and %d more", rest)
	}
	return Truncate(b.String())
}

func Help() string {
	return "👋 *Welcome to TaskBot!*\n\n" +
		"I'm your WhatsApp Task Manager. Here's how you can use me:\n\n" +
		"*Add a Task:*\n" +
		"Send any message or use format: Task: [description], Due: [date], Priority: [level], Course: [name], Repeat: [frequency]\n\n" +
		"*Example:*\n" +
		"Task: Submit assignment, Due: tomorrow 5pm, Priority: High, Course: Math\n\n" +
		"*Other Commands:*\n" +
		"• *show tasks* - View all your tasks\n" +
		"• *today* or *agenda* - See today's tasks\n" +
		"• *delete [number or ID]* - Remove a task\n" +
		"• *done [number or ID]* - Mark a task as completed\n\n" +
		"Need more help? Just type *help* anytime!"
}

func Error(msg string) string {
	return "❌ *Error:* " + msg
}

func Success(msg string) string {
	return "✅ *Success:* " + msg
}

// Created is the confirmation for a new task.
func Created(t *domain.Task, opts Options) string {
	return "*Task Added Successfully!*\n\n" + Task(t, opts)
}

// Truncate keeps s within MaxReplyChars runes.
func Truncate(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= MaxReplyChars {
		return s
	}
	limit := MaxReplyChars - len([]rune(truncSuffix))
	return string(runes[:limit]) + truncSuffix
}
