// Package fields pulls "Label: value" segments out of a chat message.
//
//	Task: Buy groceries, Due: tomorrow 5pm, Priority: High, Course: Math, Repeat: Weekly
//
// Each label is looked up on its own and the first occurrence wins. A value
// runs up to the next comma or the next label, whichever comes first. Without a Task label the whole message
// is the description.
package fields

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PabloGalante/taskbot/internal/domain"
)

// MinMessageLength is the shortest message accepted as a task.
const MinMessageLength = 5

const (
	LabelTask     = "task"
	LabelDue      = "due"
	LabelPriority = "priority"
	LabelCourse   = "course"
	LabelRepeat   = "repeat"
)

var labels = []string{LabelTask, LabelDue, LabelPriority, LabelCourse, LabelRepeat}

var (
	labelRes   = compileLabels(labels)
	anyLabelRe = regexp.MustCompile(`(?i)\b(?:task|due|priority|course|repeat)\s*:`)
)

func compileLabels(names []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(names))
	for _, n := range names {
		out[n] = regexp.MustCompile(`(?i)\b` + n + `\s*:`)
	}
	return out
}

// valueOf returns the value of the first occurrence of label in message.
func valueOf(message, label string) (string, bool) {
	loc := labelRes[label].FindStringIndex(message)
	if loc == nil {
		return "", false
	}
	rest := message[loc[1]:]
	end := len(rest)
	if i := strings.IndexByte(rest, ','); i >= 0 {
		end = i
	}
	if next := anyLabelRe.FindStringIndex(rest[:end]); next != nil {
		end = next[0]
	}
	return strings.TrimSpace(rest[:end]), true
}

// Fields is what a message says about a new task. Empty strings mean the
// label was absent; Priority and Repeat are also empty when the label held
// something outside their enumerations.
type Fields struct {
	Description string
	Due         string
	Priority    domain.Priority
	Course      string
	Repeat      domain.Repeat

	// Raw label values as typed, keyed by lower-case label.
	Raw map[string]string
}

// Extract reads the labeled fields of message. It fails only when the
// message is too short to describe a task.
func Extract(message string) (Fields, error) {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) < MinMessageLength {
		return Fields{}, domain.NewValidationError("Message is too short. Please include at least a task description.")
	}

	raw := map[string]string{}
	for _, label := range labels {
		if v, ok := valueOf(message, label); ok {
			raw[label] = v
		}
	}

	f := Fields{Raw: raw}
	if desc, ok := raw[LabelTask]; ok {
		f.Description = desc
	} else {
		f.Description = message
	}
	f.Due = raw[LabelDue]
	f.Course = raw[LabelCourse]
	if p, ok := domain.ParsePriority(raw[LabelPriority]); ok {
		f.Priority = p
	}
	if r, ok := domain.ParseRepeat(raw[LabelRepeat]); ok {
		f.Repeat = r
	}
	return f, nil
}
