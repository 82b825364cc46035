// Package command maps a chat message onto one of the bot's intents.
//
// Keyword commands win over task creation, so a task whose text starts with
// "show", "delete", "done" or "complete" is read as that command. Users can
// write "Task: show slides to Ana" to get around it.
package command

import (
	"strconv"
	"strings"
)

type Intent string

const (
	IntentHelp       Intent = "help"
	IntentShowTasks  Intent = "showTasks"
	IntentShowToday  Intent = "showToday"
	IntentDeleteTask Intent = "deleteTask"
	IntentMarkDone   Intent = "markDone"
	IntentCreateTask Intent = "createTask"
)

// Args carries the inline argument of a command.
//
// For delete and done, Raw is the rest of the line and Position is set when
// Raw is a positive integer: a 1-based index into the last list the user saw.
// For create, Raw is the whole original message.
type Args struct {
	Position int    `json:"position,omitempty"`
	Raw      string `json:"raw,omitempty"`
}

type Command struct {
	Intent Intent `json:"intent"`
	Args   Args   `json:"args"`
}

var greetings = map[string]bool{
	"hi":    true,
	"hello": true,
	"?":     true,
	"hola":  true,
	"hey":   true,
	"help":  true,
}

var todayWords = map[string]bool{
	"today":      true,
	"agenda":     true,
	"show today": true,
}

// Classify returns the intent of message. It is pure and safe for
// concurrent use.
func Classify(message string) Command {
	trimmed := strings.TrimSpace(message)
	normalized := strings.Join(strings.Fields(strings.ToLower(trimmed)), " ")

	if greetings[normalized] {
		return Command{Intent: IntentHelp}
	}
	if todayWords[normalized] {
		return Command{Intent: IntentShowToday}
	}

	first, rest := splitFirst(trimmed)
	switch strings.ToLower(first) {
	case "show":
		return Command{Intent: IntentShowTasks}
	case "delete":
		return Command{Intent: IntentDeleteTask, Args: refArgs(rest)}
	case "done", "complete":
		return Command{Intent: IntentMarkDone, Args: refArgs(rest)}
	}
	if normalized == "tasks" {
		return Command{Intent: IntentShowTasks}
	}

	return Command{Intent: IntentCreateTask, Args: Args{Raw: trimmed}}
}

// Interpret is the transport-facing name for Classify.
func Interpret(rawText string) Command {
	return Classify(rawText)
}

func refArgs(rest string) Args {
	a := Args{Raw: rest}
	if n, err := strconv.Atoi(rest); err == nil && n > 0 {
		a.Position = n
	}
	return a
}

func splitFirst(s string) (string, string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", ""
	}
	rest := strings.TrimSpace(strings.TrimPrefix(s, parts[0]))
	return parts[0], strings.Join(strings.Fields(rest), " ")
}
