// Package intents holds one handler per chat intent and the router that
// dispatches a classified message to it.
package intents

import (
	"context"
	"errors"

	"github.com/PabloGalante/taskbot/internal/app/command"
	"github.com/PabloGalante/taskbot/internal/app/format"
	"github.com/PabloGalante/taskbot/internal/domain"
)

// ErrMissingArgument means a delete/done command came without a task reference.
var ErrMissingArgument = errors.New("missing task reference")

// Input is what a handler gets for one inbound message.
type Input struct {
	Owner   *domain.Owner
	Command command.Command
	Text    string
}

// Handler serves a single intent.
type Handler interface {
	Name() string
	Run(ctx context.Context, in Input) (format.Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	name string
	fn   func(ctx context.Context, in Input) (format.Result, error)
}

func NewHandlerFunc(name string, fn func(ctx context.Context, in Input) (format.Result, error)) HandlerFunc {
	return HandlerFunc{name: name, fn: fn}
}

func (h HandlerFunc) Name() string { return h.name }

func (h HandlerFunc) Run(ctx context.Context, in Input) (format.Result, error) {
	return h.fn(ctx, in)
}
