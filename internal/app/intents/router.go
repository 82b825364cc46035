package intents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PabloGalante/taskbot/internal/app/command"
	"github.com/PabloGalante/taskbot/internal/app/format"
	"github.com/PabloGalante/taskbot/internal/app/tasks"
	"github.com/PabloGalante/taskbot/internal/domain"
	"github.com/PabloGalante/taskbot/internal/observability"
)

// Route binds an intent to its handler and to the texts shown when the
// handler fails.
type Route struct {
	Handler Handler
	// Failure is shown for storage errors.
	Failure string
	// Usage is shown when the command lacks its task reference.
	Usage string
}

// Router dispatches a classified command to the handler of its intent.
type Router struct {
	routes   map[command.Intent]Route
	fallback command.Intent
}

func NewRouter(routes map[command.Intent]Route, fallback command.Intent) *Router {
	return &Router{routes: routes, fallback: fallback}
}

// NewDefaultRouter wires the chat intents onto m. Unknown intents create a task.
func NewDefaultRouter(m *tasks.Manager) *Router {
	return NewRouter(map[command.Intent]Route{
		command.IntentHelp: {
			Handler: HelpHandler{},
		},
		command.IntentShowTasks: {
			Handler: NewListHandler(m, domain.ViewAll),
			Failure: "Could not retrieve your tasks. Please try again later.",
		},
		command.IntentShowToday: {
			Handler: NewListHandler(m, domain.ViewToday),
			Failure: "Could not retrieve today's tasks. Please try again later.",
		},
		command.IntentDeleteTask: {
			Handler: NewDeleteHandler(m),
			Failure: "Could not delete the task. Please try again later.",
			Usage:   `Please specify which task to delete using "delete [number or ID]".`,
		},
		command.IntentMarkDone: {
			Handler: NewDoneHandler(m),
			Failure: "Could not update the task. Please try again later.",
			Usage:   `Please specify which task to mark as done using "done [number or ID]".`,
		},
		command.IntentCreateTask: {
			Handler: NewCreateHandler(m),
			Failure: "Could not create the task. Please try again later.",
		},
	}, command.IntentCreateTask)
}

// Dispatch runs the handler for in.Command and always yields a result.
// The returned error is non-nil only for storage failures, which are
// already rendered into the result.
func (r *Router) Dispatch(ctx context.Context, in Input) (format.Result, error) {
	route, ok := r.routes[in.Command.Intent]
	if !ok {
		route, ok = r.routes[r.fallback]
		if !ok {
			return format.ErrorResult("I couldn't understand your message. Type *help* to see what I can do."),
				fmt.Errorf("no route for intent %q", in.Command.Intent)
		}
	}

	log := observability.LoggerFromContext(ctx).With(
		"owner_id", in.Owner.ID,
		"intent", in.Command.Intent,
		"handler", route.Handler.Name(),
	)

	start := time.Now()
	log.Info("handler run start")

	res, err := route.Handler.Run(ctx, in)
	elapsed := time.Since(start)
	if err == nil {
		log.Info("handler run end", "elapsed_ms", elapsed.Milliseconds())
		return res, nil
	}

	res, storageErr := r.describe(route, err)
	if storageErr {
		log.Error("handler failed", "error", err, "elapsed_ms", elapsed.Milliseconds())
		return res, err
	}
	log.Info("handler rejected input", "reason", err.Error(), "elapsed_ms", elapsed.Milliseconds())
	return res, nil
}

// describe maps err onto the reply for route and reports whether it was a
// storage failure.
func (r *Router) describe(route Route, err error) (format.Result, bool) {
	var nf *domain.NotFoundError
	switch {
	case errors.Is(err, ErrMissingArgument):
		usage := route.Usage
		if usage == "" {
			usage = "Please specify which task you mean."
		}
		return format.ErrorResult(usage), false
	case errors.As(err, &nf):
		if nf.Kind == "task number" {
			return format.ErrorResult("Invalid task number. Send *show tasks* to see your numbered list."), false
		}
		return format.ErrorResult("Task not found."), false
	case errors.Is(err, domain.ErrValidation):
		return format.ErrorResult(err.Error()), false
	case errors.Is(err, domain.ErrNotFound):
		return format.ErrorResult("Task not found."), false
	}

	failure := route.Failure
	if failure == "" {
		failure = "Something went wrong. Please try again later."
	}
	return format.ErrorResult(failure), true
}
