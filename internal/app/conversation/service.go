// Package conversation is the transport-facing entry point: one inbound
// chat message in, exactly one reply out.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PabloGalante/taskbot/internal/app/command"
	"github.com/PabloGalante/taskbot/internal/app/format"
	"github.com/PabloGalante/taskbot/internal/app/intents"
	"github.com/PabloGalante/taskbot/internal/app/tasks"
	"github.com/PabloGalante/taskbot/internal/domain"
	"github.com/PabloGalante/taskbot/internal/observability"
)

// ErrOwnerUnavailable means the sender could not be resolved to an owner,
// so no command ran.
var ErrOwnerUnavailable = errors.New("owner unavailable")

const genericFailure = "Something went wrong. Please try again later."

type Service struct {
	tasks  *tasks.Manager
	router *intents.Router
}

func NewService(m *tasks.Manager) *Service {
	return &Service{
		tasks:  m,
		router: intents.NewDefaultRouter(m),
	}
}

// NewServiceWithRouter is NewService with a custom router.
func NewServiceWithRouter(m *tasks.Manager, r *intents.Router) *Service {
	return &Service{tasks: m, router: r}
}

// HandleMessage interprets text from phoneKey and returns the reply. The
// reply is never empty. A non-nil error reports a failure already rendered
// into the reply; callers log it and still send the reply.
func (s *Service) HandleMessage(ctx context.Context, phoneKey, text string) (reply string, err error) {
	log := observability.LoggerFromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while handling message", "panic", r)
			reply = format.Error(genericFailure)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	owner, err := s.tasks.Owner(ctx, phoneKey)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return format.Error(err.Error()), nil
		}
		log.Error("failed to resolve owner", "error", err)
		return format.Error(genericFailure), fmt.Errorf("%w: %w", ErrOwnerUnavailable, err)
	}

	cmd := command.Interpret(text)
	log = log.With("owner_id", owner.ID)
	log.Info("message interpreted", "intent", cmd.Intent)

	start := time.Now()
	res, err := s.router.Dispatch(ctx, intents.Input{Owner: owner, Command: cmd, Text: text})

	reply = format.Render(res, s.renderOptions())
	log.Info("reply ready", "intent", cmd.Intent, "kind", res.Kind, "elapsed_ms", time.Since(start).Milliseconds())
	return reply, err
}

// Interpret classifies text without touching storage.
func (s *Service) Interpret(text string) command.Command {
	return command.Interpret(text)
}

func (s *Service) renderOptions() format.Options {
	return format.Options{
		Location:  s.tasks.Location(),
		Now:       s.tasks.Now(),
		IncludeID: true,
	}
}
