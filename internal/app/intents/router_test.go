package intents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloGalante/taskbot/internal/app/command"
	"github.com/PabloGalante/taskbot/internal/app/format"
	"github.com/PabloGalante/taskbot/internal/domain"
)

func failing(err error) HandlerFunc {
	return NewHandlerFunc("failing", func(ctx context.Context, in Input) (format.Result, error) {
		return format.Result{}, err
	})
}

func TestDispatchErrorMapping(t *testing.T) {
	owner := &domain.Owner{ID: "o1"}

	cases := []struct {
		name        string
		err         error
		wantMessage string
		wantErr     bool
	}{
		{"storage", &domain.StorageError{Op: "insert task", Err: errors.New("boom")}, "Could not do it.", true},
		{"validation", domain.NewValidationError("Task description is required"), "Task description is required", false},
		{"position", &domain.NotFoundError{Kind: "task number", Ref: "9"}, "Invalid task number.", false},
		{"id", &domain.NotFoundError{Kind: "task", Ref: "abc"}, "Task not found.", false},
		{"missing argument", ErrMissingArgument, "Usage here.", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRouter(map[command.Intent]Route{
				command.IntentMarkDone: {Handler: failing(tc.err), Failure: "Could not do it.", Usage: "Usage here."},
			}, command.IntentMarkDone)

			res, err := r.Dispatch(context.Background(), Input{Owner: owner, Command: command.Command{Intent: command.IntentMarkDone}})
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if res.Kind != format.KindError || !strings.Contains(res.Message, tc.wantMessage) {
				t.Fatalf("result = %+v, want message containing %q", res, tc.wantMessage)
			}
		})
	}
}

func TestDispatchFallback(t *testing.T) {
	called := false
	r := NewRouter(map[command.Intent]Route{
		command.IntentCreateTask: {Handler: NewHandlerFunc("create", func(ctx context.Context, in Input) (format.Result, error) {
			called = true
			return format.Result{Kind: format.KindHelp}, nil
		})},
	}, command.IntentCreateTask)

	res, err := r.Dispatch(context.Background(), Input{Owner: &domain.Owner{}, Command: command.Command{Intent: "mystery"}})
	if err != nil || !called || res.Kind != format.KindHelp {
		t.Fatalf("fallback not used: called=%v res=%+v err=%v", called, res, err)
	}
}

func TestDispatchNoRoute(t *testing.T) {
	r := NewRouter(nil, command.IntentCreateTask)
	res, err := r.Dispatch(context.Background(), Input{Owner: &domain.Owner{}, Command: command.Command{Intent: command.IntentHelp}})
	if err == nil || res.Kind != format.KindError {
		t.Fatalf("res=%+v err=%v", res, err)
	}
}
