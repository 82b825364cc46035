package intents

import (
	"context"

	"github.com/PabloGalante/taskbot/internal/app/fields"
	"github.com/PabloGalante/taskbot/internal/app/format"
	"github.com/PabloGalante/taskbot/internal/app/tasks"
	"github.com/PabloGalante/taskbot/internal/domain"
)

// HelpHandler answers greetings with the usage text.
type HelpHandler struct{}

func (HelpHandler) Name() string { return "help" }

func (HelpHandler) Run(ctx context.Context, in Input) (format.Result, error) {
	return format.Result{Kind: format.KindHelp}, nil
}

// ListHandler shows a chat view and makes it the owner's list context.
type ListHandler struct {
	tasks *tasks.Manager
	view  domain.ListView
}

func NewListHandler(m *tasks.Manager, view domain.ListView) *ListHandler {
	return &ListHandler{tasks: m, view: view}
}

func (h *ListHandler) Name() string { return "list_" + string(h.view) }

func (h *ListHandler) Run(ctx context.Context, in Input) (format.Result, error) {
	res, err := h.tasks.ShowView(ctx, in.Owner, h.view)
	if err != nil {
		return format.Result{}, err
	}
	title := format.TitleAll
	if h.view == domain.ViewToday {
		title = format.TitleToday
	}
	return format.Result{Kind: format.KindList, Title: title, Tasks: res.Tasks, Total: res.Total}, nil
}

// CreateHandler turns the message into a new task.
type CreateHandler struct {
	tasks *tasks.Manager
}

func NewCreateHandler(m *tasks.Manager) *CreateHandler {
	return &CreateHandler{tasks: m}
}

func (h *CreateHandler) Name() string { return "create" }

func (h *CreateHandler) Run(ctx context.Context, in Input) (format.Result, error) {
	text := in.Command.Args.Raw
	if text == "" {
		text = in.Text
	}
	f, err := fields.Extract(text)
	if err != nil {
		return format.Result{}, err
	}
	task, err := h.tasks.CreateFromFields(ctx, in.Owner, f)
	if err != nil {
		return format.Result{}, err
	}
	return format.Result{Kind: format.KindCreated, Task: task}, nil
}

// DoneHandler marks the referenced task as done.
type DoneHandler struct {
	tasks *tasks.Manager
}

func NewDoneHandler(m *tasks.Manager) *DoneHandler {
	return &DoneHandler{tasks: m}
}

func (h *DoneHandler) Name() string { return "mark_done" }

func (h *DoneHandler) Run(ctx context.Context, in Input) (format.Result, error) {
	ref, ok := tasks.ParseRef(in.Command.Args.Raw)
	if !ok {
		return format.Result{}, ErrMissingArgument
	}
	task, err := h.tasks.MarkDone(ctx, in.Owner, ref)
	if err != nil {
		return format.Result{}, err
	}
	return format.Result{Kind: format.KindDone, Task: task}, nil
}

// DeleteHandler removes the referenced task.
type DeleteHandler struct {
	tasks *tasks.Manager
}

func NewDeleteHandler(m *tasks.Manager) *DeleteHandler {
	return &DeleteHandler{tasks: m}
}

func (h *DeleteHandler) Name() string { return "delete" }

func (h *DeleteHandler) Run(ctx context.Context, in Input) (format.Result, error) {
	ref, ok := tasks.ParseRef(in.Command.Args.Raw)
	if !ok {
		return format.Result{}, ErrMissingArgument
	}
	removed, err := h.tasks.Delete(ctx, in.Owner, ref)
	if err != nil {
		return format.Result{}, err
	}
	if !removed {
		return format.ErrorResult("Task not found or already deleted."), nil
	}
	return format.Result{Kind: format.KindDeleted}, nil
}
