package format

import "github.com/PabloGalante/taskbot/internal/domain"

type Kind string

const (
	KindHelp    Kind = "help"
	KindList    Kind = "list"
	KindCreated Kind = "created"
	KindDone    Kind = "done"
	KindDeleted Kind = "deleted"
	KindError   Kind = "error"
)

// Result is the outcome of one handled message, ready to render.
type Result struct {
	Kind Kind

	Task  *domain.Task
	Tasks []*domain.Task
	Total int
	Title string

	// Message is the error text for KindError.
	Message string
}

func ErrorResult(msg string) Result {
	return Result{Kind: KindError, Message: msg}
}

// Render turns r into the reply text.
func Render(r Result, opts Options) string {
	switch r.Kind {
	case KindHelp:
		return Help()
	case KindList:
		title := r.Title
		if title == "" {
			title = TitleAll
		}
		return List(title, r.Tasks, r.Total, opts)
	case KindCreated:
		return Truncate(Created(r.Task, opts))
	case KindDone:
		return Success("Task \"" + cleanDescription(r.Task.Description) + "\" marked as done!")
	case KindDeleted:
		return Success("Task deleted successfully!")
	case KindError:
		return Error(r.Message)
	default:
		return Error("Something went wrong. Please try again later.")
	}
}
