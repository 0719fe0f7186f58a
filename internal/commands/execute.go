package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add       func(AddArgs) (Result, error)
	Edit      func(EditArgs) (Result, error)
	Remove    func(RemoveArgs) (Result, error)
	Show      func(ShowArgs) (Result, error)
	Dashboard func(DashboardArgs) (Result, error)
	Theme     func(ThemeArgs) (Result, error)
	Resync    func() (Result, error)
}

func missing(name string) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: name + " handler not configured"}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing("add")
		}
		return handlers.Add(*cmd.Add)
	case TypeEdit:
		if handlers.Edit == nil {
			return Result{}, missing("edit")
		}
		return handlers.Edit(*cmd.Edit)
	case TypeRemove:
		if handlers.Remove == nil {
			return Result{}, missing("rm")
		}
		return handlers.Remove(*cmd.Remove)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing("show")
		}
		return handlers.Show(*cmd.Show)
	case TypeDashboard:
		if handlers.Dashboard == nil {
			return Result{}, missing("dashboard")
		}
		return handlers.Dashboard(*cmd.Dashboard)
	case TypeTheme:
		if handlers.Theme == nil {
			return Result{}, missing("theme")
		}
		return handlers.Theme(*cmd.Theme)
	case TypeResync:
		if handlers.Resync == nil {
			return Result{}, missing("resync")
		}
		return handlers.Resync()
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
