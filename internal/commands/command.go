// Package commands parses and dispatches the TUI's slash commands.
package commands

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/records"
	"github.com/sandeepkv93/rightontime/internal/views"
)

type Type string

const (
	TypeAdd       Type = "add"
	TypeEdit      Type = "edit"
	TypeRemove    Type = "rm"
	TypeShow      Type = "show"
	TypeDashboard Type = "dashboard"
	TypeTheme     Type = "theme"
	TypeResync    Type = "resync"
)

var aliases = map[string]Type{
	"remove": TypeRemove,
	"delete": TypeRemove,
	"filter": TypeShow,
}

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// AddArgs becomes a records.Draft. Nil offsets mean "use the defaults".
type AddArgs struct {
	Draft records.Draft
}

type EditArgs struct {
	ID    string
	Patch records.Patch
}

type RemoveArgs struct {
	ID string
}

type ShowArgs struct {
	Filter views.Filter
}

type DashboardArgs struct {
	Enabled bool
}

type ThemeArgs struct {
	Theme string
}

type Command struct {
	Type      Type
	Raw       string
	Add       *AddArgs
	Edit      *EditArgs
	Remove    *RemoveArgs
	Show      *ShowArgs
	Dashboard *DashboardArgs
	Theme     *ThemeArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	typ := Type(head)
	if alias, ok := aliases[head]; ok {
		typ = alias
	}
	switch typ {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeEdit:
		return parseEdit(input, args)
	case TypeRemove:
		return parseRemove(input, args)
	case TypeShow:
		return parseShow(input, args)
	case TypeDashboard:
		return parseDashboard(input, args)
	case TypeTheme:
		return parseTheme(input, args)
	case TypeResync:
		return Command{Type: TypeResync, Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

// parseAdd reads "<type> <person> <YYYY-MM-DD> [offsets] [name...]". A fourth
// word that is not an offset list starts the name.
func parseAdd(raw string, args []string) (Command, error) {
	if len(args) < 3 {
		return Command{}, invalid("add requires type, person and expiry date")
	}
	d := records.Draft{
		DocumentType:   model.DocumentType(strings.ToLower(args[0])),
		PersonCategory: model.PersonCategory(strings.ToLower(args[1])),
		ExpiryDate:     args[2],
	}
	rest := args[3:]
	if len(rest) > 0 && looksLikeOffsets(rest[0]) {
		offsets, err := model.ParseOffsets(rest[0])
		if err != nil {
			return Command{}, invalid("offsets: %v", err)
		}
		d.ReminderOffsets = offsets
		rest = rest[1:]
	}
	d.PersonName = strings.Join(rest, " ")
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Draft: d}}, nil
}

// parseEdit reads "<id> field=value...". Words without "=" continue the
// previous value, so notes may contain spaces.
func parseEdit(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("edit requires an id and at least one field=value")
	}
	values := make(map[string]string)
	order := make([]string, 0)
	last := ""
	for _, arg := range args[1:] {
		field, value, ok := strings.Cut(arg, "=")
		if !ok {
			if last == "" {
				return Command{}, invalid("expected field=value, got %q", arg)
			}
			values[last] += " " + arg
			continue
		}
		field = strings.ToLower(field)
		if _, seen := values[field]; !seen {
			order = append(order, field)
		}
		values[field] = value
		last = field
	}

	var p records.Patch
	for _, field := range order {
		value := values[field]
		switch field {
		case "type":
			v := model.DocumentType(strings.ToLower(value))
			p.DocumentType = &v
		case "person":
			v := model.PersonCategory(strings.ToLower(value))
			p.PersonCategory = &v
		case "name":
			v := value
			p.PersonName = &v
		case "expiry":
			v := value
			p.ExpiryDate = &v
		case "notes":
			v := value
			p.Notes = &v
		case "remind", "offsets":
			offsets, err := model.ParseOffsets(value)
			if err != nil {
				return Command{}, invalid("offsets: %v", err)
			}
			p.ReminderOffsets = &offsets
		default:
			return Command{}, invalid("unknown field %q (want type, person, name, expiry, notes or remind)", field)
		}
	}
	return Command{Type: TypeEdit, Raw: raw, Edit: &EditArgs{ID: args[0], Patch: p}}, nil
}

func parseRemove(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("rm requires exactly one id")
	}
	return Command{Type: TypeRemove, Raw: raw, Remove: &RemoveArgs{ID: args[0]}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, invalid("show requires all, personal, family or urgent")
	}
	f, err := views.ParseFilter(args[0])
	if err != nil {
		return Command{}, invalid("%v", err)
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Filter: f}}, nil
}

func parseDashboard(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("dashboard requires on or off")
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "yes":
		return Command{Type: TypeDashboard, Raw: raw, Dashboard: &DashboardArgs{Enabled: true}}, nil
	case "off", "false", "no":
		return Command{Type: TypeDashboard, Raw: raw, Dashboard: &DashboardArgs{Enabled: false}}, nil
	default:
		return Command{}, invalid("dashboard requires on or off, got %q", args[0])
	}
}

func parseTheme(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("theme requires light or dark")
	}
	theme := strings.ToLower(args[0])
	if theme != "light" && theme != "dark" {
		return Command{}, invalid("theme requires light or dark, got %q", args[0])
	}
	return Command{Type: TypeTheme, Raw: raw, Theme: &ThemeArgs{Theme: theme}}, nil
}

func looksLikeOffsets(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ',' && r != '-' {
			return false
		}
	}
	return true
}
