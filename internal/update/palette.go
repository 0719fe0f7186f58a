package update

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/rightontime/internal/commands"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/views"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.commandInput.CursorEnd()
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		m.commandInput, _ = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.setError(err)
		return m
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			d := a.Draft
			if d.ReminderOffsets == nil {
				d.ReminderOffsets = m.cfg.DefaultOffsets.Clone()
			}
			rec, err := m.tracker.Add(m.ctx, d)
			if rec.ID != "" {
				m.SelectedID = rec.ID
			}
			return commands.Result{Message: fmt.Sprintf("added %s", views.Title(rec))}, err
		},
		Edit: func(e commands.EditArgs) (commands.Result, error) {
			id := m.resolveID(e.ID)
			rec, err := m.tracker.Update(m.ctx, id, e.Patch)
			return commands.Result{Message: fmt.Sprintf("updated %s", views.Title(rec))}, err
		},
		Remove: func(r commands.RemoveArgs) (commands.Result, error) {
			id := m.resolveID(r.ID)
			err := m.tracker.Remove(m.ctx, id)
			return commands.Result{Message: "removed " + id}, err
		},
		Show: func(s commands.ShowArgs) (commands.Result, error) {
			m.Filter = s.Filter
			m.CurrentView = ViewList
			return commands.Result{Message: "showing " + string(s.Filter)}, nil
		},
		Dashboard: func(d commands.DashboardArgs) (commands.Result, error) {
			if err := m.tracker.SetDashboardEnabled(m.ctx, d.Enabled); err != nil {
				return commands.Result{}, err
			}
			if d.Enabled {
				return commands.Result{Message: "dashboard on"}, nil
			}
			return commands.Result{Message: "dashboard off"}, nil
		},
		Theme: func(t commands.ThemeArgs) (commands.Result, error) {
			if err := m.tracker.SetTheme(m.ctx, t.Theme); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: "theme " + t.Theme}, nil
		},
		Resync: func() (commands.Result, error) {
			res, err := m.tracker.Resync(m.ctx)
			return commands.Result{Message: fmt.Sprintf("resynced: %d scheduled, %d cancelled", res.Created, res.Cancelled)}, err
		},
	})
	m.report(res, err)
	m.loadPreferences()
	m.reload()
	return m
}

func (m *Model) resync() {
	res, err := m.tracker.Resync(m.ctx)
	m.report(commands.Result{Message: fmt.Sprintf("resynced: %d scheduled, %d cancelled", res.Created, res.Cancelled)}, err)
	m.reload()
}

// report shows res, or err. A scheduling failure means the change itself was
// saved, so both are shown.
func (m *Model) report(res commands.Result, err error) {
	switch {
	case err == nil:
		m.Status = StatusBar{Text: res.Message}
	case errors.Is(err, model.ErrScheduling):
		m.LastError = err
		m.Status = StatusBar{Text: fmt.Sprintf("%s, but reminders failed: %v", res.Message, err), IsError: true}
	default:
		m.setError(err)
	}
}

// resolveID accepts "." for the selected record.
func (m Model) resolveID(id string) string {
	if id == "." {
		return m.SelectedID
	}
	return id
}
