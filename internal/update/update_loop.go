package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/rightontime/internal/notify"
	"github.com/sandeepkv93/rightontime/internal/views"
)

func (m Model) Init() tea.Cmd {
	return waitForReminderCmd(m.reminders)
}

func waitForReminderCmd(ch <-chan notify.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderMsg{Notification: n}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Dashboard:
			m.CurrentView = ViewDashboard
			return m, nil
		case m.Keys.List:
			m.CurrentView = ViewList
			return m, nil
		case m.Keys.Filter:
			m.cycleFilter()
			return m, nil
		case m.Keys.Resync:
			m.resync()
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case "j", "down":
			m.moveCursor(1)
			return m, nil
		case "k", "up":
			m.moveCursor(-1)
			return m, nil
		case "pgdown":
			m.notesView.HalfViewDown()
			return m, nil
		case "pgup":
			m.notesView.HalfViewUp()
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := typed.Width/2 - 4
		if width > 20 {
			m.cfg.PaneWidth = width
			m.notesView.Width = width - 2
			m.commandInput.Width = width - 4
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		if typed.Err != nil {
			m.setError(typed.Err)
		}
		return m, nil
	case RecordsChangedMsg:
		m.loadPreferences()
		m.reload()
		return m, nil
	case ReminderMsg:
		m.pushNotification(typed.Notification)
		m.Status = StatusBar{Text: "reminder: " + typed.Notification.Title}
		m.reload()
		return m, waitForReminderCmd(m.reminders)
	}
	return m, nil
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	now := m.cfg.Now()

	left := ""
	switch m.CurrentView {
	case ViewDashboard:
		if len(m.Records) == 0 {
			left = views.RenderEmpty()
		} else {
			left = views.RenderNext(m.Records[0], now) + "\n\n" + views.RenderTimeline(views.GroupByPerson(m.Records), now)
		}
	default:
		left = views.RenderRecordList(m.Filter, views.Rows(m.Records, now), m.SelectedID)
	}

	var right []string
	if sel, ok := m.selected(); ok {
		right = append(right, views.RenderDetail(sel, now, m.notesView.View()))
	} else {
		right = append(right, "details:\n(no selection)")
	}
	if m.Palette.Active {
		right = append(right, views.RenderCommandPalette(true, m.commandInput.View()))
	}
	if m.HelpVisible {
		right = append(right, m.renderHelpView())
	}

	notification := ""
	if len(m.Notifications) > 0 {
		last := m.Notifications[len(m.Notifications)-1]
		notification = views.RenderNotification(last.Title, last.Body)
	}

	dashboard := "off"
	if m.DashboardEnabled {
		dashboard = "on"
	}
	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("rightontime | view: %s | filter: %s | dashboard: %s", m.CurrentView, m.Filter, dashboard),
		LeftPane:     left,
		RightPane:    strings.Join(right, "\n\n"),
		StatusLine:   m.Status.Text,
		StatusError:  m.Status.IsError,
		Notification: notification,
		PaneWidth:    m.cfg.PaneWidth,
		Footer: fmt.Sprintf("keys: %s dashboard | %s list | j/k move | %s filter | %s resync | / cmd | %s help | %s quit",
			m.Keys.Dashboard, m.Keys.List, m.Keys.Filter, m.Keys.Resync, m.Keys.Help, m.Keys.Quit),
	})
}
