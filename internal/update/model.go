// Package update holds the bubbletea model behind the interactive terminal UI.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/notify"
	"github.com/sandeepkv93/rightontime/internal/tracker"
	"github.com/sandeepkv93/rightontime/internal/views"
)

type View string

const (
	// ViewDashboard shows the next expiry and the per-person timeline.
	ViewDashboard View = "Dashboard"
	ViewList      View = "List"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Dashboard string
	List      string
	Filter    string
	Resync    string
	Help      string
	Quit      string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

const maxNotifications = 20

type Model struct {
	CurrentView      View
	Filter           views.Filter
	Records          []model.TrackedRecord
	Cursor           int
	SelectedID       string
	DashboardEnabled bool
	Theme            string
	Palette          CommandPaletteState
	HelpVisible      bool
	Notifications    []notify.Notification
	Status           StatusBar
	Keys             GlobalKeyMap
	Quitting         bool
	LastError        error

	ctx       context.Context
	tracker   *tracker.Tracker
	reminders <-chan notify.Notification
	cfg       RuntimeConfig

	commandInput textinput.Model
	helpModel    help.Model
	notesView    viewport.Model
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// ReminderMsg carries a notification the dispatcher has just sent.
type ReminderMsg struct {
	Notification notify.Notification
}

// RecordsChangedMsg asks the model to reload from the tracker.
type RecordsChangedMsg struct{}

// NewModel builds the UI over an opened tracker. reminders may be nil when no
// dispatcher is running.
func NewModel(ctx context.Context, t *tracker.Tracker, reminders <-chan notify.Notification, cfg RuntimeConfig) Model {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.PaneWidth <= 0 {
		cfg.PaneWidth = DefaultRuntimeConfig().PaneWidth
	}
	m := Model{
		CurrentView: ViewList,
		Filter:      views.FilterAll,
		Theme:       tracker.ThemeLight,
		Keys: GlobalKeyMap{
			Dashboard: "1",
			List:      "2",
			Filter:    "f",
			Resync:    "r",
			Help:      "?",
			Quit:      "q",
		},
		ctx:       ctx,
		tracker:   t,
		reminders: reminders,
		cfg:       cfg,
	}
	m.initBubbleComponents()
	m.loadPreferences()
	if m.DashboardEnabled {
		m.CurrentView = ViewDashboard
	}
	m.reload()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = m.cfg.PaneWidth - 4

	m.helpModel = help.New()
	m.notesView = viewport.New(m.cfg.PaneWidth-2, 8)
}

// loadPreferences reads the dashboard and theme preferences fresh.
func (m *Model) loadPreferences() {
	enabled, err := m.tracker.DashboardEnabled(m.ctx)
	if err != nil {
		m.setError(err)
	}
	m.DashboardEnabled = enabled
	theme, err := m.tracker.Theme(m.ctx)
	if err != nil {
		m.setError(err)
	}
	m.Theme = theme
}

// reload refilters the tracker's records and keeps the selection on the same
// record when it is still listed.
func (m *Model) reload() {
	now := m.cfg.Now()
	m.Records = views.Apply(views.SortByExpiry(m.tracker.List()), m.Filter, now)
	if len(m.Records) == 0 {
		m.Cursor = 0
		m.SelectedID = ""
		m.notesView.SetContent("")
		return
	}
	m.Cursor = clamp(m.Cursor, 0, len(m.Records)-1)
	for i, rec := range m.Records {
		if rec.ID == m.SelectedID {
			m.Cursor = i
			break
		}
	}
	m.SelectedID = m.Records[m.Cursor].ID
	m.syncNotes()
}

func (m *Model) syncNotes() {
	sel, ok := m.selected()
	if !ok {
		m.notesView.SetContent("")
		return
	}
	md := sel.Notes
	if md == "" {
		md = "_No notes_"
	}
	m.notesView.SetContent(views.RenderMarkdown(md, m.Theme))
	m.notesView.GotoTop()
}

func (m Model) selected() (model.TrackedRecord, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Records) {
		return model.TrackedRecord{}, false
	}
	return m.Records[m.Cursor], true
}

func (m *Model) moveCursor(delta int) {
	if len(m.Records) == 0 {
		return
	}
	m.Cursor = clamp(m.Cursor+delta, 0, len(m.Records)-1)
	m.SelectedID = m.Records[m.Cursor].ID
	m.syncNotes()
}

func (m *Model) cycleFilter() {
	for i, f := range views.Filters {
		if f == m.Filter {
			m.Filter = views.Filters[(i+1)%len(views.Filters)]
			break
		}
	}
	m.reload()
	m.Status = StatusBar{Text: "showing " + string(m.Filter)}
}

func (m *Model) pushNotification(n notify.Notification) {
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
}

func (m *Model) setError(err error) {
	m.LastError = err
	m.Status = StatusBar{Text: err.Error(), IsError: true}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
