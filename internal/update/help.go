package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpView() string {
	var plain []string
	for _, kb := range m.paletteBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	bindings := m.helpBindings()
	return fmt.Sprintf("help:\n%s\n\ncommands:\n%s",
		m.helpModel.View(helpKeyMap{short: bindings, full: [][]key.Binding{bindings}}),
		strings.Join(plain, "\n"),
	)
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Dashboard, Action: "dashboard"},
		{Key: m.Keys.List, Action: "list"},
		{Key: "j/k", Action: "move"},
		{Key: m.Keys.Filter, Action: "cycle filter"},
		{Key: m.Keys.Resync, Action: "resync reminders"},
		{Key: "/", Action: "command palette"},
		{Key: m.Keys.Help, Action: "toggle help"},
		{Key: m.Keys.Quit, Action: "quit"},
	}
}

func (m Model) paletteBindings() []KeyBinding {
	return []KeyBinding{
		{Key: "/add <type> <person> <YYYY-MM-DD> [90,60,30] [name]", Action: "track a document"},
		{Key: "/edit <id|.> field=value...", Action: "type, person, name, expiry, notes, remind"},
		{Key: "/rm <id|.>", Action: "stop tracking"},
		{Key: "/show all|personal|family|urgent", Action: "filter the list"},
		{Key: "/dashboard on|off", Action: "open on the dashboard"},
		{Key: "/theme light|dark", Action: "notes style"},
		{Key: "/resync", Action: "rebuild reminders"},
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
