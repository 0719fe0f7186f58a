// Package views renders tracked records for the terminal.
package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/sandeepkv93/rightontime/internal/urgency"
)

type AppData struct {
	Header       string
	LeftPane     string
	RightPane    string
	StatusLine   string
	StatusError  bool
	Footer       string
	Notification string
	PaneWidth    int
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	nextStyle   = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).Padding(0, 1)

	tierStyles = map[urgency.Tier]lipgloss.Style{
		urgency.TierHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		urgency.TierMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		urgency.TierLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

const defaultPaneWidth = 58

func RenderApp(data AppData) string {
	width := data.PaneWidth
	if width <= 0 {
		width = defaultPaneWidth
	}
	left := panelStyle.Width(width).Render(data.LeftPane)
	right := panelStyle.Width(width).Render(data.RightPane)
	row := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	status := statusStyle.Render(data.StatusLine)
	if data.StatusError {
		status = errorStyle.Render(data.StatusLine)
	}

	lines := []string{
		headerStyle.Render(data.Header),
		row,
		status,
	}
	if data.Notification != "" {
		lines = append(lines, panelStyle.Render(data.Notification))
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

// RenderMarkdown renders notes with the glamour style matching theme
// ("light" or "dark"). Rendering errors fall back to the raw text.
func RenderMarkdown(md string, theme string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	style := "dark"
	if theme == "light" {
		style = "light"
	}
	out, err := glamour.Render(md, style)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

func TierStyle(t urgency.Tier) lipgloss.Style {
	if s, ok := tierStyles[t]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func tierBadge(t urgency.Tier) string {
	return TierStyle(t).Render("[" + strings.ToUpper(string(t)) + "]")
}

// RenderNext is the card for the soonest-expiring record.
func RenderNext(rec model.TrackedRecord, now time.Time) string {
	row := RowOf(rec, now)
	var b strings.Builder
	b.WriteString(TierStyle(row.Tier).Render(row.Type) + "\n")
	b.WriteString(fmt.Sprintf("%d days remaining\n", row.Days))
	b.WriteString(fmt.Sprintf("%s expires on %s", Title(rec), row.Expiry))
	if notes := strings.TrimSpace(rec.Notes); notes != "" {
		b.WriteString("\n" + mutedStyle.Render(notes))
	}
	return nextStyle.Render(b.String())
}

// RenderRecordList lists rows with a cursor on selectedID.
func RenderRecordList(filter Filter, rows []Row, selectedID string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("documents (%s):\n", filter))
	if len(rows) == 0 {
		b.WriteString("  (none)")
		return b.String()
	}
	for _, row := range rows {
		cursor := " "
		if row.ID == selectedID {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s %s - %s, %s\n", cursor, tierBadge(row.Tier), row.Person, row.Type, row.DaysText))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RenderTimeline renders one section per person category.
func RenderTimeline(groups []PersonGroup, now time.Time) string {
	if len(groups) == 0 {
		return "timeline:\n(no dates)"
	}
	var b strings.Builder
	b.WriteString("timeline:")
	for _, g := range groups {
		b.WriteString(fmt.Sprintf("\n%s:\n", g.Label))
		for _, rec := range g.Records {
			row := RowOf(rec, now)
			b.WriteString(fmt.Sprintf("  %s %s  expires %s  (%d days)\n", tierBadge(row.Tier), Title(rec), row.Expiry, row.Days))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RenderDetail is the metadata pane for one record; notes are pre-rendered.
func RenderDetail(rec model.TrackedRecord, now time.Time, notes string) string {
	row := RowOf(rec, now)
	var b strings.Builder
	b.WriteString("details:\n")
	b.WriteString(fmt.Sprintf("id: %s\n", rec.ID))
	b.WriteString(fmt.Sprintf("document: %s\n", row.Type))
	b.WriteString(fmt.Sprintf("person: %s (%s)\n", row.Person, rec.PersonCategory.Label()))
	b.WriteString(fmt.Sprintf("expires: %s\n", row.Expiry))
	b.WriteString(fmt.Sprintf("status: %s\n", TierStyle(row.Tier).Render(row.DaysText)))
	b.WriteString(fmt.Sprintf("reminders: %s days before", row.Offsets))
	if notes != "" {
		b.WriteString("\n\nnotes:\n" + notes)
	}
	return b.String()
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: %s", input)
}

func RenderNotification(title, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("%s\n%s", headerStyle.Render(title), body)
}

func RenderEmpty() string {
	return "No documents tracked yet.\nPress / and type /add <type> <person> <YYYY-MM-DD> to add one."
}
