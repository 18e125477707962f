package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#7D56F4")
	muted  = lipgloss.Color("#6C7086")
	green  = lipgloss.Color("#A6E3A1")
	yellow = lipgloss.Color("#F9E2AF")
	red    = lipgloss.Color("#F38BA8")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	helpStyle  = lipgloss.NewStyle().Foreground(muted)
	errorStyle = lipgloss.NewStyle().Foreground(red)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accent)
	rowStyle      = lipgloss.NewStyle()
	snippetStyle  = lipgloss.NewStyle().Foreground(muted)

	draftBadge     = lipgloss.NewStyle().Foreground(yellow).Render("draft")
	publishedBadge = lipgloss.NewStyle().Foreground(green).Render("published")

	savingStyle = lipgloss.NewStyle().Foreground(yellow)
	savedStyle  = lipgloss.NewStyle().Foreground(green)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)
