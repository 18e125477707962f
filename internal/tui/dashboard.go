package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"clariox/internal/editor/content"
	"clariox/internal/post/model"
)

const snippetLength = 60

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirmDelete {
		m.confirmDelete = false
		if key == "y" && m.selected < len(m.posts) {
			return m, deleteCmd(m.ctx, m.client, m.posts[m.selected].ID)
		}
		m.notice = ""
		return m, nil
	}

	m.err = ""
	switch key {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.posts)-1 {
			m.selected++
		}
	case "enter":
		if m.selected < len(m.posts) {
			m.notice = "Opening..."
			return m, openCmd(m.ctx, m.session, m.posts[m.selected].ID)
		}
	case "n":
		m.notice = "Creating..."
		return m, createCmd(m.ctx, m.client)
	case "d":
		if m.selected < len(m.posts) {
			m.confirmDelete = true
			m.notice = fmt.Sprintf("Delete %q? (y/n)", displayTitle(m.posts[m.selected].Title))
		}
	case "r":
		return m, loadPostsCmd(m.ctx, m.client)
	case "q", "esc":
		return m, quitCmd(m.session)
	}
	return m, nil
}

func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Your posts"))
	if m.prefs.Email != "" {
		b.WriteString(helpStyle.Render("  " + m.prefs.Email))
	}
	b.WriteString("\n\n")

	if len(m.posts) == 0 {
		b.WriteString(helpStyle.Render("No posts yet. Press n to start writing."))
		b.WriteString("\n")
	}
	for i, p := range m.posts {
		line := fmt.Sprintf("%-32s %s", truncate(displayTitle(p.Title), 32), statusBadge(p.Status))
		if i == m.selected {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(rowStyle.Render(line))
		}
		b.WriteString("\n")
		if snippet := content.Snippet(p.Content, snippetLength); snippet != "" {
			b.WriteString(snippetStyle.Render("  " + snippet))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter open • n new • d delete • r refresh • q quit"))
	return b.String()
}

func statusBadge(s model.Status) string {
	if s == model.StatusPublished {
		return publishedBadge
	}
	return draftBadge
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return model.DefaultTitle
	}
	return title
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
