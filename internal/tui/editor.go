package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"clariox/internal/ai"
	"clariox/internal/editor/autosave"
	"clariox/internal/editor/content"
	"clariox/internal/editor/store"
)

var assistKeys = map[string]ai.Mode{
	"ctrl+g": ai.ModeGrammar,
	"ctrl+r": ai.ModeImprove,
	"ctrl+t": ai.ModeSummary,
	"ctrl+y": ai.ModeConversational,
}

func (m Model) enterEditor() (tea.Model, tea.Cmd) {
	m.view = ViewEditor
	m.err, m.notice, m.busy = "", "", ""
	m.snapshot = m.session.Snapshot()
	m.status = m.session.Status()

	m.title.SetValue(m.snapshot.Title)
	m.body.SetValue(plainText(m.snapshot))
	m.bodyFocused = true
	m.title.Blur()
	m.resizeEditor()

	m.tickGen++
	return m, tea.Batch(m.body.Focus(), tickCmd(m.pollTick, m.tickGen))
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc":
		m.tickGen++
		m.notice = "Saving..."
		return m, leaveEditorCmd(m.session)
	case "tab":
		m.bodyFocused = !m.bodyFocused
		if m.bodyFocused {
			m.title.Blur()
			return m, m.body.Focus()
		}
		m.body.Blur()
		return m, m.title.Focus()
	case "ctrl+s":
		m.session.Save()
		m.status = m.session.Status()
		return m, nil
	case "ctrl+p":
		return m, publishCmd(m.ctx, m.session)
	}
	if mode, ok := assistKeys[key]; ok {
		if m.busy != "" {
			return m, nil
		}
		m.busy = "AI: " + string(mode) + "..."
		return m, assistCmd(m.ctx, m.session, mode)
	}

	var cmd tea.Cmd
	if m.bodyFocused {
		before := m.body.Value()
		m.body, cmd = m.body.Update(msg)
		if after := m.body.Value(); after != before {
			m.session.UpdateContent(content.Paragraphs(after))
		}
	} else {
		before := m.title.Value()
		m.title, cmd = m.title.Update(msg)
		if after := m.title.Value(); after != before {
			m.session.UpdateTitle(after)
		}
	}
	m.snapshot = m.session.Snapshot()
	return m, cmd
}

func (m Model) renderEditor() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Title "))
	b.WriteString(m.title.View())
	b.WriteString("\n")
	b.WriteString(statusBadge(m.snapshot.Status))
	b.WriteString("  ")
	b.WriteString(saveIndicator(m.status, m.snapshot))
	if m.busy != "" {
		b.WriteString("  ")
		b.WriteString(savingStyle.Render(m.busy))
	}
	b.WriteString("\n")
	b.WriteString(m.body.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("ctrl+s save • ctrl+p publish • ctrl+g grammar • ctrl+r improve • ctrl+t summary • ctrl+y casual • tab switch • esc back"))
	return b.String()
}

func saveIndicator(st autosave.Status, snap store.Snapshot) string {
	switch st {
	case autosave.StatusSaving:
		return savingStyle.Render("Saving...")
	case autosave.StatusSaved:
		return savedStyle.Render("Saved")
	}
	if snap.Dirty() {
		return helpStyle.Render("Unsaved changes")
	}
	return ""
}

func plainText(snap store.Snapshot) string {
	return content.PlainText(snap.Content)
}
