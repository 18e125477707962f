package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) focusLogin(i int) {
	m.loginFocus = i
	if i == 0 {
		m.email.Focus()
		m.password.Blur()
		return
	}
	m.email.Blur()
	m.password.Focus()
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		m.focusLogin(1 - m.loginFocus)
		return m, nil
	case "enter", "ctrl+n":
		email := strings.TrimSpace(m.email.Value())
		if email == "" || m.password.Value() == "" {
			m.err = "Email and password are required"
			return m, nil
		}
		m.err = ""
		m.notice = "Signing in..."
		return m, authCmd(m.ctx, m.client, email, m.password.Value(), msg.String() == "ctrl+n")
	case "esc":
		return m, quitCmd(m.session)
	}

	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Clariox"))
	b.WriteString("\n\n")
	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter sign in • ctrl+n register • tab switch field • esc quit"))
	return panelStyle.Render(b.String())
}
