// Package tui is the terminal front-end: sign in, pick a post, edit it with
// auto-save.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"clariox/internal/ai"
	"clariox/internal/editor/autosave"
	"clariox/internal/editor/client"
	"clariox/internal/editor/session"
	"clariox/internal/editor/store"
	"clariox/internal/post/model"
	"clariox/internal/prefs"
)

type View int

const (
	ViewLogin View = iota
	ViewDashboard
	ViewEditor
)

type Options struct {
	Context   context.Context
	Client    *client.Client
	Prefs     prefs.Prefs
	PrefsPath string
	// PollTick is how often the editor refreshes the save indicator.
	PollTick time.Duration
	AutoSave []autosave.Option
	Logger   *zap.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	client    *client.Client
	session   *session.Session
	prefs     prefs.Prefs
	prefsPath string
	pollTick  time.Duration

	view   View
	width  int
	height int
	err    string
	notice string

	// Login
	email      textinput.Model
	password   textinput.Model
	loginFocus int

	// Dashboard
	posts         []model.Post
	selected      int
	confirmDelete bool

	// Editor
	title       textinput.Model
	body        textarea.Model
	bodyFocused bool
	snapshot    store.Snapshot
	status      autosave.Status
	busy        string
	tickGen     int
}

func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = 100 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	email := textinput.New()
	email.Placeholder = "email"
	email.SetValue(opts.Prefs.Email)
	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword

	title := textinput.New()
	title.Placeholder = model.DefaultTitle
	title.CharLimit = 200
	body := textarea.New()
	body.Placeholder = "Start writing..."
	body.ShowLineNumbers = false
	body.CharLimit = 0

	sess := session.New(opts.Client,
		session.WithGenerator(opts.Client),
		session.WithAutoSave(opts.AutoSave...),
		session.WithLogger(log),
	)

	m := Model{
		ctx:       ctx,
		client:    opts.Client,
		session:   sess,
		prefs:     opts.Prefs,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		email:     email,
		password:  password,
		title:     title,
		body:      body,
		status:    autosave.StatusIdle,
	}

	if opts.Client.Token() == "" {
		m.view = ViewLogin
		m.focusLogin(0)
	} else {
		m.view = ViewDashboard
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if m.view == ViewLogin {
		return textinput.Blink
	}
	return loadPostsCmd(m.ctx, m.client)
}

func (m Model) View() string {
	var b strings.Builder
	switch m.view {
	case ViewLogin:
		b.WriteString(m.renderLogin())
	case ViewDashboard:
		b.WriteString(m.renderDashboard())
	case ViewEditor:
		b.WriteString(m.renderEditor())
	}
	b.WriteString("\n")
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err))
	} else if m.notice != "" {
		b.WriteString(helpStyle.Render(m.notice))
	}
	return b.String()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resizeEditor()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, quitCmd(m.session)
		}
		switch m.view {
		case ViewLogin:
			return m.updateLogin(msg)
		case ViewDashboard:
			return m.updateDashboard(msg)
		case ViewEditor:
			return m.updateEditor(msg)
		}
		return m, nil

	case quitMsg:
		return m, tea.Quit

	case authMsg:
		if msg.err != nil {
			m.err = "Sign in failed: " + errorText(msg.err)
			return m, nil
		}
		m.err = ""
		m.prefs.Email = msg.email
		m.prefs.Token = msg.token
		if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
			m.notice = "Could not save preferences: " + err.Error()
		}
		m.password.SetValue("")
		m.view = ViewDashboard
		return m, loadPostsCmd(m.ctx, m.client)

	case postsMsg:
		if m.handleErr(msg.err) {
			return m, nil
		}
		m.posts = msg.posts
		if m.selected >= len(m.posts) {
			m.selected = max(len(m.posts)-1, 0)
		}
		return m, nil

	case createdMsg:
		if m.handleErr(msg.err) {
			return m, nil
		}
		return m, openCmd(m.ctx, m.session, msg.post.ID)

	case deletedMsg:
		if m.handleErr(msg.err) {
			return m, nil
		}
		m.notice = "Post deleted"
		return m, loadPostsCmd(m.ctx, m.client)

	case openedMsg:
		if m.handleErr(msg.err) {
			return m, nil
		}
		return m.enterEditor()

	case tickMsg:
		if m.view != ViewEditor || msg.gen != m.tickGen {
			return m, nil
		}
		m.snapshot = m.session.Snapshot()
		m.status = m.session.Status()
		return m, tickCmd(m.pollTick, m.tickGen)

	case publishMsg:
		if m.handleErr(msg.err) {
			return m, nil
		}
		m.snapshot = m.session.Snapshot()
		m.notice = "Status: " + string(msg.status)
		return m, nil

	case assistMsg:
		m.busy = ""
		if errors.Is(msg.err, ai.ErrEmptyText) {
			m.notice = "Write something first"
			return m, nil
		}
		if m.handleErr(msg.err) {
			return m, nil
		}
		m.snapshot = m.session.Snapshot()
		m.body.SetValue(plainText(m.snapshot))
		m.notice = "AI result applied"
		return m, nil

	case leftEditorMsg:
		m.view = ViewDashboard
		return m, loadPostsCmd(m.ctx, m.client)
	}

	return m, nil
}

// handleErr shows err and reports whether there was one. An expired session
// sends the user back to sign in.
func (m *Model) handleErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, client.ErrUnauthorized) {
		m.view = ViewLogin
		m.prefs.Token = ""
		m.client.SetToken("")
		m.focusLogin(1)
		m.err = "Session expired, please sign in again"
		return true
	}
	m.err = errorText(err)
	return true
}

func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return err.Error()
}

func (m *Model) resizeEditor() {
	if m.width <= 0 {
		return
	}
	m.title.Width = max(m.width-8, 10)
	m.body.SetWidth(max(m.width-4, 10))
	m.body.SetHeight(max(m.height-9, 3))
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(contextOrBackground(opts.Context)))
	_, err := p.Run()
	return err
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
