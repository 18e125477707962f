package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"clariox/internal/ai"
	"clariox/internal/editor/client"
	"clariox/internal/editor/content"
	"clariox/internal/editor/session"
	"clariox/internal/post/model"
)

const requestTimeout = 15 * time.Second

// Messages

type tickMsg struct{ gen int }

type quitMsg struct{}

type leftEditorMsg struct{}

type authMsg struct {
	email string
	token string
	err   error
}

type postsMsg struct {
	posts []model.Post
	err   error
}

type createdMsg struct {
	post *model.Post
	err  error
}

type deletedMsg struct {
	id  string
	err error
}

type openedMsg struct{ err error }

type publishMsg struct {
	status model.Status
	err    error
}

type assistMsg struct {
	result string
	err    error
}

// Commands

func tickCmd(d time.Duration, gen int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

func authCmd(ctx context.Context, c *client.Client, email, password string, register bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		var (
			tok string
			err error
		)
		if register {
			tok, err = c.Register(ctx, email, password)
		} else {
			tok, err = c.Login(ctx, email, password)
		}
		return authMsg{email: email, token: tok, err: err}
	}
}

func loadPostsCmd(ctx context.Context, c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		posts, err := c.List(ctx)
		return postsMsg{posts: posts, err: err}
	}
}

func createCmd(ctx context.Context, c *client.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		p, err := c.Create(ctx, model.DefaultTitle, content.Empty())
		return createdMsg{post: p, err: err}
	}
}

func deleteCmd(ctx context.Context, c *client.Client, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return deletedMsg{id: id, err: c.Delete(ctx, id)}
	}
}

func openCmd(ctx context.Context, s *session.Session, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return openedMsg{err: s.Open(ctx, id)}
	}
}

func publishCmd(ctx context.Context, s *session.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		status, err := s.TogglePublish(ctx)
		return publishMsg{status: status, err: err}
	}
}

func assistCmd(ctx context.Context, s *session.Session, mode ai.Mode) tea.Cmd {
	return func() tea.Msg {
		result, err := s.Assist(ctx, mode)
		return assistMsg{result: result, err: err}
	}
}

// flush persists pending edits of the open post and closes it.
func flush(s *session.Session) {
	s.Wait()
	s.Save()
	s.Close()
	s.Wait()
}

func leaveEditorCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		flush(s)
		return leftEditorMsg{}
	}
}

func quitCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		flush(s)
		return quitMsg{}
	}
}
