package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"clariox/internal/ai"
	"clariox/internal/editor/autosave"
	"clariox/internal/editor/content"
	"clariox/internal/post/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const debounce = 30 * time.Millisecond

type memBackend struct {
	mu    sync.Mutex
	posts map[string]*model.Post
	saves []string
}

func newMemBackend(posts ...*model.Post) *memBackend {
	b := &memBackend{posts: map[string]*model.Post{}}
	for _, p := range posts {
		b.posts[p.ID] = p
	}
	return b
}

func (b *memBackend) Get(_ context.Context, id string) (*model.Post, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.posts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (b *memBackend) Save(_ context.Context, id, title string, c json.RawMessage) (*model.Post, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.posts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	p.Title, p.Content = title, c
	b.saves = append(b.saves, id+":"+title)
	cp := *p
	return &cp, nil
}

func (b *memBackend) SetStatus(_ context.Context, id string, status model.Status) (*model.Post, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.posts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	p.Status = status
	cp := *p
	return &cp, nil
}

func (b *memBackend) Saves() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.saves...)
}

type stubGenerator struct {
	got  string
	mode ai.Mode
	out  string
	err  error
}

func (g *stubGenerator) Generate(_ context.Context, text string, mode ai.Mode) (string, error) {
	g.got, g.mode = text, mode
	return g.out, g.err
}

func newSession(t *testing.T, b *memBackend, opts ...Option) *Session {
	t.Helper()
	opts = append(opts, WithAutoSave(autosave.WithDebounce(debounce), autosave.WithSavedDisplay(debounce)))
	s := New(b, opts...)
	t.Cleanup(func() {
		s.Close()
		s.Wait()
	})
	return s
}

func post(id, title, text string) *model.Post {
	return &model.Post{ID: id, Title: title, Content: content.Paragraphs(text), Status: model.StatusDraft}
}

func TestOpenLoadsWithoutSaving(t *testing.T) {
	b := newMemBackend(post("p1", "First", "hello"))
	s := newSession(t, b)

	require.NoError(t, s.Open(context.Background(), "p1"))
	time.Sleep(4 * debounce)

	snap := s.Snapshot()
	assert.Equal(t, "p1", snap.ID)
	assert.Equal(t, "First", snap.Title)
	assert.False(t, snap.Dirty())
	assert.Empty(t, b.Saves())
}

func TestOpenMissingLeavesSessionEmpty(t *testing.T) {
	b := newMemBackend(post("p1", "First", ""))
	s := newSession(t, b)
	require.NoError(t, s.Open(context.Background(), "p1"))

	err := s.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, "", s.Snapshot().ID)
	assert.Equal(t, autosave.StatusIdle, s.Status())
}

func TestEditsAreAutoSaved(t *testing.T) {
	b := newMemBackend(post("p1", "First", ""))
	s := newSession(t, b)
	require.NoError(t, s.Open(context.Background(), "p1"))

	s.UpdateTitle("Renamed")
	s.UpdateContent(content.Paragraphs("body"))

	require.Eventually(t, func() bool { return !s.Snapshot().Dirty() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"p1:Renamed"}, b.Saves())
}

func TestSwitchingDocumentsDropsPendingEdit(t *testing.T) {
	b := newMemBackend(post("p1", "First", ""), post("p2", "Second", ""))
	s := newSession(t, b)
	require.NoError(t, s.Open(context.Background(), "p1"))

	s.UpdateTitle("unsaved")
	require.NoError(t, s.Open(context.Background(), "p2"))
	time.Sleep(4 * debounce)

	assert.Empty(t, b.Saves())
	assert.Equal(t, "Second", s.Snapshot().Title)
}

func TestManualSave(t *testing.T) {
	b := newMemBackend(post("p1", "First", ""))
	s := New(b, WithAutoSave(autosave.WithDebounce(time.Hour)))
	t.Cleanup(func() {
		s.Close()
		s.Wait()
	})
	require.NoError(t, s.Open(context.Background(), "p1"))

	s.UpdateTitle("Now")
	s.Save()
	s.Wait()

	assert.Equal(t, []string{"p1:Now"}, b.Saves())
}

func TestStatusListenersFollowDocuments(t *testing.T) {
	b := newMemBackend(post("p1", "First", ""), post("p2", "Second", ""))
	s := newSession(t, b)

	var mu sync.Mutex
	var seen []autosave.Status
	s.OnStatus(func(st autosave.Status) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	require.NoError(t, s.Open(context.Background(), "p1"))
	require.NoError(t, s.Open(context.Background(), "p2"))
	s.UpdateTitle("Edited")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []autosave.Status{autosave.StatusSaving, autosave.StatusSaved}, seen[:2])
	mu.Unlock()
}

func TestTogglePublish(t *testing.T) {
	b := newMemBackend(post("p1", "First", ""))
	s := newSession(t, b)
	ctx := context.Background()

	_, err := s.TogglePublish(ctx)
	assert.ErrorIs(t, err, ErrNoDocument)

	require.NoError(t, s.Open(ctx, "p1"))
	status, err := s.TogglePublish(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPublished, status)
	assert.Equal(t, model.StatusPublished, s.Snapshot().Status)

	status, err = s.TogglePublish(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, status)
	assert.Empty(t, b.Saves(), "publishing is not an edit")
}

func TestAssistReplacesContent(t *testing.T) {
	b := newMemBackend(post("p1", "First", "teh text"))
	gen := &stubGenerator{out: "The text."}
	s := newSession(t, b, WithGenerator(gen))
	require.NoError(t, s.Open(context.Background(), "p1"))

	out, err := s.Assist(context.Background(), ai.ModeGrammar)
	require.NoError(t, err)

	assert.Equal(t, "The text.", out)
	assert.Equal(t, "teh text", gen.got)
	assert.Equal(t, ai.ModeGrammar, gen.mode)
	assert.Equal(t, "The text.", content.PlainText(s.Snapshot().Content))
	require.Eventually(t, func() bool { return len(b.Saves()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestAssistErrors(t *testing.T) {
	b := newMemBackend(post("p1", "First", "x"))

	s := newSession(t, b)
	require.NoError(t, s.Open(context.Background(), "p1"))
	_, err := s.Assist(context.Background(), ai.ModeSummary)
	assert.ErrorIs(t, err, ErrNoGenerator)

	failing := newSession(t, b, WithGenerator(&stubGenerator{err: errors.New("provider down")}))
	require.NoError(t, failing.Open(context.Background(), "p1"))
	before := failing.Snapshot().Content
	_, err = failing.Assist(context.Background(), ai.ModeSummary)
	assert.Error(t, err)
	assert.JSONEq(t, string(before), string(failing.Snapshot().Content))
}

func TestAssistSkipsEmptyDocument(t *testing.T) {
	b := newMemBackend(post("p1", "First", "   "))
	gen := &stubGenerator{out: "made up"}
	s := newSession(t, b, WithGenerator(gen))
	require.NoError(t, s.Open(context.Background(), "p1"))
	before := s.Snapshot().Content

	_, err := s.Assist(context.Background(), ai.ModeImprove)

	assert.ErrorIs(t, err, ai.ErrEmptyText)
	assert.Empty(t, gen.mode, "generator must not be called")
	assert.JSONEq(t, string(before), string(s.Snapshot().Content))
}

func TestCloseResetsStore(t *testing.T) {
	b := newMemBackend(post("p1", "First", ""))
	s := newSession(t, b)
	require.NoError(t, s.Open(context.Background(), "p1"))

	s.UpdateTitle("pending")
	s.Close()
	time.Sleep(4 * debounce)

	assert.Equal(t, "", s.Snapshot().ID)
	assert.Empty(t, b.Saves())
}
