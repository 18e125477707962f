// Package session wires a document store and its auto-save coordinator to a
// backend for one editor at a time.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"clariox/internal/ai"
	"clariox/internal/editor/autosave"
	"clariox/internal/editor/content"
	"clariox/internal/editor/store"
	"clariox/internal/post/model"

	"go.uber.org/zap"
)

var (
	ErrNoDocument  = errors.New("no document open")
	ErrNoGenerator = errors.New("ai assistance is not configured")
)

// Backend loads and persists posts. *client.Client satisfies it, as does the
// server's in-process adapter.
type Backend interface {
	autosave.Persister
	Get(ctx context.Context, id string) (*model.Post, error)
	SetStatus(ctx context.Context, id string, status model.Status) (*model.Post, error)
}

type Option func(*Session)

func WithGenerator(g ai.Generator) Option {
	return func(s *Session) { s.generator = g }
}

// WithAutoSave passes options to every coordinator the session creates.
func WithAutoSave(opts ...autosave.Option) Option {
	return func(s *Session) { s.autosaveOpts = append(s.autosaveOpts, opts...) }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

type Session struct {
	store        *store.Store
	backend      Backend
	generator    ai.Generator
	autosaveOpts []autosave.Option
	log          *zap.Logger

	mu       sync.Mutex
	coord    *autosave.Coordinator
	statusFn []func(autosave.Status)

	// retired tracks saves still running on torn-down coordinators.
	retired sync.WaitGroup
}

func New(backend Backend, opts ...Option) *Session {
	s := &Session{
		store:   store.New(),
		backend: backend,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store for read access and subscriptions.
func (s *Session) Store() *store.Store {
	return s.store
}

// Open tears down the current document and loads id. On error the session
// is left empty.
func (s *Session) Open(ctx context.Context, id string) error {
	s.teardown()

	p, err := s.backend.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load post %s: %w", id, err)
	}
	s.Attach(p)
	return nil
}

// Attach starts editing an already fetched post.
func (s *Session) Attach(p *model.Post) {
	s.teardown()
	s.store.LoadPost(p)

	opts := append([]autosave.Option{autosave.WithLogger(s.log)}, s.autosaveOpts...)
	coord := autosave.New(s.store, s.backend, opts...)

	s.mu.Lock()
	for _, fn := range s.statusFn {
		coord.OnStatus(fn)
	}
	s.coord = coord
	s.mu.Unlock()
}

// OnStatus registers fn with the current and all future coordinators.
func (s *Session) OnStatus(fn func(autosave.Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusFn = append(s.statusFn, fn)
	if s.coord != nil {
		s.coord.OnStatus(fn)
	}
}

func (s *Session) UpdateTitle(title string) {
	s.store.UpdateTitle(title)
}

func (s *Session) UpdateContent(c json.RawMessage) {
	s.store.UpdateContent(c)
}

// Save requests an immediate save.
func (s *Session) Save() {
	if coord := s.coordinator(); coord != nil {
		coord.Save()
	}
}

func (s *Session) Status() autosave.Status {
	if coord := s.coordinator(); coord != nil {
		return coord.Status()
	}
	return autosave.StatusIdle
}

func (s *Session) Snapshot() store.Snapshot {
	return s.store.Snapshot()
}

// TogglePublish flips the post between draft and published.
func (s *Session) TogglePublish(ctx context.Context) (model.Status, error) {
	snap := s.store.Snapshot()
	if snap.ID == "" {
		return "", ErrNoDocument
	}

	p, err := s.backend.SetStatus(ctx, snap.ID, snap.Status.Toggle())
	if err != nil {
		return snap.Status, fmt.Errorf("update status: %w", err)
	}
	if s.store.Snapshot().ID == snap.ID {
		s.store.SetStatus(p.Status)
	}
	return p.Status, nil
}

// Assist rewrites the document body with the generator. The result replaces
// the content as plain paragraphs and is auto-saved like any other edit.
func (s *Session) Assist(ctx context.Context, mode ai.Mode) (string, error) {
	if s.generator == nil {
		return "", ErrNoGenerator
	}
	snap := s.store.Snapshot()
	if snap.ID == "" {
		return "", ErrNoDocument
	}

	text := content.PlainText(snap.Content)
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyText
	}

	result, err := s.generator.Generate(ctx, text, mode)
	if err != nil {
		return "", err
	}
	if s.store.Snapshot().ID != snap.ID {
		return "", ErrNoDocument
	}
	s.store.UpdateContent(content.Paragraphs(result))
	return result, nil
}

// Close cancels pending auto-saves and clears the store.
func (s *Session) Close() {
	s.teardown()
}

// Wait blocks until no save started by this session is in flight.
func (s *Session) Wait() {
	if coord := s.coordinator(); coord != nil {
		coord.Wait()
	}
	s.retired.Wait()
}

func (s *Session) coordinator() *autosave.Coordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coord
}

func (s *Session) teardown() {
	s.mu.Lock()
	coord := s.coord
	s.coord = nil
	s.mu.Unlock()

	if coord != nil {
		coord.Close()
		s.retired.Add(1)
		go func() {
			defer s.retired.Done()
			coord.Wait()
		}()
	}
	s.store.Reset()
}
