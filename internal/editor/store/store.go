// Package store holds the document open in an editor session.
//
// A Store is the single source of truth for the open post's editable fields
// and its save state. Readers take copies with Snapshot or subscribe to
// changes; listeners receive the state before and after every mutation.
// The store performs no I/O.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sync"

	"clariox/internal/post/model"
)

// SaveState is owned by the auto-save coordinator.
type SaveState struct {
	IsSaving bool
	// LastSavedFingerprint is "" until a document is loaded or saved.
	LastSavedFingerprint string
}

// Snapshot is a copy of the store's state at one point in time.
type Snapshot struct {
	ID      string // "" when no document is open
	Title   string
	Content json.RawMessage
	Status  model.Status
	SaveState
}

// Fingerprint of the snapshot's title and content.
func (s Snapshot) Fingerprint() string {
	return Fingerprint(s.Title, s.Content)
}

// Dirty reports whether title or content differ from what was last persisted.
func (s Snapshot) Dirty() bool {
	return s.ID != "" && s.Fingerprint() != s.LastSavedFingerprint
}

// Listener is called after each mutation, outside the store lock, on the
// mutating goroutine. Listeners must not modify the snapshots.
type Listener func(prev, next Snapshot)

type subscription struct {
	id int
	fn Listener
}

type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners []subscription
	nextID    int
}

func New() *Store {
	return &Store{}
}

// LoadDocument replaces the open document. The fingerprint is pre-seeded so
// that loading never looks like an unsaved edit.
func (s *Store) LoadDocument(id, title string, content json.RawMessage) {
	content = clone(content)
	s.update(func(snap *Snapshot) {
		*snap = Snapshot{
			ID:      id,
			Title:   title,
			Content: content,
			Status:  model.StatusDraft,
			SaveState: SaveState{
				LastSavedFingerprint: Fingerprint(title, content),
			},
		}
	})
}

// LoadPost loads a fetched post, keeping its publish status.
func (s *Store) LoadPost(p *model.Post) {
	content := clone(p.Content)
	status := p.Status
	if !status.Valid() {
		status = model.StatusDraft
	}
	s.update(func(snap *Snapshot) {
		*snap = Snapshot{
			ID:      p.ID,
			Title:   p.Title,
			Content: content,
			Status:  status,
			SaveState: SaveState{
				LastSavedFingerprint: Fingerprint(p.Title, content),
			},
		}
	})
}

func (s *Store) UpdateContent(content json.RawMessage) {
	content = clone(content)
	s.update(func(snap *Snapshot) { snap.Content = content })
}

func (s *Store) UpdateTitle(title string) {
	s.update(func(snap *Snapshot) { snap.Title = title })
}

func (s *Store) SetSaving(saving bool) {
	s.update(func(snap *Snapshot) { snap.IsSaving = saving })
}

func (s *Store) SetLastSavedFingerprint(fp string) {
	s.update(func(snap *Snapshot) { snap.LastSavedFingerprint = fp })
}

// SetStatus applies the publish status returned by the API.
func (s *Store) SetStatus(status model.Status) {
	s.update(func(snap *Snapshot) { snap.Status = status })
}

// Reset clears the store back to its empty state.
func (s *Store) Reset() {
	s.update(func(snap *Snapshot) { *snap = Snapshot{} })
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snap
	snap.Content = clone(s.snap.Content)
	return snap
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) update(mutate func(*Snapshot)) {
	s.mu.Lock()
	prev := s.snap
	mutate(&s.snap)
	next := s.snap
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, next)
	}
}

// Fingerprint identifies a (title, content) pair. Content is compacted first
// so whitespace-only differences in the payload do not count as edits.
func Fingerprint(title string, content json.RawMessage) string {
	h := sha256.New()
	// Length-prefixed raw bytes: invalid UTF-8 titles stay distinct.
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(title)))
	h.Write(n[:])
	h.Write([]byte(title))

	var compact bytes.Buffer
	if len(content) > 0 && json.Compact(&compact, content) == nil {
		h.Write(compact.Bytes())
	} else {
		h.Write(content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func clone(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
