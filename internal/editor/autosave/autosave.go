// Package autosave persists edits made to a store after a quiet period.
//
// A Coordinator watches one store. Each title or content edit restarts a
// debounce timer; when the timer fires and the document differs from what
// was last persisted, the document is handed to a Persister. At most one
// save is in flight per coordinator. An edit that lands while a save is in
// flight does not queue a second save: it is picked up by the next edit's
// timer or by a manual Save.
package autosave

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"clariox/internal/editor/store"
	"clariox/internal/post/model"

	"go.uber.org/zap"
)

const (
	DefaultDebounce     = time.Second
	DefaultSavedDisplay = 1500 * time.Millisecond
	DefaultSaveTimeout  = 30 * time.Second
)

// Status is the save indicator shown to the user.
type Status string

const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
)

// Persister writes a document's title and content. The returned post, when
// non-nil, carries the server's view of the document.
type Persister interface {
	Save(ctx context.Context, id, title string, content json.RawMessage) (*model.Post, error)
}

type PersisterFunc func(ctx context.Context, id, title string, content json.RawMessage) (*model.Post, error)

func (f PersisterFunc) Save(ctx context.Context, id, title string, content json.RawMessage) (*model.Post, error) {
	return f(ctx, id, title, content)
}

type Option func(*Coordinator)

func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithSavedDisplay sets how long StatusSaved lasts before returning to idle.
func WithSavedDisplay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.savedDisplay = d
		}
	}
}

func WithSaveTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.saveTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

type Coordinator struct {
	store     *store.Store
	persister Persister
	log       *zap.Logger

	debounce     time.Duration
	savedDisplay time.Duration
	saveTimeout  time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	timerGen   uint64
	savedTimer *time.Timer
	inFlight   bool
	closed     bool
	status     Status
	statusSeq  uint64
	listeners  map[int]func(Status)
	nextID     int

	// emitMu orders listener delivery; emitted is the last delivered seq.
	emitMu  sync.Mutex
	emitted uint64

	unsubscribe func()
	wg          sync.WaitGroup
}

// New starts watching s. Call Close to stop.
func New(s *store.Store, p Persister, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:        s,
		persister:    p,
		log:          zap.NewNop(),
		debounce:     DefaultDebounce,
		savedDisplay: DefaultSavedDisplay,
		saveTimeout:  DefaultSaveTimeout,
		status:       StatusIdle,
		listeners:    make(map[int]func(Status)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = s.Subscribe(c.onChange)
	return c
}

func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// OnStatus registers fn for status transitions. Listeners run on the
// goroutine that caused the transition and must not call Save or Close.
// A slow listener may cause intermediate statuses to be skipped, never
// reordered.
func (c *Coordinator) OnStatus(fn func(Status)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Save persists the document now, cancelling any pending debounce. It is a
// no-op while a save is in flight or when nothing changed.
func (c *Coordinator) Save() {
	c.mu.Lock()
	seq, ok := c.flushLocked(true)
	c.mu.Unlock()
	if ok {
		c.emit(seq, StatusSaving)
	}
}

// Close stops the coordinator. Pending timers are cancelled; a save already
// in flight runs to completion but no longer touches the store.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancelTimerLocked()
	c.stopSavedTimerLocked()
	c.mu.Unlock()

	c.unsubscribe()
}

// Wait blocks until in-flight saves have returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) onChange(prev, next store.Snapshot) {
	switched := prev.ID != next.ID
	edited := prev.Title != next.Title || !bytes.Equal(prev.Content, next.Content)
	if !switched && !edited {
		// Save-state changes, including the ones this coordinator makes
		// while holding c.mu.
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	var seq uint64
	if switched {
		c.cancelTimerLocked()
		c.stopSavedTimerLocked()
		if c.status == StatusSaved {
			seq = c.setStatusLocked(StatusIdle)
		}
	}
	if edited && next.ID != "" {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	if seq != 0 {
		c.emit(seq, StatusIdle)
	}
}

func (c *Coordinator) scheduleLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(gen) })
}

func (c *Coordinator) cancelTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	// A callback that already started must see it was superseded.
	c.timerGen++
}

func (c *Coordinator) stopSavedTimerLocked() {
	if c.savedTimer != nil {
		c.savedTimer.Stop()
		c.savedTimer = nil
	}
}

func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	seq, ok := c.flushLocked(false)
	c.mu.Unlock()
	if ok {
		c.emit(seq, StatusSaving)
	}
}

// flushLocked starts a save if one is due. The in-flight flag is set before
// the save goroutine exists so a concurrent flush cannot start another.
func (c *Coordinator) flushLocked(manual bool) (uint64, bool) {
	if c.closed {
		return 0, false
	}
	if c.inFlight {
		c.log.Debug("save already in flight, skipping")
		return 0, false
	}
	if manual {
		c.cancelTimerLocked()
	}

	snap := c.store.Snapshot()
	if snap.ID == "" {
		return 0, false
	}
	fp := snap.Fingerprint()
	if fp == snap.LastSavedFingerprint {
		return 0, false
	}

	c.inFlight = true
	c.stopSavedTimerLocked()
	seq := c.setStatusLocked(StatusSaving)
	c.store.SetSaving(true)

	c.wg.Add(1)
	go c.save(snap, fp)
	return seq, true
}

func (c *Coordinator) save(snap store.Snapshot, fp string) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.saveTimeout)
	defer cancel()

	saved, err := c.persister.Save(ctx, snap.ID, snap.Title, snap.Content)

	c.mu.Lock()
	c.inFlight = false
	if c.closed {
		c.mu.Unlock()
		if err != nil {
			c.log.Warn("auto-save failed after close", zap.String("post_id", snap.ID), zap.Error(err))
		}
		return
	}
	c.store.SetSaving(false)

	if err != nil {
		c.log.Error("auto-save failed", zap.String("post_id", snap.ID), zap.Error(err))
		seq := c.setStatusLocked(StatusIdle)
		c.mu.Unlock()
		c.emit(seq, StatusIdle)
		return
	}

	if c.store.Snapshot().ID != snap.ID {
		// The store moved on to another document while this one was saving.
		seq := c.setStatusLocked(StatusIdle)
		c.mu.Unlock()
		c.emit(seq, StatusIdle)
		return
	}

	c.store.SetLastSavedFingerprint(fp)
	if saved != nil && saved.Status.Valid() {
		c.store.SetStatus(saved.Status)
	}
	c.log.Debug("auto-saved", zap.String("post_id", snap.ID))

	seq := c.setStatusLocked(StatusSaved)
	c.savedTimer = time.AfterFunc(c.savedDisplay, func() { c.clearSaved(seq) })
	c.mu.Unlock()
	c.emit(seq, StatusSaved)
}

func (c *Coordinator) clearSaved(savedSeq uint64) {
	c.mu.Lock()
	if c.closed || c.statusSeq != savedSeq {
		c.mu.Unlock()
		return
	}
	c.savedTimer = nil
	seq := c.setStatusLocked(StatusIdle)
	c.mu.Unlock()
	c.emit(seq, StatusIdle)
}

func (c *Coordinator) setStatusLocked(s Status) uint64 {
	c.status = s
	c.statusSeq++
	return c.statusSeq
}

func (c *Coordinator) emit(seq uint64, s Status) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if seq <= c.emitted {
		return
	}
	c.emitted = seq

	c.mu.Lock()
	listeners := make([]func(Status), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}
