package socket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"clariox/internal/editor/autosave"
	"clariox/internal/editor/session"
	"clariox/internal/post/model"
	"clariox/pkg/logger"
)

const (
	DocumentType = "DOCUMENT" // Full document, sent on join
	StatusType   = "STATUS"   // Auto-save indicator changed
	UpdateType   = "UPDATE"   // Post changed outside this connection (publish, REST edit)
	DeleteType   = "DELETE"   // Post was deleted; the socket closes after this
	TitleType    = "TITLE"    // Title edit
	ContentType  = "CONTENT"  // Body edit
	SaveType     = "SAVE"     // Manual save request
	PublishType  = "PUBLISH"  // Toggle draft/published
)

type WSMessage struct {
	Type    string          `json:"type"`
	PostID  string          `json:"post_id"`
	UserID  string          `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// origin is excluded from the broadcast.
	origin *Client
}

type DocumentPayload struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
	Status  model.Status    `json:"status"`
}

type StatusPayload struct {
	Status autosave.Status `json:"status"`
	Dirty  bool            `json:"dirty"`
}

type TitlePayload struct {
	Title string `json:"title"`
}

type ContentPayload struct {
	Content json.RawMessage `json:"content"`
}

// PostService is the slice of the post service the hub persists through.
type PostService interface {
	GetPost(ctx context.Context, ownerID, id string) (*model.Post, error)
	SavePost(ctx context.Context, ownerID, id, title string, body json.RawMessage) (*model.Post, error)
	SetStatus(ctx context.Context, ownerID, id string, status model.Status) (*model.Post, error)
}

// ownerBackend persists on behalf of one user.
type ownerBackend struct {
	posts   PostService
	ownerID string
}

func (b ownerBackend) Get(ctx context.Context, id string) (*model.Post, error) {
	return b.posts.GetPost(ctx, b.ownerID, id)
}

func (b ownerBackend) Save(ctx context.Context, id, title string, content json.RawMessage) (*model.Post, error) {
	return b.posts.SavePost(ctx, b.ownerID, id, title, content)
}

func (b ownerBackend) SetStatus(ctx context.Context, id string, status model.Status) (*model.Post, error) {
	return b.posts.SetStatus(ctx, b.ownerID, id, status)
}

// Room is every connection editing one post. The connections share one
// editor session, so edits from any of them are auto-saved together.
type Room struct {
	Clients map[*Client]bool
	Session *session.Session
}

const reloadTimeout = 10 * time.Second

var errHubStopped = errors.New("hub stopped")

type Hub struct {
	Rooms      map[string]*Room
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	posts    PostService
	autosave []autosave.Option
	mu       sync.Mutex

	// closing holds rooms whose final save is still running, by post id.
	// closedSeq counts finished room closes.
	closing   map[string]chan struct{}
	closedSeq uint64
	closers   sync.WaitGroup
	done      chan struct{}
}

func NewHub(posts PostService, opts ...autosave.Option) *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Broadcast:  make(chan WSMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		posts:      posts,
		autosave:   opts,
		closing:    make(map[string]chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// flushes and closes every room.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.Register:
			h.join(client)

		case client := <-h.Unregister:
			h.leave(client)

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}
			h.send(msg.PostID, payload, msg.origin)

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Wait blocks until rooms closed by Run have finished their final saves.
func (h *Hub) Wait() {
	h.closers.Wait()
}

// settled blocks while a room for postID is still saving and returns the
// close counter to pass to join. A post loaded afterwards includes every
// flushed edit.
func (h *Hub) settled(ctx context.Context, postID string) (uint64, error) {
	for {
		h.mu.Lock()
		ch, closing := h.closing[postID]
		seq := h.closedSeq
		h.mu.Unlock()
		if !closing {
			return seq, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-h.done:
			return 0, errHubStopped
		}
	}
}

func (h *Hub) join(client *Client) {
	h.mu.Lock()
	room, ok := h.Rooms[client.PostID]
	if !ok {
		_, closing := h.closing[client.PostID]
		if closing || client.loadedAt != h.closedSeq {
			// The post was loaded before a room's final save landed.
			h.mu.Unlock()
			go h.reload(client)
			return
		}
		// First connection for this post: start a session from the post
		// loaded during the handshake.
		sess := session.New(
			ownerBackend{posts: h.posts, ownerID: client.UserID},
			session.WithAutoSave(h.autosave...),
			session.WithLogger(logger.Log.Named("autosave")),
		)
		room = &Room{Clients: make(map[*Client]bool), Session: sess}
		h.Rooms[client.PostID] = room
		h.mu.Unlock()

		postID := client.PostID
		sess.Attach(client.post)
		sess.OnStatus(func(st autosave.Status) { h.broadcastStatus(postID, sess, st) })
		h.mu.Lock()
	}
	room.Clients[client] = true
	client.session = room.Session
	h.mu.Unlock()

	snap := room.Session.Snapshot()
	status := room.Session.Status()

	// Send is closed once the client leaves the room.
	h.mu.Lock()
	if room.Clients[client] {
		client.sendJSON(DocumentType, DocumentPayload{
			ID:      snap.ID,
			Title:   snap.Title,
			Content: snap.Content,
			Status:  snap.Status,
		})
		client.sendJSON(StatusType, StatusPayload{Status: status, Dirty: snap.Dirty()})
	}
	h.mu.Unlock()
	close(client.joined)
	logger.Sugar.Infof("User %s joined post %s", client.UserID, client.PostID)
}

// reload fetches the post again once pending room saves have landed and
// registers the client a second time.
func (h *Hub) reload(client *Client) {
	seq, err := h.settled(context.Background(), client.PostID)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		var post *model.Post
		post, err = h.posts.GetPost(ctx, client.UserID, client.PostID)
		cancel()
		if err == nil {
			client.post, client.loadedAt = post, seq
			select {
			case h.Register <- client:
				return
			case <-h.done:
				err = errHubStopped
			}
		}
	}

	logger.Sugar.Warnf("Dropping connection to post %s: %v", client.PostID, err)
	client.Conn.Close()
	close(client.Send)
	close(client.joined)
}

func (h *Hub) leave(client *Client) {
	h.mu.Lock()
	room, ok := h.Rooms[client.PostID]
	if !ok || !room.Clients[client] {
		h.mu.Unlock()
		return
	}
	delete(room.Clients, client)
	close(client.Send)

	if len(room.Clients) == 0 {
		delete(h.Rooms, client.PostID)
		h.closeRoomLocked(client.PostID, room, true)
	}
	h.mu.Unlock()
}

// closeRoomLocked runs the room's final save in the background. Pending
// edits are flushed once any in-flight save has returned. Until it finishes
// the post is marked closing so new connections wait for the save.
func (h *Hub) closeRoomLocked(postID string, room *Room, flush bool) {
	done := make(chan struct{})
	h.closing[postID] = done
	h.closers.Add(1)
	go func() {
		defer h.closers.Done()
		sess := room.Session
		if flush {
			sess.Wait()
			sess.Save()
		}
		sess.Close()
		sess.Wait()

		h.mu.Lock()
		if h.closing[postID] == done {
			delete(h.closing, postID)
		}
		h.closedSeq++
		h.mu.Unlock()
		close(done)
		logger.Sugar.Infof("Closed room for post %s", postID)
	}()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	rooms := h.Rooms
	h.Rooms = make(map[string]*Room)
	for postID, room := range rooms {
		for client := range room.Clients {
			client.Conn.Close()
			close(client.Send)
		}
		h.closeRoomLocked(postID, room, true)
	}
	h.mu.Unlock()
}

// PostUpdated tells open editors that a post changed through the REST API.
func (h *Hub) PostUpdated(post *model.Post, userID string) {
	h.mu.Lock()
	room, ok := h.Rooms[post.ID]
	h.mu.Unlock()
	if !ok {
		return
	}

	snap := room.Session.Snapshot()
	if snap.ID == post.ID && snap.Status != post.Status && post.Status.Valid() {
		room.Session.Store().SetStatus(post.Status)
	}
	h.broadcastJSON(post.ID, UpdateType, userID, DocumentPayload{
		ID:      post.ID,
		Title:   post.Title,
		Content: post.Content,
		Status:  post.Status,
	})
}

// PostDeleted closes every connection editing postID. Pending edits are
// discarded so the post is not written back.
func (h *Hub) PostDeleted(postID string) {
	h.mu.Lock()
	room, ok := h.Rooms[postID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.Rooms, postID)
	msg, _ := json.Marshal(WSMessage{Type: DeleteType, PostID: postID})
	for client := range room.Clients {
		select {
		case client.Send <- msg:
		default:
		}
		close(client.Send)
	}
	h.closeRoomLocked(postID, room, false)
	h.mu.Unlock()
}

func (h *Hub) broadcastStatus(postID string, sess *session.Session, st autosave.Status) {
	h.broadcastJSON(postID, StatusType, "", StatusPayload{Status: st, Dirty: sess.Snapshot().Dirty()})
}

func (h *Hub) broadcastJSON(postID, msgType, userID string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s payload: %v", msgType, err)
		return
	}
	msg, _ := json.Marshal(WSMessage{Type: msgType, PostID: postID, UserID: userID, Payload: raw})
	h.send(postID, msg, nil)
}

// send never blocks. A client whose buffer is full is disconnected; its
// read loop then unregisters it.
func (h *Hub) send(postID string, payload []byte, except *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.Rooms[postID]
	if !ok {
		return
	}
	for client := range room.Clients {
		if client == except {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer is full. Disconnecting.", client.UserID)
			client.Conn.Close()
		}
	}
}
