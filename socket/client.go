package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"clariox/internal/editor/session"
	"clariox/internal/post/model"
	"clariox/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 20
	publishTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser and terminal front-ends connect from other origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	PostID string
	UserID string
	Send   chan []byte

	post     *model.Post
	loadedAt uint64
	session  *session.Session
	joined   chan struct{}
}

// ServeWs opens a live editing connection for postId. The post is loaded
// before the upgrade so unknown or foreign posts get a plain 404. A room
// still saving the post is waited for first, so a reloaded tab starts from
// the saved document.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	postID := r.URL.Query().Get("postId")
	if postID == "" {
		http.Error(w, "Missing postId", http.StatusBadRequest)
		return
	}

	seq, err := hub.settled(r.Context(), postID)
	if err != nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	post, err := hub.posts.GetPost(r.Context(), userID, postID)
	if errors.Is(err, model.ErrNotFound) {
		logger.Sugar.Warnf("Connection rejected: post %s not found for user %s", postID, userID)
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to load post %s: %v", postID, err)
		http.Error(w, "Failed to load post", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:      hub,
		Conn:     conn,
		PostID:   postID,
		UserID:   userID,
		Send:     make(chan []byte, 256),
		post:     post,
		loadedAt: seq,
		joined:   make(chan struct{}),
	}

	select {
	case hub.Register <- client:
	case <-hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	select {
	case <-c.joined:
	case <-c.Hub.done:
		return
	}
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}
		// Server-authoritative fields.
		msg.PostID = c.PostID
		msg.UserID = c.UserID
		msg.origin = c

		if relay := c.handle(msg); relay {
			select {
			case c.Hub.Broadcast <- msg:
			case <-c.Hub.done:
				return
			}
		}
	}
}

// handle applies msg to the room session and reports whether the other
// connections in the room should see it.
func (c *Client) handle(msg WSMessage) bool {
	switch msg.Type {
	case TitleType:
		var p TitlePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			logger.Sugar.Warnf("Bad %s payload from %s: %v", msg.Type, c.UserID, err)
			return false
		}
		c.session.UpdateTitle(p.Title)
		return true

	case ContentType:
		var p ContentPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || !isObject(p.Content) {
			logger.Sugar.Warnf("Bad %s payload from %s", msg.Type, c.UserID)
			return false
		}
		c.session.UpdateContent(p.Content)
		return true

	case SaveType:
		c.session.Save()
		return false

	case PublishType:
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if _, err := c.session.TogglePublish(ctx); err != nil {
			logger.Sugar.Errorf("Failed to toggle publish for post %s: %v", c.PostID, err)
			return false
		}
		snap := c.session.Snapshot()
		c.Hub.broadcastJSON(c.PostID, UpdateType, c.UserID, DocumentPayload{
			ID:      snap.ID,
			Title:   snap.Title,
			Content: snap.Content,
			Status:  snap.Status,
		})
		return false

	default:
		logger.Sugar.Warnf("Unknown message type %q from %s", msg.Type, c.UserID)
		return false
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendJSON queues a message for this client only.
func (c *Client) sendJSON(msgType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s payload: %v", msgType, err)
		return
	}
	msg, _ := json.Marshal(WSMessage{Type: msgType, PostID: c.PostID, Payload: raw})
	select {
	case c.Send <- msg:
	default:
		logger.Sugar.Warnf("Client %s's send buffer is full.", c.UserID)
	}
}

func isObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}
