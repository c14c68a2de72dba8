package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kazz187/agentcal/internal/board"
	"github.com/kazz187/agentcal/internal/eventbus"
	"github.com/kazz187/agentcal/internal/grid"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

// Message is pushed to every client after a commit. The first message of a
// connection carries no event.
type Message struct {
	Event *eventbus.Event `json:"event,omitempty"`
	Board grid.Matrix     `json:"board"`
}

type client struct {
	conn *websocket.Conn
	send chan *Message
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub pushes a fresh board to every connected WebSocket client whenever the
// store commits. A client that cannot keep up is disconnected.
type Hub struct {
	eventBus *eventbus.Bus
	store    *board.Store
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(eventBus *eventbus.Bus, store *board.Store) *Hub {
	return &Hub{
		eventBus: eventBus,
		store:    store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Start fans bus events out to clients until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) error {
	subID, ch := h.eventBus.Subscribe(256)
	defer h.eventBus.Unsubscribe(subID)
	defer h.closeAll()

	slog.Info("stream hub started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("stream hub stopped")
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			h.broadcast(&Message{Event: event, Board: grid.Build(h.store.Snapshot())})
		}
	}
}

func (h *Hub) broadcast(msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slog.Warn("stream client is too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			c.close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		slog.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan *Message, sendBuffer)}
	c.send <- &Message{Board: grid.Build(h.store.Snapshot())}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop discards inbound messages and unregisters the client once the
// connection closes.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			slog.Debug("stream write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}
