// Package notify pushes live XP, streak and badge events to connected
// browsers over websockets.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/radake/rada-ke/internal/domain/shared"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Message is what a client receives.
type Message struct {
	Type    shared.EventType       `json:"type"`
	UserID  string                 `json:"user_id"`
	Payload map[string]interface{} `json:"payload"`
	At      time.Time              `json:"at"`
}

type outbound struct {
	userID string
	data   []byte
}

// Hub tracks connected clients per user. All client bookkeeping happens on
// the Run goroutine.
type Hub struct {
	clients    map[string]map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan outbound
	count      chan chan int
	done       chan struct{}

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// NewHub creates a hub. allowedOrigins empty accepts any origin.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan outbound, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 || allowed["*"] {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
		logger: logger.With("component", "notify_hub"),
	}
}

// Run owns the client map until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[string]map[*client]struct{})
			return

		case c := <-h.register:
			set := h.clients[c.userID]
			if set == nil {
				set = make(map[*client]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			for c := range h.clients[msg.userID] {
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn("dropping slow client", "user_id", c.userID)
					h.remove(c)
				}
			}

		case reply := <-h.count:
			n := 0
			for _, set := range h.clients {
				n += len(set)
			}
			reply <- n
		}
	}
}

func (h *Hub) remove(c *client) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Connected returns the number of open connections.
func (h *Hub) Connected(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-ctx.Done():
		return 0
	case <-h.done:
		return 0
	}
}

// Deliver queues an event for the user's connections. It never blocks; when
// the queue is full the event is dropped.
func (h *Hub) Deliver(_ context.Context, e shared.Event) {
	data, err := json.Marshal(Message{
		Type:    e.EventType(),
		UserID:  e.AggregateID(),
		Payload: e.Payload(),
		At:      e.OccurredAt(),
	})
	if err != nil {
		h.logger.Error("failed to encode event", "error", err)
		return
	}
	select {
	case h.broadcast <- outbound{userID: e.AggregateID(), data: data}:
	default:
		h.logger.Warn("notification queue full, dropping event", "type", e.EventType())
	}
}

// ServeHTTP upgrades GET /ws?user_id=... to a websocket.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if !shared.IsValidID(userID) {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only watches for close frames and pongs; clients do not send data.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket closed", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
