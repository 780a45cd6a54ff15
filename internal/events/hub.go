package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
)

const (
	writeWait = 5 * time.Second
	// PongWait is how long a connection may stay silent before it is
	// considered gone. Readers extend their deadline by it on every pong.
	PongWait   = 60 * time.Second
	pingPeriod = PongWait * 9 / 10
	// SendBuffer is how many frames may queue for one connection. A
	// connection whose queue is full is dropped.
	SendBuffer = 64
)

// Message is the frame written to websocket clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type wsConn struct {
	conn   *websocket.Conn
	userID uuid.UUID
	send   chan Message
	done   chan struct{}
	once   sync.Once
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// enqueue hands msg to the write pump without blocking. It reports false
// when the queue is full.
func (c *wsConn) enqueue(msg Message) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Hub broadcasts events to every connected browser session. Each connection
// has its own write pump, so Publish never waits on a peer.
type Hub struct {
	log   *slog.Logger
	mu    sync.RWMutex
	conns map[uuid.UUID]*wsConn
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log, conns: make(map[uuid.UUID]*wsConn)}
}

// Register adds conn for userID, starts its write pump and returns its
// connection id.
func (h *Hub) Register(userID uuid.UUID, conn *websocket.Conn) uuid.UUID {
	id := uuid.New()
	c := &wsConn{
		conn:   conn,
		userID: userID,
		send:   make(chan Message, SendBuffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()

	go h.writePump(id, c)
	return id
}

// writePump writes queued frames and keepalive pings until the connection
// is closed or a write fails.
func (h *Hub) writePump(id uuid.UUID, c *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Unregister(id)
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws: write failed", slog.String("user_id", c.userID.String()), sl.Err(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Unregister closes and removes a connection.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Len returns the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish queues e for every connection and returns at once. Connections
// that have fallen SendBuffer frames behind are dropped.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.mu.RLock()
	targets := make(map[uuid.UUID]*wsConn, len(h.conns))
	for id, c := range h.conns {
		targets[id] = c
	}
	h.mu.RUnlock()

	msg := Message{Event: e.Name(), Data: e}
	for id, c := range targets {
		if !c.enqueue(msg) {
			h.log.Debug("ws: drop slow connection", slog.String("user_id", c.userID.String()))
			h.Unregister(id)
		}
	}
	return nil
}

// DisconnectUser closes every connection of userID, used when an account is
// disabled or deleted.
func (h *Hub) DisconnectUser(userID uuid.UUID) {
	h.mu.RLock()
	var ids []uuid.UUID
	for id, c := range h.conns {
		if c.userID == userID {
			ids = append(ids, id)
		}
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.Unregister(id)
	}
}
