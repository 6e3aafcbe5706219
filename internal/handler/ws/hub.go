// Package ws streams orchestrator decision events to websocket clients.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"Aegis/internal/domain/models"
	xlogger "Aegis/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const writeWait = 10 * time.Second

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans every decision event out to the connected clients. Slow clients
// lose events instead of blocking the orchestrator.
type Hub struct {
	mu           sync.Mutex
	clients      map[*client]struct{}
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	bufferSize   int
	log          *xlogger.Logger
}

type Option func(*Hub)

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithBufferSize sets how many events may queue per client before drops.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

func WithLogger(l *xlogger.Logger) Option {
	return func(h *Hub) { h.log = l }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
		bufferSize:   16,
		log:          xlogger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/decisions", h.Serve)
}

// Serve upgrades the request and blocks until the client goes away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	cl := &client{conn: conn, send: make(chan []byte, h.bufferSize)}
	h.add(cl)
	h.log.Debug("websocket client connected", xlogger.String("remote", c.RealIP()))

	go h.writeLoop(cl)
	h.readLoop(cl)
	return nil
}

// Broadcast queues ev for every client.
func (h *Hub) Broadcast(ev models.DecisionEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("decision event encode failed", xlogger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- b:
		default:
			h.log.Warn("websocket client too slow, event dropped", xlogger.String("cycle_id", ev.ID))
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
	return nil
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

// readLoop discards inbound frames and keeps the read deadline moving with pongs.
func (h *Hub) readLoop(cl *client) {
	defer h.remove(cl)
	deadline := 2 * h.pingInterval
	_ = cl.conn.SetReadDeadline(time.Now().Add(deadline))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(deadline))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(cl *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
