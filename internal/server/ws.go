package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/game"
	"github.com/ayusman/mudra/internal/render"
	"github.com/ayusman/mudra/pkg/logger"
	"github.com/ayusman/mudra/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
	pingPeriod   = 30 * time.Second
)

// EventMessage is the JSON form of an app.Event sent to WebSocket clients.
type EventMessage struct {
	ID        string         `json:"id"`
	Type      app.EventType  `json:"type"`
	Seq       uint64         `json:"seq"`
	Time      time.Time      `json:"time"`
	Kind      string         `json:"kind,omitempty"`
	Message   string         `json:"message,omitempty"`
	Outcome   game.Outcome   `json:"outcome,omitempty"`
	Target    *catalog.Sign  `json:"target,omitempty"`
	Stats     game.GameStats `json:"stats"`
	Status    string         `json:"status,omitempty"`
	Error     string         `json:"error,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
}

// NewEventMessage converts ev for the wire.
func NewEventMessage(ev app.Event) EventMessage {
	msg := EventMessage{
		ID:        uuid.NewString(),
		Type:      ev.Type,
		Seq:       ev.Seq,
		Time:      ev.Time,
		Target:    ev.Target,
		Stats:     ev.Stats,
		Status:    ev.Status,
		SessionID: ev.SessionID,
	}
	if ev.Outcome != nil {
		msg.Kind = ev.Outcome.Kind().String()
		msg.Outcome = ev.Outcome
		msg.Message = render.Message(ev.Outcome, ev.Target)
	}
	if ev.Type == app.EventTarget && ev.Target != nil {
		msg.Message = render.NewChallenge(*ev.Target)
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub is an app.Sink that broadcasts events to WebSocket clients.
// A client that falls behind by more than its buffer is disconnected.
type EventHub struct {
	metrics *metrics.Manager
	log     logger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

var _ app.Sink = (*EventHub)(nil)

// NewEventHub creates an EventHub.
func NewEventHub(m *metrics.Manager, log logger.Logger) *EventHub {
	if log == nil {
		log = logger.Nop()
	}
	return &EventHub{
		metrics: m,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Handle implements app.Sink. It never blocks.
func (h *EventHub) Handle(ev app.Event) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	data, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		h.log.Error(context.Background(), "marshal event", logger.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn(context.Background(), "dropping slow websocket client", logger.String("remote", c.conn.RemoteAddr().String()))
		h.remove(c)
	}
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade", logger.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.AddWebsocketClients(1)

	go h.writePump(c)

	// Read until the client goes away; incoming messages are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *EventHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *EventHub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	h.metrics.AddWebsocketClients(-1)
}

// Close disconnects every client and rejects new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}
