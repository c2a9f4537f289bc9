package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/mimic/internal/app"
)

const (
	// sendBuffer frames are queued per client before new ones are dropped.
	sendBuffer = 32
	writeWait  = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// TelemetryHub broadcasts processed frames to websocket clients. Publish never
// blocks the frame loop: a client that falls behind loses frames.
type TelemetryHub struct {
	session string
	mu      sync.RWMutex
	clients map[*telemetryClient]struct{}
	closed  bool
}

type telemetryClient struct {
	conn *websocket.Conn
	send chan []byte
}

type telemetryMessage struct {
	Session string    `json:"session"`
	Frame   app.Frame `json:"frame"`
}

// NewTelemetryHub creates a hub with a fresh session ID.
func NewTelemetryHub() *TelemetryHub {
	return &TelemetryHub{
		session: uuid.New().String(),
		clients: make(map[*telemetryClient]struct{}),
	}
}

// Session returns the ID attached to every message of this run.
func (h *TelemetryHub) Session() string {
	return h.session
}

// Clients returns the number of connected clients.
func (h *TelemetryHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish queues f for every connected client. It matches app.FrameCallback.
func (h *TelemetryHub) Publish(f app.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(telemetryMessage{Session: h.session, Frame: f})
	if err != nil {
		log.Printf("telemetry encode error: %v", err)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// ServeHTTP upgrades the request and streams frames until the client leaves.
func (h *TelemetryHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &telemetryClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

func (h *TelemetryHub) remove(c *telemetryClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (c *telemetryClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// Close disconnects every client and rejects new ones.
func (h *TelemetryHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
