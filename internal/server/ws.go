package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/hand"
)

const (
	writeTimeout = time.Second
	// clientBuffer is the number of pending messages per client before
	// new ones are dropped.
	clientBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// ObservationsMessage is the JSON pushed to clients once per frame.
type ObservationsMessage struct {
	Hands     []hand.Observation `json:"hands"`
	Timestamp int64              `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// ObservationsHandler pushes hand observations to websocket clients.
// Slow clients miss messages rather than stall the frame loop.
type ObservationsHandler struct {
	log     *zap.Logger
	clients map[*client]bool
	mu      sync.RWMutex
}

// NewObservationsHandler creates a handler with no clients.
func NewObservationsHandler(log *zap.Logger) *ObservationsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ObservationsHandler{
		log:     log,
		clients: make(map[*client]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ObservationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		c.close()
	}()

	go h.writeLoop(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *ObservationsHandler) writeLoop(c *client) {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
			c.conn.Close()
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

// Broadcast queues observations for every connected client.
func (h *ObservationsHandler) Broadcast(observations []hand.Observation) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	if observations == nil {
		observations = []hand.Observation{}
	}
	msg, err := json.Marshal(ObservationsMessage{
		Hands:     observations,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		h.log.Warn("encode observations", zap.Error(err))
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *ObservationsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *ObservationsHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}
