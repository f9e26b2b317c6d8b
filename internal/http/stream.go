package httpapi

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/rota-parceira/internal/models"
)

var upgrader = websocket.Upgrader{}

// wsClient serializes writes to one websocket connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(snap models.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(snap)
}

// Stream fans session snapshots out to every connected websocket client.
// Clients that fail a write are dropped; they reconnect and receive the
// current snapshot on arrival.
type Stream struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func NewStream(log *slog.Logger) *Stream {
	return &Stream{log: log, clients: make(map[*wsClient]struct{})}
}

// Add registers a connection and pushes the current snapshot so the client
// never renders from nothing.
func (s *Stream) Add(conn *websocket.Conn, snap models.Snapshot) {
	c := &wsClient{conn: conn}
	if err := c.send(snap); err != nil {
		conn.Close()
		return
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
}

// Broadcast pushes a snapshot to all clients, pruning any that fail.
func (s *Stream) Broadcast(snap models.Snapshot) {
	s.mu.RLock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		if err := c.send(snap); err != nil {
			s.log.Debug("ws client dropped", "error", err)
			c.conn.Close()
			s.mu.Lock()
			delete(s.clients, c)
			s.mu.Unlock()
		}
	}
}

// Close disconnects every client; used on shutdown.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
		delete(s.clients, c)
	}
}
