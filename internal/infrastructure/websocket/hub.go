package websocket

import (
	"log/slog"
	"sync"
)

// Broadcaster lets a caller push turn events to connected clients
// without depending on the Hub's concrete type.
type Broadcaster interface {
	Broadcast(sessionID string, event *WSEvent)
}

type broadcastMsg struct {
	sessionID string
	event     *WSEvent
}

// Hub manages WebSocket connections, keyed by play session. One play
// session may have more than one connected client (e.g. a spectator), so
// clients are indexed bySessionID rather than one-to-one.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg

	bySessionID map[string]map[*Client]bool

	logger *slog.Logger
	mu     sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *broadcastMsg, 256),
		bySessionID: make(map[string]map[*Client]bool),
		logger:      logger,
	}
}

// Run starts the hub's main event loop. Call it in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.broadcastEvent(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true
	if h.bySessionID[client.sessionID] == nil {
		h.bySessionID[client.sessionID] = make(map[*Client]bool)
	}
	h.bySessionID[client.sessionID][client] = true

	h.logger.Debug("client registered",
		"client_id", client.id,
		"session_id", client.sessionID,
		"total_clients", len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	if clients, ok := h.bySessionID[client.sessionID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.bySessionID, client.sessionID)
		}
	}

	h.logger.Debug("client unregistered",
		"client_id", client.id,
		"session_id", client.sessionID,
		"total_clients", len(h.clients))
}

// Broadcast sends an event to every client attached to sessionID.
// Implements the Broadcaster interface.
func (h *Hub) Broadcast(sessionID string, event *WSEvent) {
	h.broadcast <- &broadcastMsg{sessionID: sessionID, event: event}
}

func (h *Hub) broadcastEvent(msg *broadcastMsg) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.bySessionID[msg.sessionID]
	if !ok {
		return
	}

	for client := range clients {
		select {
		case client.send <- msg.event:
		default:
			h.logger.Warn("client buffer full, dropping message",
				"client_id", client.id,
				"event_type", msg.event.Type)
		}
	}
}

// SessionClientCount returns the number of clients attached to sessionID.
func (h *Hub) SessionClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bySessionID[sessionID])
}

// ClientCount returns the number of connected clients across all sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
