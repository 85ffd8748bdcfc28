package websocket

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/letser/plotplay-sub001/internal/infrastructure/storage"
	"github.com/letser/plotplay-sub001/internal/orchestrator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows connections from any origin; tighten via
	// SetCheckOrigin once a deployment's CORS policy is known.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP requests at /ws/sessions/{id} into a streaming
// connection bound to one play session.
type Handler struct {
	hub    *Hub
	auth   Authenticator
	rt     *orchestrator.Runtime
	store  storage.SessionStore
	logger *slog.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, auth Authenticator, rt *orchestrator.Runtime, store storage.SessionStore, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, auth: auth, rt: rt, store: store, logger: logger}
}

// ServeHTTP handles the WebSocket upgrade request for a given sessionID,
// expected to be supplied by the caller's router (path value "session_id"
// under Go 1.22+ net/http routing patterns, e.g. "/ws/sessions/{session_id}").
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if sessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}

	playerID, err := h.auth.Authenticate(r)
	if err != nil {
		h.logger.Warn("websocket authentication failed", "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	clientID := uuid.New().String()
	client := NewClient(clientID, playerID, sessionID, h.hub, conn, h.rt, h.store)

	h.logger.Info("websocket client connected",
		"client_id", clientID, "player_id", playerID, "session_id", sessionID, "remote_addr", r.RemoteAddr)

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// SetCheckOrigin customizes the upgrader's origin check.
func SetCheckOrigin(f func(r *http.Request) bool) {
	upgrader.CheckOrigin = f
}
