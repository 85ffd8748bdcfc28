// Package httpapi exposes PlotPlay's six session endpoints over plain
// HTTP (§6): start a session, submit an action (sync and streamed), and
// read the characters/story-events views. It is the synchronous sibling
// of the infrastructure/websocket package, which streams the same turns
// over a long-lived connection instead.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/letser/plotplay-sub001/internal/infrastructure/storage"
	"github.com/letser/plotplay-sub001/internal/infrastructure/websocket"
	"github.com/letser/plotplay-sub001/internal/orchestrator"
)

// Server serves PlotPlay's HTTP API. One Server process currently hosts a
// single loaded game package (games map keyed by GameMeta.ID, ready for a
// future multi-game loader per §6 "Game package format").
type Server struct {
	games   map[string]*orchestrator.Runtime
	store   storage.SessionStore
	auth    websocket.Authenticator
	tokens  *websocket.JWTAuth // nil under NoAuth; used to mint session tokens
	mux     *http.ServeMux
	logger  *slog.Logger
	limiter *rateLimiter
	handler http.Handler
}

// NewServer builds a Server. tokens may be nil (NoAuth deployments don't
// mint tokens; the frontend passes player_id directly).
func NewServer(games map[string]*orchestrator.Runtime, store storage.SessionStore, auth websocket.Authenticator, tokens *websocket.JWTAuth, logger *slog.Logger) *Server {
	s := &Server{
		games:   games,
		store:   store,
		auth:    auth,
		tokens:  tokens,
		mux:     http.NewServeMux(),
		logger:  logger,
		limiter: newRateLimiter(120, time.Minute),
	}
	s.routes()

	// Middleware chain, recovery outermost so a panic anywhere still
	// yields JSON, then logging, CORS, auth, and the per-IP rate limiter
	// closest to the routed handlers. Built once: there is no per-request
	// state here that would justify rebuilding it on every call.
	var h http.Handler = s.mux
	h = s.limiter.middleware(s.logger, h)
	h = authMiddlewareFunc(s.auth, s.logger, h)
	h = corsMiddleware(h)
	h = loggingMiddleware(s.logger, h)
	h = recoveryMiddleware(s.logger, h)
	s.handler = h

	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /session/start", s.handleStartSession)
	s.mux.HandleFunc("POST /session/{id}/action", s.handleAction)
	s.mux.HandleFunc("POST /session/{id}/action/stream", s.handleActionStream)
	s.mux.HandleFunc("GET /session/{id}/characters", s.handleCharacters)
	s.mux.HandleFunc("GET /session/{id}/character/{char_id}", s.handleCharacter)
	s.mux.HandleFunc("GET /session/{id}/story-events", s.handleStoryEvents)
}

// ServeHTTP runs the request through the middleware chain built at
// construction time.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// authMiddlewareFunc lets /session/start bypass auth (it's how a client
// obtains a token in the first place) while every other route requires one.
func authMiddlewareFunc(auth websocket.Authenticator, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/session/start" {
			next.ServeHTTP(w, r)
			return
		}
		authMiddleware(auth, logger, next).ServeHTTP(w, r)
	})
}
