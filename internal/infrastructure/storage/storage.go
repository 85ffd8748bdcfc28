// Package storage persists PlotPlay sessions: one row/entry per active
// game session, keyed by a generated session id, holding the full
// GameState blob plus enough bookkeeping to list and resume sessions.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/letser/plotplay-sub001/internal/domain"
)

// Session is one persisted play session.
type Session struct {
	ID        uuid.UUID
	GameID    string
	State     *domain.GameState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SessionStore is the persistence contract the HTTP/websocket layer uses
// to create, resume, and list sessions (§6).
type SessionStore interface {
	CreateSession(ctx context.Context, gameID string, state *domain.GameState) (Session, error)
	SaveSession(ctx context.Context, sess Session) error
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// ErrSessionNotFound is returned by both store implementations when an id
// doesn't resolve.
var ErrSessionNotFound = fmt.Errorf("session not found")
