package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/letser/plotplay-sub001/internal/domain"
)

// MemoryStore is a process-local SessionStore, used for local development
// and tests instead of standing up Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
}

// NewMemoryStore creates a new, empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]Session)}
}

func (s *MemoryStore) CreateSession(ctx context.Context, gameID string, state *domain.GameState) (Session, error) {
	now := time.Now()
	sess := Session{ID: uuid.New(), GameID: gameID, State: state, CreatedAt: now, UpdatedAt: now}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *MemoryStore) SaveSession(ctx context.Context, sess Session) error {
	sess.UpdatedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}
