package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/letser/plotplay-sub001/internal/domain"
)

// BunStore is a Postgres-backed SessionStore.
type BunStore struct {
	db *bun.DB
}

// NewBunStore opens a connection pool against dsn.
func NewBunStore(dsn string) *BunStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &BunStore{db: db}
}

// InitSchema creates the sessions table if it doesn't already exist.
func (s *BunStore) InitSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*sessionModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

type sessionModel struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        uuid.UUID         `bun:"id,pk"`
	GameID    string            `bun:"game_id"`
	State     *domain.GameState `bun:"state,type:jsonb"`
	CreatedAt time.Time         `bun:"created_at"`
	UpdatedAt time.Time         `bun:"updated_at"`
}

func (m *sessionModel) toDomain() Session {
	return Session{ID: m.ID, GameID: m.GameID, State: m.State, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func newSessionModel(sess Session) *sessionModel {
	return &sessionModel{ID: sess.ID, GameID: sess.GameID, State: sess.State, CreatedAt: sess.CreatedAt, UpdatedAt: sess.UpdatedAt}
}

func (s *BunStore) CreateSession(ctx context.Context, gameID string, state *domain.GameState) (Session, error) {
	now := time.Now()
	sess := Session{ID: uuid.New(), GameID: gameID, State: state, CreatedAt: now, UpdatedAt: now}
	model := newSessionModel(sess)
	if _, err := s.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *BunStore) SaveSession(ctx context.Context, sess Session) error {
	sess.UpdatedAt = time.Now()
	model := newSessionModel(sess)
	_, err := s.db.NewInsert().Model(model).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	return err
}

func (s *BunStore) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	model := new(sessionModel)
	err := s.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return model.toDomain(), nil
}

func (s *BunStore) ListSessions(ctx context.Context) ([]Session, error) {
	var models []sessionModel
	if err := s.db.NewSelect().Model(&models).Order("updated_at DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]Session, len(models))
	for i, m := range models {
		out[i] = m.toDomain()
	}
	return out, nil
}

func (s *BunStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewDelete().Model((*sessionModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Ping checks storage connectivity (§ health endpoint).
func (s *BunStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying connection pool.
func (s *BunStore) Close() error { return s.db.Close() }
