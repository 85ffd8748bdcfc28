package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letser/plotplay-sub001/internal/domain"
)

func TestMemoryStoreCreateAndGetSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state := &domain.GameState{CurrentNode: "start"}
	sess, err := store.CreateSession(ctx, "fixture-game", state)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sess.ID)

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixture-game", got.GameID)
	assert.Equal(t, "start", got.State.CurrentNode)
}

func TestMemoryStoreGetMissingSessionErrors(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreSaveSessionUpdatesState(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "fixture-game", &domain.GameState{CurrentNode: "start"})
	require.NoError(t, err)

	sess.State.CurrentNode = "next_scene"
	require.NoError(t, store.SaveSession(ctx, sess))

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "next_scene", got.State.CurrentNode)
}

func TestMemoryStoreListSessions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, _ = store.CreateSession(ctx, "game-a", &domain.GameState{})
	_, _ = store.CreateSession(ctx, "game-b", &domain.GameState{})

	list, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryStoreDeleteSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, _ := store.CreateSession(ctx, "fixture-game", &domain.GameState{})
	require.NoError(t, store.DeleteSession(ctx, sess.ID))

	_, err := store.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, store.DeleteSession(ctx, sess.ID), ErrSessionNotFound)
}
