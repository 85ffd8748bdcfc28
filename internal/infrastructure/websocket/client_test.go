package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letser/plotplay-sub001/internal/domain"
)

func TestNewClient(t *testing.T) {
	hub := NewHub(testLogger())
	client := NewClient("client-1", "player-1", "sess-1", hub, nil, nil, nil)

	assert.Equal(t, "client-1", client.id)
	assert.Equal(t, "player-1", client.playerID)
	assert.Equal(t, "sess-1", client.sessionID)
	assert.Equal(t, hub, client.hub)
	assert.NotNil(t, client.send)
}

func TestToActionBuildsDomainAction(t *testing.T) {
	cmd := &WSCommand{
		Action:   CmdAction,
		Kind:     "move",
		Target:   "kitchen",
		Direction: "north",
	}

	action, err := toAction(cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMove, action.Kind)
	assert.Equal(t, "kitchen", action.Target)
	assert.Equal(t, "north", action.Direction)
}

func TestToActionRejectsUnknownKind(t *testing.T) {
	cmd := &WSCommand{Action: CmdAction, Kind: "teleport"}

	_, err := toAction(cmd)
	assert.Error(t, err)
}

func TestToActionCarriesSayText(t *testing.T) {
	cmd := &WSCommand{Action: CmdAction, Kind: "say", Text: "hello there"}

	action, err := toAction(cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionSay, action.Kind)
	assert.Equal(t, "hello there", action.Text)
}
