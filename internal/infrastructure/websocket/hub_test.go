package websocket

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewHub(t *testing.T) {
	hub := NewHub(testLogger())

	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.bySessionID)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubRegisterAndUnregisterClient(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()

	client := &Client{hub: hub, id: "client-1", sessionID: "sess-1", send: make(chan *WSEvent, sendBufferSize)}

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.SessionClientCount("sess-1"))

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.SessionClientCount("sess-1"))
}

func TestHubBroadcastDeliversOnlyToMatchingSession(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()

	a := &Client{hub: hub, id: "a", sessionID: "sess-1", send: make(chan *WSEvent, sendBufferSize)}
	b := &Client{hub: hub, id: "b", sessionID: "sess-2", send: make(chan *WSEvent, sendBufferSize)}
	hub.register <- a
	hub.register <- b
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("sess-1", NewWSEvent(EventTurnComplete, "sess-1"))
	time.Sleep(10 * time.Millisecond)

	select {
	case evt := <-a.send:
		assert.Equal(t, "sess-1", evt.SessionID)
	default:
		t.Fatal("expected event for sess-1 client")
	}

	select {
	case <-b.send:
		t.Fatal("sess-2 client should not receive sess-1's broadcast")
	default:
	}
}

func TestHubBroadcastDropsWhenClientBufferFull(t *testing.T) {
	hub := NewHub(testLogger())
	go hub.Run()

	client := &Client{hub: hub, id: "c", sessionID: "sess-1", send: make(chan *WSEvent, 1)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	for i := 0; i < 5; i++ {
		hub.Broadcast("sess-1", NewWSEvent(EventTurnComplete, "sess-1"))
	}
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, len(client.send))
}
