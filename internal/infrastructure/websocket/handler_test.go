package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuthenticator struct {
	playerID string
	err      error
}

func (m *mockAuthenticator) Authenticate(r *http.Request) (string, error) {
	return m.playerID, m.err
}

func TestNewHandler(t *testing.T) {
	logger := testLogger()
	hub := NewHub(logger)
	auth := NewNoAuth()

	handler := NewHandler(hub, auth, nil, nil, logger)

	assert.NotNil(t, handler)
	assert.Equal(t, hub, handler.hub)
	assert.Equal(t, auth, handler.auth)
	assert.Equal(t, logger, handler.logger)
}

func newTestMux(handler *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws/sessions/{session_id}", handler)
	return mux
}

func TestHandlerServeHTTPUpgradesAndRegisters(t *testing.T) {
	logger := testLogger()
	hub := NewHub(logger)
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	handler := NewHandler(hub, NewNoAuth(), nil, nil, logger)
	server := httptest.NewServer(newTestMux(handler))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/sess-123"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.SessionClientCount("sess-123"))
}

func TestHandlerServeHTTPMissingSessionID(t *testing.T) {
	logger := testLogger()
	hub := NewHub(logger)
	handler := NewHandler(hub, NewNoAuth(), nil, nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/ws/sessions/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerServeHTTPAuthenticationFailed(t *testing.T) {
	logger := testLogger()
	hub := NewHub(logger)
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	auth := &mockAuthenticator{err: ErrMissingToken}
	handler := NewHandler(hub, auth, nil, nil, logger)
	server := httptest.NewServer(newTestMux(handler))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/sessions/sess-123"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Equal(t, 0, hub.ClientCount())
}
