package websocket

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt"

func generateTestToken(t *testing.T, playerID string, ttl time.Duration) string {
	auth := NewJWTAuth(testSecret, "plotplay")
	token, err := auth.GenerateToken(playerID, ttl)
	require.NoError(t, err)
	return token
}

func TestJWTAuthGenerateAndValidateToken(t *testing.T) {
	auth := NewJWTAuth(testSecret, "plotplay")

	token, err := auth.GenerateToken("player-123", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	playerID, err := auth.validateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "player-123", playerID)
}

func TestJWTAuthValidateTokenExpired(t *testing.T) {
	auth := NewJWTAuth(testSecret, "plotplay")
	token := generateTestToken(t, "player-123", -time.Hour)

	_, err := auth.validateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTAuthValidateTokenBadSignature(t *testing.T) {
	other := NewJWTAuth("other-secret", "plotplay")
	token, err := other.GenerateToken("player-123", time.Hour)
	require.NoError(t, err)

	auth := NewJWTAuth(testSecret, "plotplay")
	_, err = auth.validateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTAuthAuthenticateFromAuthorizationHeader(t *testing.T) {
	auth := NewJWTAuth(testSecret, "plotplay")
	token := generateTestToken(t, "player-123", time.Hour)

	r := httptest.NewRequest(http.MethodGet, "/ws/sessions/abc", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	playerID, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "player-123", playerID)
}

func TestJWTAuthAuthenticateFromQueryParam(t *testing.T) {
	auth := NewJWTAuth(testSecret, "plotplay")
	token := generateTestToken(t, "player-123", time.Hour)

	r := httptest.NewRequest(http.MethodGet, "/ws/sessions/abc?token="+token, nil)

	playerID, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "player-123", playerID)
}

func TestJWTAuthAuthenticateFromSecWebSocketProtocol(t *testing.T) {
	auth := NewJWTAuth(testSecret, "plotplay")
	token := generateTestToken(t, "player-123", time.Hour)

	r := httptest.NewRequest(http.MethodGet, "/ws/sessions/abc", nil)
	r.Header.Set("Sec-WebSocket-Protocol", "json, auth-"+token)

	playerID, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "player-123", playerID)
}

func TestJWTAuthAuthenticateMissingToken(t *testing.T) {
	auth := NewJWTAuth(testSecret, "plotplay")
	r := httptest.NewRequest(http.MethodGet, "/ws/sessions/abc", nil)

	_, err := auth.Authenticate(r)
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNoAuthAuthenticateUsesQueryParamOrDefault(t *testing.T) {
	auth := NewNoAuth()

	r := httptest.NewRequest(http.MethodGet, "/ws/sessions/abc?player_id=dana", nil)
	playerID, err := auth.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "dana", playerID)

	r2 := httptest.NewRequest(http.MethodGet, "/ws/sessions/abc", nil)
	playerID2, err := auth.Authenticate(r2)
	require.NoError(t, err)
	assert.Equal(t, "player", playerID2)
}
