package websocket

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/letser/plotplay-sub001/internal/domain"
)

var (
	// ErrMissingToken is returned when no authentication token is provided.
	ErrMissingToken = errors.New("missing authentication token")
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid authentication token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Authenticator extracts and validates a player identity from an upgrade
// request.
type Authenticator interface {
	Authenticate(r *http.Request) (playerID string, err error)
}

// JWTAuth implements Authenticator using JWT bearer tokens.
type JWTAuth struct {
	secretKey string
	issuer    string
}

// NewJWTAuth creates a new JWTAuth instance.
func NewJWTAuth(secretKey, issuer string) *JWTAuth {
	return &JWTAuth{secretKey: secretKey, issuer: issuer}
}

// Authenticate tries, in order: the Authorization header, the "token" query
// parameter, and the Sec-WebSocket-Protocol header (browsers can't set
// custom headers on the WebSocket handshake).
func (a *JWTAuth) Authenticate(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		return a.validateToken(strings.TrimPrefix(authHeader, "Bearer "))
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return a.validateToken(token)
	}

	protocols := r.Header.Get("Sec-WebSocket-Protocol")
	if protocols != "" {
		for _, p := range strings.Split(protocols, ",") {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "auth-") {
				return a.validateToken(strings.TrimPrefix(p, "auth-"))
			}
		}
	}

	return "", ErrMissingToken
}

// JWTClaims are the claims carried in a PlotPlay session token.
type JWTClaims struct {
	PlayerID string `json:"player_id"`
	jwt.RegisteredClaims
}

func (a *JWTAuth) validateToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(a.secretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	playerID := claims.PlayerID
	if playerID == "" {
		playerID = claims.Subject
	}
	if playerID == "" {
		return "", ErrInvalidToken
	}
	return playerID, nil
}

// GenerateToken issues a signed session token for playerID, valid for ttl.
func (a *JWTAuth) GenerateToken(playerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   playerID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.secretKey))
}

// NoAuth allows every connection through, reading an optional player_id
// query parameter. Used for local development when JWTSecret is unset.
type NoAuth struct{}

// NewNoAuth creates a new NoAuth instance.
func NewNoAuth() *NoAuth {
	return &NoAuth{}
}

// Authenticate always succeeds.
func (a *NoAuth) Authenticate(r *http.Request) (string, error) {
	if playerID := r.URL.Query().Get("player_id"); playerID != "" {
		return playerID, nil
	}
	return domain.PlayerID, nil
}
