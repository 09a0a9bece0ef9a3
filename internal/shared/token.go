package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for bearer tokens that fail verification or
// whose backing session is gone.
var ErrInvalidToken = errors.New("invalid bearer token")

// TokenClaims bind a bearer token to a live session. The assignment itself is
// read from the session on every request, so reassignment and logout apply to
// tokens immediately.
type TokenClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	sessions *SessionManager
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(sessions *SessionManager, secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{sessions: sessions, secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for the signed-in session. Bearer sessions cannot mint
// further tokens.
func (m *TokenManager) Issue(sess *Session) (string, time.Time, error) {
	id, err := sess.Identity()
	if err != nil {
		return "", time.Time{}, err
	}
	if sess.Bearer() {
		return "", time.Time{}, ErrInvalidToken
	}
	now := m.now()
	expires := now.Add(m.ttl)
	claims := TokenClaims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("shared: sign token: %w", err)
	}
	return signed, expires, nil
}

// Authenticate verifies raw and loads the session it points at.
func (m *TokenManager) Authenticate(ctx context.Context, raw string) (*Session, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	sess, err := m.sessions.LoadByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	id, err := sess.Identity()
	if err != nil || id.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}
	sess.mu.Lock()
	sess.bearer = true
	sess.mu.Unlock()
	return sess, nil
}

// TTL exposes the token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}
