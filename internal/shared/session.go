package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
)

// SessionManager orchestrates cookie based sessions backed by Redis. Only the
// assignment (user, role, department) is persisted; effective permissions are
// recomputed by the engine whenever a session is loaded.
type SessionManager struct {
	client     *redis.Client
	engine     *access.Engine
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
	refreshes  singleflight.Group
}

// Session holds per-request session data.
type Session struct {
	ID string

	identity atomic.Pointer[access.Identity]

	mu          sync.Mutex
	values      map[string]string
	loadedUser  string
	rotatedFrom string
	isNew       bool
	dirty       bool
	destroyed   bool
	bearer      bool
}

type sessionPayload struct {
	Values     map[string]string `json:"values"`
	UserID     string            `json:"user_id"`
	Role       string            `json:"role"`
	Department string            `json:"department"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, engine *access.Engine, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		engine:     engine,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}
	return sm.LoadByID(ctx, cookie.Value)
}

// LoadByID restores a session by identifier. Unknown identifiers yield a new,
// anonymous session.
func (sm *SessionManager) LoadByID(ctx context.Context, id string) (*Session, error) {
	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, fmt.Errorf("shared: load session: %w", err)
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("shared: decode session: %w", err)
	}

	return sm.restore(id, stored), nil
}

func (sm *SessionManager) restore(id string, stored sessionPayload) *Session {
	sess := &Session{ID: id, values: stored.Values}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	if stored.UserID != "" {
		sess.identity.Store(sm.engine.Identify(stored.UserID, access.Role(stored.Role), access.Department(stored.Department)))
		sess.loadedUser = stored.UserID
	}
	return sess
}

// payloadLocked snapshots what Commit persists. Callers hold s.mu or own s.
func (s *Session) payloadLocked() sessionPayload {
	payload := sessionPayload{Values: s.values}
	if id := s.identity.Load(); id != nil {
		payload.UserID = id.UserID
		payload.Role = string(id.Role)
		payload.Department = string(id.Department)
	}
	return payload
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Bearer sessions never set cookies and only persist a logout.
	if sess.bearer {
		if !sess.destroyed {
			return nil
		}
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if sess.loadedUser != "" {
			_ = sm.client.SRem(ctx, sm.userKey(sess.loadedUser), sess.ID).Err()
		}
		return nil
	}

	if sess.rotatedFrom != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.rotatedFrom)).Err(); err != nil {
			return err
		}
		if sess.loadedUser != "" {
			_ = sm.client.SRem(ctx, sm.userKey(sess.loadedUser), sess.rotatedFrom).Err()
		}
		sess.rotatedFrom = ""
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if sess.loadedUser != "" {
			_ = sm.client.SRem(ctx, sm.userKey(sess.loadedUser), sess.ID).Err()
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.dirty || sess.isNew {
		payload := sess.payloadLocked()
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		if payload.UserID != "" {
			userKey := sm.userKey(payload.UserID)
			if err := sm.client.SAdd(ctx, userKey, sess.ID).Err(); err != nil {
				return err
			}
			_ = sm.client.Expire(ctx, userKey, sm.ttl).Err()
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// RefreshUser rewrites every live session of userID with a new assignment.
// Concurrent refreshes for the same assignment are collapsed. It returns the
// number of sessions rewritten.
func (sm *SessionManager) RefreshUser(ctx context.Context, userID string, role access.Role, dept access.Department) (int, error) {
	key := userID + "|" + string(role) + "|" + string(dept)
	v, err, _ := sm.refreshes.Do(key, func() (interface{}, error) {
		return sm.refreshUser(ctx, userID, role, dept)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (sm *SessionManager) refreshUser(ctx context.Context, userID string, role access.Role, dept access.Department) (int, error) {
	userKey := sm.userKey(userID)
	ids, err := sm.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("shared: list user sessions: %w", err)
	}
	updated := 0
	for _, id := range ids {
		raw, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			_ = sm.client.SRem(ctx, userKey, id).Err()
			continue
		}
		if err != nil {
			return updated, fmt.Errorf("shared: read session %s: %w", id, err)
		}
		var stored sessionPayload
		if err := json.Unmarshal(raw, &stored); err != nil || stored.UserID != userID {
			_ = sm.client.SRem(ctx, userKey, id).Err()
			continue
		}
		sess := sm.restore(id, stored)
		if _, err := sm.Reassign(sess, role, dept); err != nil {
			_ = sm.client.SRem(ctx, userKey, id).Err()
			continue
		}
		data, err := json.Marshal(sess.payloadLocked())
		if err != nil {
			return updated, err
		}
		if err := sm.client.Set(ctx, sm.redisKey(id), data, redis.KeepTTL).Err(); err != nil {
			return updated, fmt.Errorf("shared: rewrite session %s: %w", id, err)
		}
		updated++
	}
	return updated, nil
}

// Sweep removes index entries that point at expired sessions and returns how
// many were dropped.
func (sm *SessionManager) Sweep(ctx context.Context) (int, error) {
	removed := 0
	iter := sm.client.Scan(ctx, 0, "user_sessions:*", 100).Iterator()
	for iter.Next(ctx) {
		userKey := iter.Val()
		ids, err := sm.client.SMembers(ctx, userKey).Result()
		if err != nil {
			return removed, fmt.Errorf("shared: sweep %s: %w", userKey, err)
		}
		for _, id := range ids {
			exists, err := sm.client.Exists(ctx, sm.redisKey(id)).Result()
			if err != nil {
				return removed, fmt.Errorf("shared: sweep %s: %w", userKey, err)
			}
			if exists == 0 {
				if err := sm.client.SRem(ctx, userKey, id).Err(); err != nil {
					return removed, err
				}
				removed++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("shared: sweep scan: %w", err)
	}
	return removed, nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.identity.Store(nil)
	sess.mu.Lock()
	sess.destroyed = true
	sess.mu.Unlock()
}

// SignIn binds a freshly computed identity to the session and rotates the
// session identifier.
func (sm *SessionManager) SignIn(sess *Session, userID string, role access.Role, dept access.Department) *access.Identity {
	id := sm.engine.Identify(userID, role, dept)
	sess.mu.Lock()
	if !sess.isNew {
		sess.rotatedFrom = sess.ID
	}
	sess.ID = sm.generateSessionID()
	sess.dirty = true
	sess.mu.Unlock()
	sess.identity.Store(id)
	return id
}

// Reassign replaces the session identity with one computed for the new role
// and department. Readers observe either the old or the new snapshot.
// RefreshUser applies it to every stored session of the user.
func (sm *SessionManager) Reassign(sess *Session, role access.Role, dept access.Department) (*access.Identity, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	for {
		current := sess.identity.Load()
		if current == nil {
			return nil, ErrNoSession
		}
		next := current.WithAssignment(sm.engine, role, dept)
		if sess.identity.CompareAndSwap(current, next) {
			sess.mu.Lock()
			sess.dirty = true
			sess.mu.Unlock()
			return next, nil
		}
	}
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Engine returns the policy engine sessions are evaluated with.
func (sm *SessionManager) Engine() *access.Engine {
	return sm.engine
}

// Identity returns the signed-in identity or ErrNoSession.
func (s *Session) Identity() (*access.Identity, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	id := s.identity.Load()
	if id == nil {
		return nil, ErrNoSession
	}
	return id, nil
}

// Bearer reports whether the session was reached through a bearer token
// rather than the session cookie.
func (s *Session) Bearer() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bearer
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     sm.generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) userKey(userID string) string {
	return "user_sessions:" + userID
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(sm.secret) > 0 {
		for i := range b {
			b[i] ^= sm.secret[i%len(sm.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
