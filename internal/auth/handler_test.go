package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/auth"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
	_ "github.com/odyssey-erp/odyssey-hrm/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

type auditSpy struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *auditSpy) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

type fixture struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	audit    *auditSpy
}

func newFixture(t *testing.T, user *auth.User) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	engine := access.NewEngine(access.DefaultCatalog())
	sessions := shared.NewSessionManager(redisClient, engine, "test_session", "secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")
	spy := &auditSpy{}
	handler := auth.NewHandler(nil, auth.NewService(&stubRepo{user: user}, engine), sessions, csrf, spy)
	return fixture{handler: handler, sessions: sessions, csrf: csrf, audit: spy}
}

func testUser(t *testing.T, role, dept string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: 42, Email: "user@test.local", PasswordHash: string(hashed), Role: role, Department: dept, IsActive: true}
}

func (f fixture) do(t *testing.T, sess *shared.Session, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	router := chiRouter(f.handler)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newSession(t *testing.T, f fixture) *shared.Session {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sess
}

func TestLoginSignsInAndRotatesCSRF(t *testing.T) {
	f := newFixture(t, testUser(t, "manager", "sales"))
	sess := newSession(t, f)
	before, err := f.csrf.EnsureToken(context.Background(), sess)
	require.NoError(t, err)

	rec := f.do(t, sess, http.MethodPost, "/auth/login", map[string]string{"email": "user@test.local", "password": "correctpass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var me auth.MeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "42", me.UserID)
	assert.Equal(t, access.RoleManager, me.Role)
	assert.Equal(t, access.LevelManager, me.RoleLevel)
	assert.Equal(t, access.DeptSales, me.Department)
	assert.Contains(t, me.Permissions, access.PermManageLeads)
	assert.Contains(t, me.Features, access.FeatureEmployeeList)
	assert.NotEqual(t, before, me.CSRFToken)

	id, err := sess.Identity()
	require.NoError(t, err)
	assert.Equal(t, "42", id.UserID)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, shared.AuditActionLogin, f.audit.entries[0].Action)
}

func TestLoginAuditRecordsClient(t *testing.T) {
	f := newFixture(t, testUser(t, "associate", "hr"))
	sess := newSession(t, f)

	body := bytes.NewBufferString(`{"email":"user@test.local","password":"correctpass"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	chiRouter(f.handler).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, f.audit.entries, 1)
	meta := f.audit.entries[0].Meta
	assert.Equal(t, "associate", meta["role"])
	assert.Contains(t, meta["browser"], "Chrome")
	assert.Contains(t, meta["os"], "Windows")
	assert.Equal(t, false, meta["mobile"])
	assert.NotContains(t, meta, "bot")
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t, testUser(t, "manager", "sales"))
	sess := newSession(t, f)

	rec := f.do(t, sess, http.MethodPost, "/auth/login", map[string]string{"email": "user@test.local", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, err := sess.Identity()
	assert.ErrorIs(t, err, shared.ErrNoSession)
	assert.Empty(t, f.audit.entries)
}

func TestLoginInactiveUser(t *testing.T) {
	user := testUser(t, "admin", "")
	user.IsActive = false
	f := newFixture(t, user)

	rec := f.do(t, newSession(t, f), http.MethodPost, "/auth/login", map[string]string{"email": "user@test.local", "password": "correctpass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, newSession(t, f), http.MethodPost, "/auth/login", map[string]string{"email": "not-an-email", "password": "short"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var problem struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "email", problem.Fields["loginRequest.Email"])
	assert.Equal(t, "min", problem.Fields["loginRequest.Password"])

	rec = f.do(t, newSession(t, f), http.MethodPost, "/auth/login", map[string]string{"email": "a@b.c", "password": "longenough", "otp": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")
}

func TestMeRequiresSession(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, newSession(t, f), http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeDescribesIdentity(t *testing.T) {
	f := newFixture(t, nil)
	sess := newSession(t, f)
	f.sessions.SignIn(sess, "7", access.RoleIntern, access.NoDepartment)

	rec := f.do(t, sess, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me auth.MeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "Intern", me.RoleLabel)
	assert.Equal(t, []access.Feature{access.FeatureAttendance, access.FeatureDocuments, access.FeatureLearning, access.FeatureProfile}, me.Features)
	assert.NotEmpty(t, me.CSRFToken)
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newFixture(t, nil)
	sess := newSession(t, f)
	f.sessions.SignIn(sess, "7", access.RoleViewer, access.NoDepartment)

	rec := f.do(t, sess, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := sess.Identity()
	assert.ErrorIs(t, err, shared.ErrNoSession)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, shared.AuditActionLogout, f.audit.entries[0].Action)
}

func TestCheckAnswersBatch(t *testing.T) {
	f := newFixture(t, nil)
	sess := newSession(t, f)
	f.sessions.SignIn(sess, "9", access.RoleManager, access.DeptFinance)

	rec := f.do(t, sess, http.MethodPost, "/auth/check", map[string]any{
		"checks": []map[string]any{
			{"kind": "permission", "permission": "manage_team"},
			{"kind": "any", "permissions": []string{"manage_users", "manage_roles"}},
			{"kind": "level", "level": access.LevelManager},
			{"kind": "manage", "role": "manager"},
			{"kind": "manage", "role": "associate"},
			{"kind": "department", "department": "finance"},
			{"kind": "department", "department": "hr"},
			{"kind": "feature", "feature": "nonexistent_feature"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Results []auth.CheckResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	allowed := make([]bool, 0, len(body.Results))
	for _, res := range body.Results {
		allowed = append(allowed, res.Allowed)
	}
	assert.Equal(t, []bool{true, false, true, false, true, true, false, false}, allowed)
}

func TestCheckRejectsUnknownKind(t *testing.T) {
	f := newFixture(t, nil)
	sess := newSession(t, f)
	f.sessions.SignIn(sess, "9", access.RoleManager, access.NoDepartment)

	rec := f.do(t, sess, http.MethodPost, "/auth/check", map[string]any{
		"checks": []map[string]any{{"kind": "telepathy"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, sess, http.MethodPost, "/auth/check", map[string]any{"checks": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokenIssuedForSignedInSession(t *testing.T) {
	f := newFixture(t, nil)
	tokens := shared.NewTokenManager(f.sessions, "token-secret", 10*time.Minute)
	f.handler.WithTokens(tokens)

	sess := newSession(t, f)
	f.sessions.SignIn(sess, "7", access.RoleAdmin, access.NoDepartment)
	require.NoError(t, f.sessions.Commit(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess))

	rec := f.do(t, sess, http.MethodPost, "/auth/token", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	require.NotEmpty(t, resp.Token)

	bearer, err := tokens.Authenticate(context.Background(), resp.Token)
	require.NoError(t, err)
	id, err := bearer.Identity()
	require.NoError(t, err)
	assert.Equal(t, "7", id.UserID)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, shared.AuditActionTokenIssue, f.audit.entries[0].Action)

	rec = f.do(t, bearer, http.MethodPost, "/auth/token", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "tokens cannot mint tokens")

	rec = f.do(t, newSession(t, f), http.MethodPost, "/auth/token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectedForBearerSession(t *testing.T) {
	f := newFixture(t, testUser(t, "manager", "sales"))
	tokens := shared.NewTokenManager(f.sessions, "token-secret", 10*time.Minute)

	sess := newSession(t, f)
	f.sessions.SignIn(sess, "7", access.RoleAdmin, access.NoDepartment)
	require.NoError(t, f.sessions.Commit(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess))
	raw, _, err := tokens.Issue(sess)
	require.NoError(t, err)
	bearer, err := tokens.Authenticate(context.Background(), raw)
	require.NoError(t, err)

	rec := f.do(t, bearer, http.MethodPost, "/auth/login", map[string]string{"email": "user@test.local", "password": "correctpass"})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	id, err := bearer.Identity()
	require.NoError(t, err)
	assert.Equal(t, "7", id.UserID, "bearer identity is untouched")
	assert.Equal(t, sess.ID, bearer.ID)
	assert.Empty(t, f.audit.entries)
}

func TestTokenRouteAbsentWithoutManager(t *testing.T) {
	f := newFixture(t, nil)
	sess := newSession(t, f)
	f.sessions.SignIn(sess, "7", access.RoleAdmin, access.NoDepartment)

	rec := f.do(t, sess, http.MethodPost, "/auth/token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
