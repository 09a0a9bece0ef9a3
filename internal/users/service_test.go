package users

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	users map[int64]User
}

func newMemoryRepo(users ...User) *memoryRepo {
	repo := &memoryRepo{users: make(map[int64]User, len(users))}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memoryRepo) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, u := range m.users {
		if filter.Department == "" || u.Department == filter.Department {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) GetUser(ctx context.Context, id int64) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) UpdateAssignment(ctx context.Context, id int64, decide func(User) (Assignment, error)) (User, User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before, ok := m.users[id]
	if !ok {
		return User{}, User{}, shared.ErrNotFound
	}
	next, err := decide(before)
	if err != nil {
		return User{}, User{}, err
	}
	after := before
	after.Role, after.Department = next.Role, next.Department
	m.users[id] = after
	return before, after, nil
}

type auditSpy struct {
	entries []shared.AuditLog
}

func (a *auditSpy) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

type refreshCall struct {
	userID string
	role   access.Role
	dept   access.Department
}

type refresherSpy struct {
	calls []refreshCall
}

func (r *refresherSpy) RefreshSessions(ctx context.Context, userID string, role access.Role, dept access.Department) error {
	r.calls = append(r.calls, refreshCall{userID, role, dept})
	return nil
}

func seedUsers() []User {
	return []User{
		{ID: 1, Email: "admin@odyssey.local", Role: access.RoleAdmin},
		{ID: 2, Email: "sales.mgr@odyssey.local", Role: access.RoleManager, Department: access.DeptSales},
		{ID: 3, Email: "sales.assoc@odyssey.local", Role: access.RoleAssociate, Department: access.DeptSales},
		{ID: 4, Email: "hr.assoc@odyssey.local", Role: access.RoleAssociate, Department: access.DeptHR},
		{ID: 5, Email: "root@odyssey.local", Role: access.RoleSuperAdmin},
	}
}

func newTestService(t *testing.T) (*Service, *memoryRepo, *auditSpy, *refresherSpy, *access.Engine) {
	t.Helper()
	engine := access.NewEngine(access.DefaultCatalog())
	repo := newMemoryRepo(seedUsers()...)
	audit := &auditSpy{}
	refresher := &refresherSpy{}
	return NewService(repo, engine, audit, refresher, nil), repo, audit, refresher, engine
}

func TestListUsersScopesToOwnDepartment(t *testing.T) {
	svc, _, _, _, engine := newTestService(t)
	manager := engine.Identify("2", access.RoleManager, access.DeptSales)

	users, pagination, err := svc.ListUsers(context.Background(), manager, ListFilter{})
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, access.DeptSales, u.Department)
	}
	assert.Equal(t, 2, pagination.Total)

	_, _, err = svc.ListUsers(context.Background(), manager, ListFilter{Department: access.DeptHR})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestListUsersDirectorSeesAll(t *testing.T) {
	svc, _, _, _, engine := newTestService(t)
	director := engine.Identify("9", access.RoleCXODirector, access.DeptFinance)

	users, _, err := svc.ListUsers(context.Background(), director, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 5)

	users, _, err = svc.ListUsers(context.Background(), director, ListFilter{Department: access.DeptHR})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestListUsersWithoutDepartmentForbidden(t *testing.T) {
	svc, _, _, _, engine := newTestService(t)
	drifter := engine.Identify("8", access.RoleAssociate, access.NoDepartment)

	_, _, err := svc.ListUsers(context.Background(), drifter, ListFilter{})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	_, _, err = svc.ListUsers(context.Background(), nil, ListFilter{})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestGetUser(t *testing.T) {
	svc, _, _, _, engine := newTestService(t)
	hrAssociate := engine.Identify("4", access.RoleAssociate, access.DeptHR)

	self, err := svc.GetUser(context.Background(), hrAssociate, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), self.ID)

	_, err = svc.GetUser(context.Background(), hrAssociate, 3)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.GetUser(context.Background(), hrAssociate, 404)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateAssignmentRecordsAndRefreshes(t *testing.T) {
	svc, repo, audit, refresher, engine := newTestService(t)
	admin := engine.Identify("1", access.RoleAdmin, access.NoDepartment)

	user, err := svc.UpdateAssignment(context.Background(), admin, 3, "team_lead", "hr")
	require.NoError(t, err)
	assert.Equal(t, access.RoleTeamLead, user.Role)
	assert.Equal(t, access.DeptHR, user.Department)
	assert.Equal(t, access.RoleTeamLead, repo.users[3].Role)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, shared.AuditActionAssignmentUpdate, audit.entries[0].Action)
	assert.Equal(t, "1", audit.entries[0].ActorID)
	assert.Equal(t, "associate", audit.entries[0].Meta["from_role"])

	require.Len(t, refresher.calls, 1)
	assert.Equal(t, refreshCall{"3", access.RoleTeamLead, access.DeptHR}, refresher.calls[0])
}

func TestUpdateAssignmentNoopSkipsSideEffects(t *testing.T) {
	svc, _, audit, refresher, engine := newTestService(t)
	admin := engine.Identify("1", access.RoleAdmin, access.NoDepartment)

	_, err := svc.UpdateAssignment(context.Background(), admin, 3, "associate", "sales")
	require.NoError(t, err)
	assert.Empty(t, audit.entries)
	assert.Empty(t, refresher.calls)
}

func TestUpdateAssignmentRequiresSeniority(t *testing.T) {
	svc, repo, _, refresher, engine := newTestService(t)
	admin := engine.Identify("1", access.RoleAdmin, access.NoDepartment)

	_, err := svc.UpdateAssignment(context.Background(), admin, 3, "admin", "")
	assert.ErrorIs(t, err, httpx.ErrForbidden, "cannot promote to a peer role")

	_, err = svc.UpdateAssignment(context.Background(), admin, 5, "viewer", "")
	assert.ErrorIs(t, err, httpx.ErrForbidden, "cannot demote a more senior user")

	_, err = svc.UpdateAssignment(context.Background(), admin, 1, "viewer", "")
	assert.ErrorIs(t, err, httpx.ErrForbidden, "cannot reassign self")

	assert.Equal(t, access.RoleSuperAdmin, repo.users[5].Role)
	assert.Empty(t, refresher.calls)
}

func TestUpdateAssignmentRequiresManageUsers(t *testing.T) {
	svc, _, _, _, engine := newTestService(t)
	manager := engine.Identify("2", access.RoleManager, access.DeptSales)

	_, err := svc.UpdateAssignment(context.Background(), manager, 3, "intern", "sales")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	_, err = svc.UpdateAssignment(context.Background(), nil, 3, "intern", "sales")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestUpdateAssignmentValidatesInput(t *testing.T) {
	svc, _, _, _, engine := newTestService(t)
	admin := engine.Identify("1", access.RoleAdmin, access.NoDepartment)

	_, err := svc.UpdateAssignment(context.Background(), admin, 3, "overlord", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.UpdateAssignment(context.Background(), admin, 3, "intern", "atlantis")
	assert.ErrorIs(t, err, httpx.ErrValidation)
	_, err = svc.UpdateAssignment(context.Background(), admin, 404, "intern", "")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

type lockedRepo struct {
	*memoryRepo
}

func (lockedRepo) UpdateAssignment(ctx context.Context, id int64, decide func(User) (Assignment, error)) (User, User, error) {
	return User{}, User{}, &pgconn.PgError{Code: pgerrcode.LockNotAvailable, Message: "canceling statement due to lock timeout"}
}

func TestUpdateAssignmentLockTimeoutIsConflict(t *testing.T) {
	engine := access.NewEngine(access.DefaultCatalog())
	refresher := &refresherSpy{}
	svc := NewService(lockedRepo{newMemoryRepo(seedUsers()...)}, engine, nil, refresher, nil)
	admin := engine.Identify("1", access.RoleAdmin, access.NoDepartment)

	_, err := svc.UpdateAssignment(context.Background(), admin, 3, "team_lead", "sales")
	assert.ErrorIs(t, err, httpx.ErrConflict)
	assert.Empty(t, refresher.calls)
}
