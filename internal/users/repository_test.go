package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/httpx"
)

type storedRow struct {
	id         int64
	role, dept string
}

func (r storedRow) Scan(dest ...any) error {
	*dest[0].(*int64) = r.id
	*dest[1].(*string) = "stored@odyssey.local"
	*dest[2].(*string) = "Stored"
	*dest[3].(*string) = r.role
	*dest[4].(*string) = r.dept
	*dest[5].(*bool) = true
	*dest[6].(*time.Time) = time.Unix(0, 0)
	*dest[7].(*time.Time) = time.Unix(0, 0)
	return nil
}

func TestScanUserResolvesStoredAssignment(t *testing.T) {
	engine := access.NewEngine(access.DefaultCatalog())
	repo := &Repository{engine: engine}

	user, err := repo.scanUser(storedRow{id: 9, role: "Admin", dept: " Sales "})
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, user.Role)
	assert.Equal(t, access.DeptSales, user.Department)
	assert.Equal(t, access.LevelAdmin, engine.RoleLevel(user.Role))

	user, err = repo.scanUser(storedRow{id: 10, role: " overlord ", dept: "atlantis"})
	require.NoError(t, err)
	assert.Equal(t, access.Role("overlord"), user.Role)
	assert.Equal(t, access.Department("atlantis"), user.Department)
	assert.Equal(t, access.LevelUnknown, engine.RoleLevel(user.Role))
}

func TestPeerCannotReassignMixedCaseStoredRole(t *testing.T) {
	engine := access.NewEngine(access.DefaultCatalog())
	scanned, err := (&Repository{engine: engine}).scanUser(storedRow{id: 9, role: "Admin", dept: ""})
	require.NoError(t, err)

	repo := newMemoryRepo(append(seedUsers(), scanned)...)
	refresher := &refresherSpy{}
	svc := NewService(repo, engine, nil, refresher, nil)
	admin := engine.Identify("1", access.RoleAdmin, access.NoDepartment)

	_, err = svc.UpdateAssignment(context.Background(), admin, 9, "viewer", "")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, access.RoleAdmin, repo.users[9].Role)
	assert.Empty(t, refresher.calls)
}
