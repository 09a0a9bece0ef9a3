// Package access evaluates role-based authorization questions against a
// static catalog of roles, permissions, departments and features.
//
// The engine is pure: it reads only its compiled catalog and the identity
// snapshot passed by the caller, and every predicate answers false rather
// than failing when an input is missing or unknown.
package access

import (
	"sort"
)

// Engine answers authorization questions. It is safe for concurrent use.
type Engine struct {
	levels      map[Role]int
	roles       map[Role]PermissionSet
	departments map[Department]PermissionSet
	features    map[Feature][]Permission
	known       PermissionSet
}

// NewEngine compiles the catalog into read-only lookup tables. The catalog is
// copied, later changes to it do not affect the engine.
func NewEngine(catalog Catalog) *Engine {
	e := &Engine{
		levels:      make(map[Role]int, len(catalog.RoleLevels)),
		roles:       make(map[Role]PermissionSet, len(catalog.RolePermissions)),
		departments: make(map[Department]PermissionSet, len(catalog.DepartmentPermissions)),
		features:    make(map[Feature][]Permission, len(catalog.Features)),
		known:       NewPermissionSet(catalog.Permissions()...),
	}
	for role, level := range catalog.RoleLevels {
		e.levels[role] = level
	}
	for role, perms := range catalog.RolePermissions {
		e.roles[role] = NewPermissionSet(perms...)
	}
	for dept, perms := range catalog.DepartmentPermissions {
		e.departments[dept] = NewPermissionSet(perms...)
	}
	for feature, perms := range catalog.Features {
		e.features[feature] = append([]Permission(nil), perms...)
	}
	return e
}

// EffectivePermissions returns baseline ∪ role ∪ department permissions.
// Unknown or absent inputs contribute nothing. The result is a fresh set.
func (e *Engine) EffectivePermissions(role Role, dept Department) PermissionSet {
	set := NewPermissionSet(BaselinePermissions()...)
	for p := range e.roles[role] {
		set[p] = struct{}{}
	}
	if dept != NoDepartment {
		for p := range e.departments[dept] {
			set[p] = struct{}{}
		}
	}
	return set
}

// Identify builds a snapshot with freshly computed permissions.
func (e *Engine) Identify(userID string, role Role, dept Department) *Identity {
	return &Identity{
		UserID:      userID,
		Role:        role,
		Department:  dept,
		Permissions: e.EffectivePermissions(role, dept),
	}
}

// RoleLevel returns the level of role, or LevelUnknown.
func (e *Engine) RoleLevel(role Role) int {
	if level, ok := e.levels[role]; ok {
		return level
	}
	return LevelUnknown
}

// privileged is the single home of the wildcard rule: super_admin or
// all_access satisfies every permission and requirement check.
func privileged(id *Identity) bool {
	return id.Role == RoleSuperAdmin || id.Permissions.Has(PermAllAccess)
}

// HasPermission reports whether id holds p.
func (e *Engine) HasPermission(id *Identity, p Permission) bool {
	if id == nil {
		return false
	}
	if privileged(id) {
		return true
	}
	return id.Permissions.Has(p)
}

// HasAnyPermission reports whether id holds at least one of perms. An empty
// list is never satisfied by an unprivileged identity.
func (e *Engine) HasAnyPermission(id *Identity, perms []Permission) bool {
	if id == nil {
		return false
	}
	if privileged(id) {
		return true
	}
	for _, p := range perms {
		if e.HasPermission(id, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether id holds every one of perms.
func (e *Engine) HasAllPermissions(id *Identity, perms []Permission) bool {
	if id == nil {
		return false
	}
	if privileged(id) {
		return true
	}
	for _, p := range perms {
		if !e.HasPermission(id, p) {
			return false
		}
	}
	return true
}

// HasRoleLevel reports whether id ranks at required or above. Requirements
// above the top of the hierarchy are unsatisfiable.
func (e *Engine) HasRoleLevel(id *Identity, required int) bool {
	if id == nil || required < LevelSuperAdmin {
		return false
	}
	if privileged(id) {
		return true
	}
	return e.RoleLevel(id.Role) <= required
}

// CanManageUser reports whether actor ranks strictly above target. Peers
// cannot manage each other.
func (e *Engine) CanManageUser(actor *Identity, target Role) bool {
	if actor == nil {
		return false
	}
	return e.RoleLevel(actor.Role) < e.RoleLevel(target)
}

// CanAccessDepartment reports whether id may see data scoped to dept.
// Director level and above see every department.
func (e *Engine) CanAccessDepartment(id *Identity, dept Department) bool {
	if id == nil {
		return false
	}
	if e.HasRoleLevel(id, LevelDirector) {
		return true
	}
	return id.Department != NoDepartment && id.Department == dept
}

// CanAccessFeature reports whether id may open feature. Unknown features are
// denied for everyone, super admins included.
func (e *Engine) CanAccessFeature(id *Identity, feature Feature) bool {
	perms, ok := e.features[feature]
	if !ok {
		return false
	}
	return e.HasAnyPermission(id, perms)
}

// Authorize is the route guard: id must meet requiredLevel and, when perms is
// non-empty, hold at least one of them.
func (e *Engine) Authorize(id *Identity, requiredLevel int, perms []Permission) bool {
	if !e.HasRoleLevel(id, requiredLevel) {
		return false
	}
	return len(perms) == 0 || e.HasAnyPermission(id, perms)
}

// AccessibleFeatures lists the features id may open, sorted by name.
func (e *Engine) AccessibleFeatures(id *Identity) []Feature {
	out := make([]Feature, 0, len(e.features))
	for feature := range e.features {
		if e.CanAccessFeature(id, feature) {
			out = append(out, feature)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FeaturePermissions returns the permissions guarding feature.
func (e *Engine) FeaturePermissions(feature Feature) ([]Permission, bool) {
	perms, ok := e.features[feature]
	if !ok {
		return nil, false
	}
	return append([]Permission(nil), perms...), true
}

// RolesByLevel lists catalog roles from most to least authority.
func (e *Engine) RolesByLevel() []Role {
	out := make([]Role, 0, len(e.levels))
	for role := range e.levels {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool {
		if e.levels[out[i]] == e.levels[out[j]] {
			return out[i] < out[j]
		}
		return e.levels[out[i]] < e.levels[out[j]]
	})
	return out
}

// RolePermissions returns the permissions a role grants, sorted.
func (e *Engine) RolePermissions(role Role) []Permission {
	return e.roles[role].Sorted()
}

// DepartmentPermissions returns the permissions a department grants, sorted.
func (e *Engine) DepartmentPermissions(dept Department) []Permission {
	return e.departments[dept].Sorted()
}

// KnownPermissions lists every permission the catalog defines.
func (e *Engine) KnownPermissions() []Permission {
	return e.known.Sorted()
}

// Features lists catalog features sorted by name.
func (e *Engine) Features() []Feature {
	out := make([]Feature, 0, len(e.features))
	for feature := range e.features {
		out = append(out, feature)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Departments lists catalog departments sorted by name.
func (e *Engine) Departments() []Department {
	out := make([]Department, 0, len(e.departments))
	for dept := range e.departments {
		out = append(out, dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
