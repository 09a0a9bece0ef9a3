package access

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownRole indicates a role id missing from the catalog.
	ErrUnknownRole = errors.New("access: unknown role")
	// ErrUnknownDepartment indicates a department id missing from the catalog.
	ErrUnknownDepartment = errors.New("access: unknown department")
	// ErrUnknownPermission indicates a permission id missing from the catalog.
	ErrUnknownPermission = errors.New("access: unknown permission")
	// ErrUnknownFeature indicates a feature key missing from the catalog.
	ErrUnknownFeature = errors.New("access: unknown feature")
)

func normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseRole maps external input onto a catalog role.
func (e *Engine) ParseRole(raw string) (Role, error) {
	role := Role(normalize(raw))
	if _, ok := e.levels[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// ParseDepartment maps external input onto a catalog department. Blank input
// yields NoDepartment.
func (e *Engine) ParseDepartment(raw string) (Department, error) {
	dept := Department(normalize(raw))
	if dept == NoDepartment {
		return NoDepartment, nil
	}
	if _, ok := e.departments[dept]; !ok {
		return NoDepartment, fmt.Errorf("%w: %q", ErrUnknownDepartment, raw)
	}
	return dept, nil
}

// ResolveAssignment maps a stored role and department onto the catalog.
// Values the catalog does not know are kept trimmed, so they rank at
// LevelUnknown and grant nothing beyond the baseline.
func (e *Engine) ResolveAssignment(rawRole, rawDept string) (Role, Department) {
	role, err := e.ParseRole(rawRole)
	if err != nil {
		role = Role(strings.TrimSpace(rawRole))
	}
	dept, err := e.ParseDepartment(rawDept)
	if err != nil {
		dept = Department(strings.TrimSpace(rawDept))
	}
	return role, dept
}

// ParsePermission maps external input onto a catalog permission.
func (e *Engine) ParsePermission(raw string) (Permission, error) {
	perm := Permission(normalize(raw))
	if !e.known.Has(perm) {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, raw)
	}
	return perm, nil
}

// ParsePermissions maps a list, dropping blanks and duplicates. The first
// unknown entry aborts the whole list.
func (e *Engine) ParsePermissions(raw []string) ([]Permission, error) {
	seen := make(PermissionSet, len(raw))
	out := make([]Permission, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		perm, err := e.ParsePermission(r)
		if err != nil {
			return nil, err
		}
		if seen.Has(perm) {
			continue
		}
		seen.Add(perm)
		out = append(out, perm)
	}
	return out, nil
}

// ParseFeature maps external input onto a catalog feature. Feature keys are
// case sensitive.
func (e *Engine) ParseFeature(raw string) (Feature, error) {
	feature := Feature(strings.TrimSpace(raw))
	if _, ok := e.features[feature]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFeature, raw)
	}
	return feature, nil
}
