package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	engine *access.Engine
}

// NewService constructs a new Service.
func NewService(repo Repository, engine *access.Engine) *Service {
	return &Service{repo: repo, engine: engine}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Assignment resolves the stored role and department of user. Values the
// catalog does not know are kept as-is and grant nothing beyond the baseline.
func (s *Service) Assignment(user *User) (access.Role, access.Department) {
	return s.engine.ResolveAssignment(user.Role, user.Department)
}

// Evaluate answers each check for id, preserving order.
func (s *Service) Evaluate(id *access.Identity, checks []Check) []CheckResult {
	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		results = append(results, CheckResult{Kind: c.Kind, Allowed: s.evaluate(id, c)})
	}
	return results
}

func (s *Service) evaluate(id *access.Identity, c Check) bool {
	switch c.Kind {
	case CheckPermission:
		return s.engine.HasPermission(id, normalizePermission(c.Permission))
	case CheckAny:
		return s.engine.HasAnyPermission(id, normalizePermissions(c.Permissions))
	case CheckAll:
		return s.engine.HasAllPermissions(id, normalizePermissions(c.Permissions))
	case CheckLevel:
		return s.engine.HasRoleLevel(id, c.Level)
	case CheckManage:
		return s.engine.CanManageUser(id, access.Role(strings.ToLower(strings.TrimSpace(c.Role))))
	case CheckDepartment:
		return s.engine.CanAccessDepartment(id, access.Department(strings.ToLower(strings.TrimSpace(c.Department))))
	case CheckFeature:
		return s.engine.CanAccessFeature(id, access.Feature(strings.TrimSpace(c.Feature)))
	default:
		return false
	}
}

func normalizePermission(raw string) access.Permission {
	return access.Permission(strings.ToLower(strings.TrimSpace(raw)))
}

func normalizePermissions(raw []string) []access.Permission {
	out := make([]access.Permission, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, normalizePermission(p))
		}
	}
	return out
}
