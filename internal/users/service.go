package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UpdateAssignment(ctx context.Context, id int64, decide func(User) (Assignment, error)) (User, User, error)
}

// SessionRefresher propagates an assignment change to the user's live sessions.
type SessionRefresher interface {
	RefreshSessions(ctx context.Context, userID string, role access.Role, dept access.Department) error
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	engine    *access.Engine
	audit     shared.AuditRecorder
	refresher SessionRefresher
	logger    *slog.Logger
}

// NewService builds Service instance. audit and refresher may be nil.
func NewService(repo RepositoryPort, engine *access.Engine, audit shared.AuditRecorder, refresher SessionRefresher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, engine: engine, audit: audit, refresher: refresher, logger: logger}
}

// ListUsers returns the users actor may see. Without an explicit department,
// actors below director level are scoped to their own department.
func (s *Service) ListUsers(ctx context.Context, actor *access.Identity, filter ListFilter) ([]User, shared.Pagination, error) {
	if filter.Department == access.NoDepartment && !s.engine.HasRoleLevel(actor, access.LevelDirector) {
		if actor == nil || actor.Department == access.NoDepartment {
			return nil, shared.Pagination{}, fmt.Errorf("%w: no department in scope", httpx.ErrForbidden)
		}
		filter.Department = actor.Department
	}
	if !s.engine.CanAccessDepartment(actor, filter.Department) {
		return nil, shared.Pagination{}, fmt.Errorf("%w: department %s", httpx.ErrForbidden, filter.Department)
	}
	users, total, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// GetUser returns a single user. Users outside actor's department scope are
// forbidden, except actor's own record.
func (s *Service) GetUser(ctx context.Context, actor *access.Identity, id int64) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	if actor != nil && actor.UserID == strconv.FormatInt(user.ID, 10) {
		return user, nil
	}
	if !s.engine.CanAccessDepartment(actor, user.Department) {
		return User{}, fmt.Errorf("%w: user %d", httpx.ErrForbidden, id)
	}
	return user, nil
}

// UpdateAssignment changes the role and department of user id. actor must
// hold manage_users and outrank both the current and the requested role.
// Live sessions of the user are refreshed once the change is committed.
func (s *Service) UpdateAssignment(ctx context.Context, actor *access.Identity, id int64, rawRole, rawDept string) (User, error) {
	role, err := s.engine.ParseRole(rawRole)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	dept, err := s.engine.ParseDepartment(rawDept)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if !s.engine.HasPermission(actor, access.PermManageUsers) {
		return User{}, fmt.Errorf("%w: manage_users required", httpx.ErrForbidden)
	}

	before, after, err := s.repo.UpdateAssignment(ctx, id, func(current User) (Assignment, error) {
		if !s.engine.CanManageUser(actor, current.Role) {
			return Assignment{}, fmt.Errorf("%w: cannot manage %s", httpx.ErrForbidden, current.Role)
		}
		if !s.engine.CanManageUser(actor, role) {
			return Assignment{}, fmt.Errorf("%w: cannot assign %s", httpx.ErrForbidden, role)
		}
		for _, scope := range []access.Department{current.Department, dept} {
			if scope != access.NoDepartment && !s.engine.CanAccessDepartment(actor, scope) {
				return Assignment{}, fmt.Errorf("%w: department %s", httpx.ErrForbidden, scope)
			}
		}
		return Assignment{Role: role, Department: dept}, nil
	})
	if err != nil {
		return User{}, mapRepoError(err)
	}
	if before.Assignment() == after.Assignment() {
		return after, nil
	}

	userID := strconv.FormatInt(after.ID, 10)
	if s.audit != nil {
		entry := shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   shared.AuditActionAssignmentUpdate,
			Entity:   "user",
			EntityID: userID,
			Meta: map[string]any{
				"from_role":       string(before.Role),
				"from_department": string(before.Department),
				"to_role":         string(after.Role),
				"to_department":   string(after.Department),
			},
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Warn("audit assignment update", slog.Int64("user_id", after.ID), slog.Any("error", err))
		}
	}
	if s.refresher != nil {
		if err := s.refresher.RefreshSessions(ctx, userID, after.Role, after.Department); err != nil {
			s.logger.Error("refresh sessions", slog.Int64("user_id", after.ID), slog.Any("error", err))
		}
	}
	s.logger.Info("assignment updated",
		slog.String("actor_id", actor.UserID),
		slog.Int64("user_id", after.ID),
		slog.String("role", string(after.Role)),
		slog.String("department", string(after.Department)))
	return after, nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return fmt.Errorf("%w: user", httpx.ErrNotFound)
	case db.IsLockConflict(err):
		return fmt.Errorf("%w: user is being updated concurrently", httpx.ErrConflict)
	}
	return err
}
