package rbac

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

// DecisionRecorder counts authorization outcomes.
type DecisionRecorder interface {
	ObserveDecision(check string, allowed bool)
}

// Middleware wires engine checks into HTTP handlers.
type Middleware struct {
	Engine  *access.Engine
	Logger  *slog.Logger
	Metrics DecisionRecorder
}

// RequireAny ensures the current user holds at least one of perms.
func (m Middleware) RequireAny(perms ...access.Permission) func(http.Handler) http.Handler {
	return m.require("any", func(id *access.Identity) bool {
		return m.Engine.HasAnyPermission(id, perms)
	})
}

// RequireAll ensures the current user holds every one of perms.
func (m Middleware) RequireAll(perms ...access.Permission) func(http.Handler) http.Handler {
	return m.require("all", func(id *access.Identity) bool {
		return m.Engine.HasAllPermissions(id, perms)
	})
}

// RequireLevel ensures the current user ranks at level or above.
func (m Middleware) RequireLevel(level int) func(http.Handler) http.Handler {
	return m.require("level", func(id *access.Identity) bool {
		return m.Engine.HasRoleLevel(id, level)
	})
}

// RequireFeature ensures the current user may open feature.
func (m Middleware) RequireFeature(feature access.Feature) func(http.Handler) http.Handler {
	return m.require("feature", func(id *access.Identity) bool {
		return m.Engine.CanAccessFeature(id, feature)
	})
}

// Guard combines a level gate with an optional any-of permission list.
func (m Middleware) Guard(level int, perms ...access.Permission) func(http.Handler) http.Handler {
	return m.require("guard", func(id *access.Identity) bool {
		return m.Engine.Authorize(id, level, perms)
	})
}

func (m Middleware) require(check string, allowed func(*access.Identity) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := shared.IdentityFromContext(r.Context())
			if err != nil {
				if !errors.Is(err, shared.ErrNoSession) && m.Logger != nil {
					m.Logger.Error("rbac load identity", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
				return
			}
			ok := allowed(id)
			if m.Metrics != nil {
				m.Metrics.ObserveDecision(check, ok)
			}
			if !ok {
				if m.Logger != nil {
					m.Logger.Debug("rbac denied",
						slog.String("check", check),
						slog.String("user_id", id.UserID),
						slog.String("role", string(id.Role)),
						slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
