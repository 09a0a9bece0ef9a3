package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/httpx"
)

// CatalogHandler exposes the role and permission catalog read-only.
type CatalogHandler struct {
	engine *access.Engine
	rbac   Middleware
}

// NewCatalogHandler builds a CatalogHandler.
func NewCatalogHandler(engine *access.Engine, rbac Middleware) *CatalogHandler {
	return &CatalogHandler{engine: engine, rbac: rbac}
}

// RoleView describes one role in the hierarchy.
type RoleView struct {
	Key         access.Role         `json:"key"`
	Label       string              `json:"label"`
	Level       int                 `json:"level"`
	Permissions []access.Permission `json:"permissions"`
}

// DepartmentView describes one department grant.
type DepartmentView struct {
	Key         access.Department   `json:"key"`
	Permissions []access.Permission `json:"permissions"`
}

// FeatureView describes the permissions guarding a feature.
type FeatureView struct {
	Key         access.Feature      `json:"key"`
	Permissions []access.Permission `json:"permissions"`
}

// MountRoutes registers catalog routes.
func (h *CatalogHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Guard(access.LevelAdmin))
		r.Get("/roles", h.listRoles)
		r.Get("/permissions", h.listPermissions)
		r.Get("/departments", h.listDepartments)
		r.Get("/features", h.listFeatures)
	})
}

func (h *CatalogHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.engine.RolesByLevel()
	out := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		out = append(out, RoleView{
			Key:         role,
			Label:       role.Label(),
			Level:       h.engine.RoleLevel(role),
			Permissions: h.engine.RolePermissions(role),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

func (h *CatalogHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"baseline":    access.BaselinePermissions(),
		"permissions": h.engine.KnownPermissions(),
	})
}

func (h *CatalogHandler) listDepartments(w http.ResponseWriter, r *http.Request) {
	depts := h.engine.Departments()
	out := make([]DepartmentView, 0, len(depts))
	for _, dept := range depts {
		out = append(out, DepartmentView{Key: dept, Permissions: h.engine.DepartmentPermissions(dept)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"departments": out})
}

func (h *CatalogHandler) listFeatures(w http.ResponseWriter, r *http.Request) {
	features := h.engine.Features()
	out := make([]FeatureView, 0, len(features))
	for _, feature := range features {
		perms, _ := h.engine.FeaturePermissions(feature)
		out = append(out, FeatureView{Key: feature, Permissions: perms})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"features": out})
}
