package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrm/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, sessions: sessions, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(access.PermViewEmployees, access.PermViewTeam, access.PermManageUsers))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(access.PermManageUsers))
		r.Put("/{id}/assignment", h.updateAssignment)
	})
}

type assignmentRequest struct {
	Role       string `json:"role" validate:"required"`
	Department string `json:"department"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	dept, err := h.sessions.Engine().ParseDepartment(r.URL.Query().Get("department"))
	if err != nil {
		httpx.ValidationProblem(w, map[string]string{"department": "unknown"})
		return
	}
	page, perPage := shared.PageFromQuery(r.URL.Query())
	users, pagination, err := h.service.ListUsers(r.Context(), actor, ListFilter{Department: dept, Page: page, PerPage: perPage})
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users, "pagination": pagination})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) updateAssignment(w http.ResponseWriter, r *http.Request) {
	actor, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.ValidationProblem(w, map[string]string{"role": "required"})
		return
	}
	user, err := h.service.UpdateAssignment(r.Context(), actor, id, req.Role, req.Department)
	if err != nil {
		h.fail(w, "update assignment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, httpx.ErrForbidden), errors.Is(err, httpx.ErrNotFound), errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrConflict):
		h.logger.Debug(op, slog.Any("error", err))
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.ValidationProblem(w, map[string]string{"id": "must be a positive integer"})
		return 0, false
	}
	return id, true
}
