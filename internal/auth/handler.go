package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mssola/user_agent"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	tokens         *shared.TokenManager
	audit          shared.AuditRecorder
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. audit may be nil.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, audit shared.AuditRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		audit:          audit,
		validator:      validator.New(),
	}
}

// WithTokens enables POST /token. Call before MountRoutes.
func (h *Handler) WithTokens(tokens *shared.TokenManager) *Handler {
	h.tokens = tokens
	return h
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.handleCSRF)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
	r.Post("/check", h.handleCheck)
	if h.tokens != nil {
		r.Post("/token", h.handleToken)
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type checkRequest struct {
	Checks []Check `json:"checks" validate:"required,min=1,max=50,dive"`
}

// MeResponse describes the signed-in identity.
type MeResponse struct {
	UserID      string              `json:"user_id"`
	Role        access.Role         `json:"role"`
	RoleLabel   string              `json:"role_label"`
	RoleLevel   int                 `json:"role_level"`
	Department  access.Department   `json:"department"`
	Permissions []access.Permission `json:"permissions"`
	Features    []access.Feature    `json:"features"`
	CSRFToken   string              `json:"csrf_token"`
}

// TokenResponse carries a freshly issued bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.logger.Error("ensure csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	if sess.Bearer() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "bearer sessions cannot sign in")
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.String("email", req.Email))
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	userID := strconv.FormatInt(user.ID, 10)
	role, dept := h.service.Assignment(user)
	id := h.sessionManager.SignIn(sess, userID, role, dept)
	token, err := h.csrfManager.Rotate(r.Context(), sess)
	if err != nil {
		h.logger.Error("rotate csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.record(r, shared.AuditLog{
		ActorID:  userID,
		Action:   shared.AuditActionLogin,
		Entity:   "user",
		EntityID: userID,
		Meta:     loginMeta(r, role),
	})
	h.logger.Info("login", slog.String("user_id", userID), slog.String("role", string(role)))
	httpx.JSON(w, http.StatusOK, h.describe(id, token))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if id, err := sess.Identity(); err == nil {
		h.record(r, shared.AuditLog{
			ActorID:  id.UserID,
			Action:   shared.AuditActionLogout,
			Entity:   "user",
			EntityID: id.UserID,
		})
	}
	h.sessionManager.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	id, err := sess.Identity()
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.describe(id, token))
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	id, err := shared.IdentityFromContext(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if fields := h.validate(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": h.service.Evaluate(id, req.Checks)})
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	id, err := sess.Identity()
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	token, expires, err := h.tokens.Issue(sess)
	if errors.Is(err, shared.ErrInvalidToken) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "bearer sessions cannot issue tokens")
		return
	}
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.record(r, shared.AuditLog{
		ActorID:  id.UserID,
		Action:   shared.AuditActionTokenIssue,
		Entity:   "user",
		EntityID: id.UserID,
		Meta:     map[string]any{"expires_at": expires.UTC().Format(time.RFC3339)},
	})
	httpx.JSON(w, http.StatusCreated, TokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: expires})
}

func (h *Handler) describe(id *access.Identity, token string) MeResponse {
	engine := h.sessionManager.Engine()
	return MeResponse{
		UserID:      id.UserID,
		Role:        id.Role,
		RoleLabel:   id.Role.Label(),
		RoleLevel:   engine.RoleLevel(id.Role),
		Department:  id.Department,
		Permissions: id.Permissions.Sorted(),
		Features:    engine.AccessibleFeatures(id),
		CSRFToken:   token,
	}
}

func (h *Handler) validate(v any) map[string]string {
	err := h.validator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"general": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fieldErr := range verrs {
		fields[fieldErr.Namespace()] = fieldErr.Tag()
	}
	return fields
}

func (h *Handler) record(r *http.Request, entry shared.AuditLog) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), entry); err != nil {
		h.logger.Warn("audit record", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

// loginMeta describes the client behind a login for the audit trail.
func loginMeta(r *http.Request, role access.Role) map[string]any {
	meta := map[string]any{"ip": r.RemoteAddr, "role": string(role)}
	raw := r.UserAgent()
	if raw == "" {
		return meta
	}
	ua := user_agent.New(raw)
	browser, version := ua.Browser()
	if version != "" {
		browser += " " + version
	}
	meta["browser"] = browser
	meta["os"] = ua.OSInfo().FullName
	meta["mobile"] = ua.Mobile()
	if ua.Bot() {
		meta["bot"] = true
	}
	return meta
}
