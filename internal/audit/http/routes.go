package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

const exportRateLimit = 10
const exportRateWindow = time.Minute

// MountRoutes registers the audit timeline and its CSV and PDF exports.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(access.PermViewAuditLog))
		r.Get("/", h.handleTimeline)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(access.PermViewAuditLog, access.PermExportReports))
		r.Use(limiter)
		r.Get("/export.csv", h.handleExport)
		r.Get("/export.pdf", h.handlePDF)
	})
}

// rateLimitKey buckets exports per signed-in user, falling back to the client IP.
func rateLimitKey(r *http.Request) (string, error) {
	if id, err := shared.IdentityFromContext(r.Context()); err == nil && id.UserID != "" {
		return "user:" + id.UserID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
