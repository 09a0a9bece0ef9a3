package shared

import (
	"context"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
)

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// IdentityFromContext returns the signed-in identity carried by the request
// session, or ErrNoSession.
func IdentityFromContext(ctx context.Context) (*access.Identity, error) {
	return SessionFromContext(ctx).Identity()
}
