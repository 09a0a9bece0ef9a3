package users

import (
	"context"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
	"github.com/odyssey-erp/odyssey-hrm/internal/shared"
)

// DirectRefresher rewrites live sessions in-process. It is used when no job
// queue is configured.
type DirectRefresher struct {
	Sessions *shared.SessionManager
}

// RefreshSessions implements SessionRefresher.
func (d DirectRefresher) RefreshSessions(ctx context.Context, userID string, role access.Role, dept access.Department) error {
	_, err := d.Sessions.RefreshUser(ctx, userID, role, dept)
	return err
}
