package access

// Identity is an immutable snapshot of an authenticated principal. Permissions
// is derived from Role and Department by Engine.Identify and must never be
// patched in place; build a new snapshot instead.
type Identity struct {
	UserID      string
	Role        Role
	Department  Department
	Permissions PermissionSet
}

// WithAssignment returns a new snapshot for the same user with a different
// role and department, recomputed by the engine.
func (id *Identity) WithAssignment(e *Engine, role Role, dept Department) *Identity {
	userID := ""
	if id != nil {
		userID = id.UserID
	}
	return e.Identify(userID, role, dept)
}
