package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Department   string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Check kinds accepted by the batch check endpoint.
const (
	CheckPermission = "permission"
	CheckAny        = "any"
	CheckAll        = "all"
	CheckLevel      = "level"
	CheckManage     = "manage"
	CheckDepartment = "department"
	CheckFeature    = "feature"
)

// Check is one authorization question asked on behalf of the caller.
type Check struct {
	Kind        string   `json:"kind" validate:"required,oneof=permission any all level manage department feature"`
	Permission  string   `json:"permission,omitempty" validate:"required_if=Kind permission"`
	Permissions []string `json:"permissions,omitempty" validate:"omitempty,max=50"`
	Level       int      `json:"level,omitempty"`
	Role        string   `json:"role,omitempty" validate:"required_if=Kind manage"`
	Department  string   `json:"department,omitempty" validate:"required_if=Kind department"`
	Feature     string   `json:"feature,omitempty" validate:"required_if=Kind feature"`
}

// CheckResult answers a Check.
type CheckResult struct {
	Kind    string `json:"kind"`
	Allowed bool   `json:"allowed"`
}
