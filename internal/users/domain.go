package users

import (
	"time"

	"github.com/odyssey-erp/odyssey-hrm/internal/access"
)

// User represents a user account for management.
type User struct {
	ID         int64             `json:"id"`
	Email      string            `json:"email"`
	Name       string            `json:"name"`
	Role       access.Role       `json:"role"`
	Department access.Department `json:"department"`
	IsActive   bool              `json:"is_active"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ListFilter narrows a user listing. Page and PerPage are clamped by the
// repository.
type ListFilter struct {
	Department access.Department
	Page       int
	PerPage    int
}

// Assignment is the role and department pair a user holds.
type Assignment struct {
	Role       access.Role
	Department access.Department
}

// Assignment returns the user's current assignment.
func (u User) Assignment() Assignment {
	return Assignment{Role: u.Role, Department: u.Department}
}
