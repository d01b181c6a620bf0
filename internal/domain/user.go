package domain

import "time"

// Role enumerates access levels for accounts.
type Role string

const (
	RoleStudent    Role = "student"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// IsAdmin reports whether the role grants administrative access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is the domain model for anyone who signs in: students and admins.
type User struct {
	UserID       string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	Department   string
	HostelBlock  string
	RoomNumber   string
	PhoneNumber  string
	CreatedAt    time.Time
	LastLoginAt  time.Time
	IsActive     bool
}
