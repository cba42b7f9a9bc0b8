package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a user's role inside their organization.
type Role string

const (
	RoleNone     Role = ""
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Organization groups users and projects.
type Organization struct {
	ID        uuid.UUID
	Name      string
	Timezone  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is an account that can log in. Superusers may have no organization.
type User struct {
	ID                     uuid.UUID
	Email                  string
	Name                   string
	PasswordHash           string
	Role                   Role
	OrganizationID         *uuid.UUID
	IsActive               bool
	IsStaff                bool
	IsSuperuser            bool
	RequiresPasswordChange bool
	LastLogin              *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanManageUsers reports whether u may create accounts.
func (u *User) CanManageUsers() bool {
	return u.IsSuperuser || u.Role == RoleAdmin
}

// CanManageProjects reports whether u may create or change projects and tasks.
func (u *User) CanManageProjects() bool {
	return u.IsSuperuser || u.Role == RoleAdmin || u.Role == RoleManager
}

// SameOrganization reports whether u belongs to orgID.
func (u *User) SameOrganization(orgID *uuid.UUID) bool {
	if u.OrganizationID == nil || orgID == nil {
		return false
	}
	return *u.OrganizationID == *orgID
}

// UserFilter narrows a user listing. A nil OrganizationID lists every organization.
type UserFilter struct {
	OrganizationID *uuid.UUID
	Query          string
	Page           int64
	Limit          int64
}
