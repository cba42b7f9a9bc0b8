package account

import (
	"time"

	pagination "treko/internal/domain"
	domain "treko/internal/domain/account"
	"treko/pkg/auth"
)

// LoginRequest carries credentials for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Tokens                 *auth.TokenPair `json:"tokens"`
	User                   UserDTO         `json:"user"`
	RequiresPasswordChange bool            `json:"requires_password_change"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// SignupRequest creates a user inside an organization.
type SignupRequest struct {
	Email          string `json:"email" validate:"required,email,max=254"`
	Name           string `json:"name" validate:"required,min=2,max=255"`
	Password       string `json:"password" validate:"required"`
	Role           string `json:"role" validate:"required,oneof=ADMIN MANAGER EMPLOYEE"`
	OrganizationID string `json:"organization_id" validate:"omitempty,uuid"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// CreateOrganizationRequest creates a tenant.
type CreateOrganizationRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

// CreateSuperuserRequest is used by the createadmin command.
type CreateSuperuserRequest struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required,min=2,max=255"`
	Password string `validate:"required"`
}

// ListUsersRequest supports pagination and search.
type ListUsersRequest struct {
	Query string
	Page  int64
	Limit int64
}

// ListUsersResponse is a page of users.
type ListUsersResponse struct {
	Users      []UserDTO              `json:"users"`
	Pagination *pagination.Pagination `json:"pagination"`
}

// UserDTO is the public view of a user. It never carries the password hash.
type UserDTO struct {
	ID                     string     `json:"id"`
	Email                  string     `json:"email"`
	Name                   string     `json:"name"`
	Role                   string     `json:"role"`
	OrganizationID         string     `json:"organization_id,omitempty"`
	IsActive               bool       `json:"is_active"`
	IsSuperuser            bool       `json:"is_superuser"`
	RequiresPasswordChange bool       `json:"requires_password_change"`
	LastLogin              *time.Time `json:"last_login,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// OrganizationDTO is the public view of an organization.
type OrganizationDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserDTO(u *domain.User) UserDTO {
	dto := UserDTO{
		ID:                     u.ID.String(),
		Email:                  u.Email,
		Name:                   u.Name,
		Role:                   string(u.Role),
		IsActive:               u.IsActive,
		IsSuperuser:            u.IsSuperuser,
		RequiresPasswordChange: u.RequiresPasswordChange,
		LastLogin:              u.LastLogin,
		CreatedAt:              u.CreatedAt,
	}
	if u.OrganizationID != nil {
		dto.OrganizationID = u.OrganizationID.String()
	}
	return dto
}

func toOrganizationDTO(o *domain.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:        o.ID.String(),
		Name:      o.Name,
		Timezone:  o.Timezone,
		IsActive:  o.IsActive,
		CreatedAt: o.CreatedAt,
	}
}
