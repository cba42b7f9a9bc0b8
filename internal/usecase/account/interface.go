package account

import (
	"context"

	"github.com/google/uuid"

	domain "treko/internal/domain/account"
	"treko/pkg/auth"
)

// Usecase defines account, authentication and organization operations.
type Usecase interface {
	Login(ctx context.Context, in LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, in RefreshRequest) (*auth.TokenPair, error)
	Signup(ctx context.Context, actor auth.Principal, in SignupRequest) (*UserDTO, error)
	ChangePassword(ctx context.Context, actor auth.Principal, in ChangePasswordRequest) error
	CreateOrganization(ctx context.Context, actor auth.Principal, in CreateOrganizationRequest) (*OrganizationDTO, error)
	ListOrganizations(ctx context.Context, actor auth.Principal) ([]OrganizationDTO, error)
	ListUsers(ctx context.Context, actor auth.Principal, in ListUsersRequest) (*ListUsersResponse, error)
	GetUser(ctx context.Context, actor auth.Principal, id uuid.UUID) (*UserDTO, error)
	CreateSuperuser(ctx context.Context, in CreateSuperuserRequest) (*UserDTO, error)
}

// Repository abstracts persistence of users and organizations.
// Lookups that find nothing return a *errors.NotFoundError, except
// GetUserByEmail which returns nil, nil.
type Repository interface {
	CreateOrganization(ctx context.Context, o *domain.Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
	ListOrganizations(ctx context.Context) ([]domain.Organization, error)

	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	ListUsers(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error)
}

// TokenIssuer signs and verifies access and refresh tokens.
type TokenIssuer interface {
	Issue(p auth.Principal) (*auth.TokenPair, error)
	Parse(token string, want auth.TokenType) (*auth.Principal, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}
