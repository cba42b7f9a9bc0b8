package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	pagination "treko/internal/domain"
	domain "treko/internal/domain/account"
	"treko/internal/usecase/validation"
	"treko/pkg/auth"
	apperrors "treko/pkg/errors"
	"treko/pkg/logger"
	"treko/pkg/security"
)

const defaultTimezone = "UTC"

var errInvalidCredentials = apperrors.NewUnauthorizedError("invalid email or password")

// Service implements Usecase on top of a Repository.
type Service struct {
	repo     Repository
	tokens   TokenIssuer
	hasher   PasswordHasher
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

var _ Usecase = (*Service)(nil)

// New creates the account service.
func New(r Repository, tokens TokenIssuer, hasher PasswordHasher, log *zap.Logger) *Service {
	return &Service{
		repo:     r,
		tokens:   tokens,
		hasher:   hasher,
		log:      log,
		validate: validation.New(),
		now:      time.Now,
	}
}

// Login checks credentials and issues a token pair. Unknown emails and wrong
// passwords produce the same error.
func (s *Service) Login(ctx context.Context, in LoginRequest) (*LoginResponse, error) {
	log := logger.WithContext(ctx, s.log)

	in.Email = domain.NormalizeEmail(in.Email)
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	u, err := s.repo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to look up user", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to log in", err)
	}
	if u == nil {
		log.Warn("login for unknown email")
		return nil, errInvalidCredentials
	}

	ok, err := s.hasher.Compare(u.PasswordHash, in.Password)
	if err != nil {
		log.Warn("password hash comparison failed", zap.String("user_id", u.ID.String()), zap.Error(err))
		return nil, errInvalidCredentials
	}
	if !ok {
		log.Warn("login with wrong password", zap.String("user_id", u.ID.String()))
		return nil, errInvalidCredentials
	}
	if !u.IsActive {
		return nil, apperrors.NewPermissionDeniedError("account is disabled")
	}

	tokens, err := s.tokens.Issue(principalOf(u))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue tokens", err)
	}

	now := s.now().UTC()
	u.LastLogin = &now
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		log.Warn("failed to record last login", zap.String("user_id", u.ID.String()), zap.Error(err))
	}

	log.Info("user logged in", zap.String("user_id", u.ID.String()))
	return &LoginResponse{
		Tokens:                 tokens,
		User:                   toUserDTO(u),
		RequiresPasswordChange: u.RequiresPasswordChange,
	}, nil
}

// Refresh exchanges a refresh token for a new token pair. The user is reloaded
// so role changes and deactivation take effect.
func (s *Service) Refresh(ctx context.Context, in RefreshRequest) (*auth.TokenPair, error) {
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	p, err := s.tokens.Parse(in.Refresh, auth.RefreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid refresh token")
	}

	id, err := uuid.Parse(p.UserID)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid refresh token")
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		var nf *apperrors.NotFoundError
		if errors.As(err, &nf) {
			return nil, apperrors.NewUnauthorizedError("invalid refresh token")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, apperrors.NewPermissionDeniedError("account is disabled")
	}

	tokens, err := s.tokens.Issue(principalOf(u))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue tokens", err)
	}
	return tokens, nil
}

// Signup creates a user on behalf of actor. Superusers may create any role in
// any organization; admins create managers and employees in their own.
func (s *Service) Signup(ctx context.Context, actor auth.Principal, in SignupRequest) (*UserDTO, error) {
	log := logger.WithContext(ctx, s.log)

	if !actor.Superuser && domain.Role(actor.Role) != domain.RoleAdmin {
		return nil, apperrors.NewPermissionDeniedError("only administrators can create users")
	}
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	if err := security.ValidatePassword(in.Password); err != nil {
		return nil, apperrors.NewValidationError("password", err.Error())
	}

	role := domain.Role(in.Role)
	if role == domain.RoleAdmin && !actor.Superuser {
		return nil, apperrors.NewPermissionDeniedError("only superusers can create admins")
	}

	orgID, err := s.signupOrganization(ctx, actor, in.OrganizationID)
	if err != nil {
		return nil, err
	}

	email := in.Email
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check existing email", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil {
		return nil, apperrors.NewAlreadyExistsError("user", "email already exists")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	u := &domain.User{
		ID:                     uuid.New(),
		Email:                  email,
		Name:                   in.Name,
		PasswordHash:           hash,
		Role:                   role,
		OrganizationID:         &orgID,
		IsActive:               true,
		RequiresPasswordChange: true,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	log.Info("user created",
		zap.String("user_id", u.ID.String()),
		zap.String("role", string(u.Role)),
		zap.String("organization_id", orgID.String()),
	)
	dto := toUserDTO(u)
	return &dto, nil
}

func (s *Service) signupOrganization(ctx context.Context, actor auth.Principal, requested string) (uuid.UUID, error) {
	if !actor.Superuser {
		own, err := uuid.Parse(actor.OrganizationID)
		if err != nil {
			return uuid.Nil, apperrors.NewPermissionDeniedError("administrator has no organization")
		}
		if requested != "" && requested != own.String() {
			return uuid.Nil, apperrors.NewPermissionDeniedError("cannot create users in another organization")
		}
		return own, nil
	}

	if requested == "" {
		return uuid.Nil, apperrors.NewValidationError("organization_id", "organization_id is required")
	}
	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("organization_id", "organization_id must be a valid UUID")
	}
	if _, err := s.repo.GetOrganization(ctx, id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// ChangePassword replaces the actor's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor auth.Principal, in ChangePasswordRequest) error {
	if err := validation.Struct(s.validate, in); err != nil {
		return err
	}
	if err := security.ValidatePassword(in.NewPassword); err != nil {
		return apperrors.NewValidationError("new_password", err.Error())
	}

	u, err := s.actorUser(ctx, actor)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Compare(u.PasswordHash, in.CurrentPassword)
	if err != nil || !ok {
		return apperrors.NewValidationError("current_password", "current password is incorrect")
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	u.PasswordHash = hash
	u.RequiresPasswordChange = false
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return err
	}

	logger.WithContext(ctx, s.log).Info("password changed", zap.String("user_id", u.ID.String()))
	return nil
}

// CreateOrganization adds a tenant. Superuser only.
func (s *Service) CreateOrganization(ctx context.Context, actor auth.Principal, in CreateOrganizationRequest) (*OrganizationDTO, error) {
	if !actor.Superuser {
		return nil, apperrors.NewPermissionDeniedError("only superusers can create organizations")
	}
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}

	tz := in.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	o := &domain.Organization{
		ID:       uuid.New(),
		Name:     in.Name,
		Timezone: tz,
		IsActive: true,
	}
	if err := s.repo.CreateOrganization(ctx, o); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("organization created", zap.String("organization_id", o.ID.String()))
	dto := toOrganizationDTO(o)
	return &dto, nil
}

// ListOrganizations returns every organization. Superuser only.
func (s *Service) ListOrganizations(ctx context.Context, actor auth.Principal) ([]OrganizationDTO, error) {
	if !actor.Superuser {
		return nil, apperrors.NewPermissionDeniedError("only superusers can list organizations")
	}
	orgs, err := s.repo.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]OrganizationDTO, 0, len(orgs))
	for i := range orgs {
		out = append(out, toOrganizationDTO(&orgs[i]))
	}
	return out, nil
}

// ListUsers pages through the users visible to actor: everyone for a
// superuser, the actor's organization otherwise.
func (s *Service) ListUsers(ctx context.Context, actor auth.Principal, in ListUsersRequest) (*ListUsersResponse, error) {
	query, err := security.ValidateSearchQuery(in.Query)
	if err != nil {
		return nil, apperrors.NewValidationError("q", err.Error())
	}
	page, limit := pagination.NormalizePage(in.Page, in.Limit)

	filter := domain.UserFilter{Query: query, Page: page, Limit: limit}
	if !actor.Superuser {
		orgID, err := uuid.Parse(actor.OrganizationID)
		if err != nil {
			return nil, apperrors.NewPermissionDeniedError("user has no organization")
		}
		filter.OrganizationID = &orgID
	}

	users, total, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to list users", zap.Error(err))
		return nil, err
	}

	out := make([]UserDTO, 0, len(users))
	for i := range users {
		out = append(out, toUserDTO(&users[i]))
	}
	return &ListUsersResponse{
		Users:      out,
		Pagination: pagination.NewPagination(total, page, limit),
	}, nil
}

// GetUser returns one user. Users outside the actor's organization are
// reported as not found.
func (s *Service) GetUser(ctx context.Context, actor auth.Principal, id uuid.UUID) (*UserDTO, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Superuser && u.ID.String() != actor.UserID {
		orgID, perr := uuid.Parse(actor.OrganizationID)
		if perr != nil || !u.SameOrganization(&orgID) {
			return nil, apperrors.NewNotFoundError("user", "user not found")
		}
	}
	dto := toUserDTO(u)
	return &dto, nil
}

// CreateSuperuser creates the initial administrator account from the CLI.
func (s *Service) CreateSuperuser(ctx context.Context, in CreateSuperuserRequest) (*UserDTO, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	if err := security.ValidatePassword(in.Password); err != nil {
		return nil, apperrors.NewValidationError("password", err.Error())
	}

	email := in.Email
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing superuser: %w", err)
	}
	if existing != nil {
		return nil, apperrors.NewAlreadyExistsError("user", fmt.Sprintf("user %s already exists", email))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         in.Name,
		PasswordHash: hash,
		Role:         domain.RoleNone,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("superuser created", zap.String("user_id", u.ID.String()), zap.String("email", email))
	dto := toUserDTO(u)
	return &dto, nil
}

func (s *Service) actorUser(ctx context.Context, actor auth.Principal) (*domain.User, error) {
	id, err := uuid.Parse(actor.UserID)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid user in token")
	}
	return s.repo.GetUserByID(ctx, id)
}

func principalOf(u *domain.User) auth.Principal {
	p := auth.Principal{
		UserID:    u.ID.String(),
		Role:      string(u.Role),
		Superuser: u.IsSuperuser,
	}
	if u.OrganizationID != nil {
		p.OrganizationID = u.OrganizationID.String()
	}
	return p
}
