package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	pagination "treko/internal/domain"
	"treko/internal/domain/account"
	apperrors "treko/pkg/errors"
	"treko/pkg/security"
)

// AccountRepoPG implements account.Repository using PostgreSQL and GORM.
type AccountRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAccountRepoPG creates a new instance of AccountRepoPG.
func NewAccountRepoPG(db *gorm.DB, log *zap.Logger) *AccountRepoPG {
	return &AccountRepoPG{db: db, log: log}
}

// OrganizationSchema represents the database schema for the organizations table.
type OrganizationSchema struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Timezone  string    `gorm:"size:64;not null;default:UTC"`
	IsActive  bool      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for the OrganizationSchema model.
func (OrganizationSchema) TableName() string {
	return "organizations"
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email                  string     `gorm:"size:254;not null;uniqueIndex"`
	Name                   string     `gorm:"size:255;not null"`
	PasswordHash           string     `gorm:"size:255;not null"`
	Role                   string     `gorm:"size:16;not null;default:''"`
	OrganizationID         *uuid.UUID `gorm:"type:uuid;index"`
	IsActive               bool       `gorm:"not null"`
	IsStaff                bool       `gorm:"not null;default:false"`
	IsSuperuser            bool       `gorm:"not null;default:false"`
	RequiresPasswordChange bool       `gorm:"not null;default:false"`
	LastLogin              *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func organizationFromSchema(m *OrganizationSchema) account.Organization {
	return account.Organization{
		ID:        m.ID,
		Name:      m.Name,
		Timezone:  m.Timezone,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func userFromSchema(m *UserSchema) account.User {
	return account.User{
		ID:                     m.ID,
		Email:                  m.Email,
		Name:                   m.Name,
		PasswordHash:           m.PasswordHash,
		Role:                   account.Role(m.Role),
		OrganizationID:         m.OrganizationID,
		IsActive:               m.IsActive,
		IsStaff:                m.IsStaff,
		IsSuperuser:            m.IsSuperuser,
		RequiresPasswordChange: m.RequiresPasswordChange,
		LastLogin:              m.LastLogin,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func userToSchema(u *account.User) UserSchema {
	return UserSchema{
		ID:                     u.ID,
		Email:                  u.Email,
		Name:                   u.Name,
		PasswordHash:           u.PasswordHash,
		Role:                   string(u.Role),
		OrganizationID:         u.OrganizationID,
		IsActive:               u.IsActive,
		IsStaff:                u.IsStaff,
		IsSuperuser:            u.IsSuperuser,
		RequiresPasswordChange: u.RequiresPasswordChange,
		LastLogin:              u.LastLogin,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

// CreateOrganization inserts a new organization.
func (r *AccountRepoPG) CreateOrganization(ctx context.Context, o *account.Organization) error {
	if o == nil {
		return errors.New("organization cannot be nil")
	}

	model := OrganizationSchema{
		ID:       o.ID,
		Name:     o.Name,
		Timezone: o.Timezone,
		IsActive: o.IsActive,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create organization in db", zap.Error(err), zap.String("name", o.Name))
		return fmt.Errorf("failed to create organization: %w", err)
	}

	o.CreatedAt, o.UpdatedAt = model.CreatedAt, model.UpdatedAt
	r.log.Info("organization created in db", zap.String("id", o.ID.String()))
	return nil
}

// GetOrganization retrieves an organization by ID.
func (r *AccountRepoPG) GetOrganization(ctx context.Context, id uuid.UUID) (*account.Organization, error) {
	var model OrganizationSchema
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("organization", "organization not found")
		}
		r.log.Error("failed to get organization from db", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	o := organizationFromSchema(&model)
	return &o, nil
}

// ListOrganizations returns every organization ordered by name.
func (r *AccountRepoPG) ListOrganizations(ctx context.Context) ([]account.Organization, error) {
	var models []OrganizationSchema
	if err := r.db.WithContext(ctx).Order("name").Find(&models).Error; err != nil {
		r.log.Error("failed to list organizations from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	orgs := make([]account.Organization, len(models))
	for i := range models {
		orgs[i] = organizationFromSchema(&models[i])
	}
	return orgs, nil
}

// CreateUser inserts a new user.
func (r *AccountRepoPG) CreateUser(ctx context.Context, u *account.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	model := userToSchema(u)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.CreatedAt, u.UpdatedAt = model.CreatedAt, model.UpdatedAt
	r.log.Info("user created in db", zap.String("id", u.ID.String()))
	return nil
}

// GetUserByID retrieves a user by ID.
func (r *AccountRepoPG) GetUserByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Warn("user not found", zap.String("id", id.String()))
			return nil, apperrors.NewNotFoundError("user", "user not found")
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u := userFromSchema(&model)
	return &u, nil
}

// GetUserByEmail retrieves a user by email address. It returns nil, nil when no user matches.
func (r *AccountRepoPG) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	u := userFromSchema(&model)
	return &u, nil
}

// UpdateUser writes every mutable column of u.
func (r *AccountRepoPG) UpdateUser(ctx context.Context, u *account.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	model := userToSchema(u)
	res := r.db.WithContext(ctx).Model(&UserSchema{ID: u.ID}).Select("*").Omit("id", "created_at").Updates(&model)
	if res.Error != nil {
		r.log.Error("failed to update user in db", zap.Error(res.Error), zap.String("id", u.ID.String()))
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("user", "user not found")
	}

	u.UpdatedAt = model.UpdatedAt
	return nil
}

// ListUsers retrieves a page of users matching f, ordered by name.
func (r *AccountRepoPG) ListUsers(ctx context.Context, f account.UserFilter) ([]account.User, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if f.OrganizationID != nil {
			db = db.Where("organization_id = ?", *f.OrganizationID)
		}
		if f.Query != "" {
			pattern := likePattern(f.Query)
			db = db.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')", pattern, pattern)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Scopes(filter).Count(&total).Error; err != nil {
		r.log.Error("failed to count users", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var models []UserSchema
	err := r.db.WithContext(ctx).Scopes(filter).
		Order("name").
		Offset(pagination.Offset(f.Page, f.Limit)).
		Limit(int(f.Limit)).
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list users from db", zap.Error(err), zap.Int64("page", f.Page), zap.Int64("limit", f.Limit))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]account.User, len(models))
	for i := range models {
		users[i] = userFromSchema(&models[i])
	}
	return users, total, nil
}

// likePattern builds a case-insensitive substring pattern; compare it against LOWER(column).
func likePattern(query string) string {
	return "%" + strings.ToLower(security.EscapeLike(query)) + "%"
}
