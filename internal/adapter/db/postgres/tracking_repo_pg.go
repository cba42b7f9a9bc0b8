package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pagination "treko/internal/domain"
	"treko/internal/domain/tracking"
	trackinguc "treko/internal/usecase/tracking"
	apperrors "treko/pkg/errors"
)

// TrackingRepoPG implements tracking.Repository using PostgreSQL and GORM.
type TrackingRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

var _ trackinguc.Repository = (*TrackingRepoPG)(nil)

// NewTrackingRepoPG creates a new instance of TrackingRepoPG.
func NewTrackingRepoPG(db *gorm.DB, log *zap.Logger) *TrackingRepoPG {
	return &TrackingRepoPG{db: db, log: log}
}

// SessionSchema represents the database schema for the tracking_sessions table.
type SessionSchema struct {
	ID                    int64            `gorm:"primaryKey;autoIncrement"`
	UserID                uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_tracking_sessions_user_date"`
	Date                  time.Time        `gorm:"type:date;not null;uniqueIndex:uq_tracking_sessions_user_date"`
	AppVersion            string           `gorm:"size:64;not null;default:''"`
	ProjectID             *uuid.UUID       `gorm:"type:uuid"`
	ActiveSec             int64            `gorm:"not null;default:0"`
	EffectiveSec          int64            `gorm:"not null;default:0"`
	IdleSec               int64            `gorm:"not null;default:0"`
	OvertimeSec           int64            `gorm:"not null;default:0"`
	RecordedSec           int64            `gorm:"not null;default:0"`
	ActivityLevel         int              `gorm:"not null;default:0"`
	WindowStart           *time.Time
	WindowEnd             *time.Time
	AppSessionCount       int              `gorm:"not null;default:0"`
	AppSessionDurationSec int64            `gorm:"not null;default:0"`
	ActiveByAppSec        map[string]int64 `gorm:"serializer:json;type:jsonb;not null"`
	TotalDurationSec      int64            `gorm:"not null;default:0"`
	VerificationStatus    string           `gorm:"size:16;not null;default:PENDING"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName specifies the table name for the SessionSchema model.
func (SessionSchema) TableName() string {
	return "tracking_sessions"
}

// AppUsageSchema represents the database schema for the app_usages table.
type AppUsageSchema struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	SessionID int64   `gorm:"not null;index"`
	AppName   string  `gorm:"size:255;not null"`
	Seconds   int64   `gorm:"not null;default:0"`
	Minutes   float64 `gorm:"type:numeric(10,2);not null;default:0"`
	ChunkID   string  `gorm:"size:64;not null;default:''"`
	CreatedAt time.Time
}

// TableName specifies the table name for the AppUsageSchema model.
func (AppUsageSchema) TableName() string {
	return "app_usages"
}

// TaskUsageSchema represents the database schema for the task_usages table.
type TaskUsageSchema struct {
	ID               int64      `gorm:"primaryKey;autoIncrement"`
	SessionID        int64      `gorm:"not null;index"`
	TaskID           *uuid.UUID `gorm:"type:uuid;index"`
	ProjectID        *uuid.UUID `gorm:"type:uuid"`
	EffectiveSec     int64      `gorm:"not null;default:0"`
	OvertimeSec      int64      `gorm:"not null;default:0"`
	RecordedSec      int64      `gorm:"not null;default:0"`
	RemainingTaskSec int64      `gorm:"not null;default:0"`
	TotalTaskSec     int64      `gorm:"not null;default:0"`
	TotalWorkedSec   int64      `gorm:"not null;default:0"`
	Minutes          float64    `gorm:"type:numeric(10,2);not null;default:0"`
	ChunkID          string     `gorm:"size:64;not null;default:''"`
	CreatedAt        time.Time
}

// TableName specifies the table name for the TaskUsageSchema model.
func (TaskUsageSchema) TableName() string {
	return "task_usages"
}

// ScreenshotSchema represents the database schema for the screenshots table.
type ScreenshotSchema struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	SessionID   int64     `gorm:"not null;index"`
	URL         string    `gorm:"not null"`
	WindowTitle string    `gorm:"size:512;not null;default:''"`
	TakenAt     time.Time `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName specifies the table name for the ScreenshotSchema model.
func (ScreenshotSchema) TableName() string {
	return "screenshots"
}

// HeadshotSchema represents the database schema for the headshots table.
type HeadshotSchema struct {
	ID                 int64   `gorm:"primaryKey;autoIncrement"`
	SessionID          int64   `gorm:"not null;index"`
	URL                string  `gorm:"not null"`
	Status             string  `gorm:"size:32;not null;default:active"`
	VerificationStatus string  `gorm:"size:16;not null;default:PENDING"`
	Confidence         float64 `gorm:"not null;default:0"`
	VerifiedBy         string  `gorm:"size:64;not null;default:''"`
	VerifiedAt         *time.Time
	TakenAt            time.Time `gorm:"not null"`
	CreatedAt          time.Time
}

// TableName specifies the table name for the HeadshotSchema model.
func (HeadshotSchema) TableName() string {
	return "headshots"
}

func sessionFromSchema(m *SessionSchema) tracking.Session {
	byApp := m.ActiveByAppSec
	if byApp == nil {
		byApp = map[string]int64{}
	}
	return tracking.Session{
		ID:                    m.ID,
		UserID:                m.UserID,
		Date:                  tracking.DayOf(m.Date),
		AppVersion:            m.AppVersion,
		ProjectID:             m.ProjectID,
		ActiveSec:             m.ActiveSec,
		EffectiveSec:          m.EffectiveSec,
		IdleSec:               m.IdleSec,
		OvertimeSec:           m.OvertimeSec,
		RecordedSec:           m.RecordedSec,
		ActivityLevel:         m.ActivityLevel,
		WindowStart:           m.WindowStart,
		WindowEnd:             m.WindowEnd,
		AppSessionCount:       m.AppSessionCount,
		AppSessionDurationSec: m.AppSessionDurationSec,
		ActiveByAppSec:        byApp,
		TotalDurationSec:      m.TotalDurationSec,
		VerificationStatus:    tracking.VerificationStatus(m.VerificationStatus),
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func sessionToSchema(s *tracking.Session) SessionSchema {
	byApp := s.ActiveByAppSec
	if byApp == nil {
		byApp = map[string]int64{}
	}
	return SessionSchema{
		ID:                    s.ID,
		UserID:                s.UserID,
		Date:                  tracking.DayOf(s.Date),
		AppVersion:            s.AppVersion,
		ProjectID:             s.ProjectID,
		ActiveSec:             s.ActiveSec,
		EffectiveSec:          s.EffectiveSec,
		IdleSec:               s.IdleSec,
		OvertimeSec:           s.OvertimeSec,
		RecordedSec:           s.RecordedSec,
		ActivityLevel:         s.ActivityLevel,
		WindowStart:           s.WindowStart,
		WindowEnd:             s.WindowEnd,
		AppSessionCount:       s.AppSessionCount,
		AppSessionDurationSec: s.AppSessionDurationSec,
		ActiveByAppSec:        byApp,
		TotalDurationSec:      s.TotalDurationSec,
		VerificationStatus:    string(s.VerificationStatus),
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func headshotFromSchema(m *HeadshotSchema) tracking.Headshot {
	return tracking.Headshot{
		ID:                 m.ID,
		SessionID:          m.SessionID,
		URL:                m.URL,
		Status:             m.Status,
		VerificationStatus: tracking.VerificationStatus(m.VerificationStatus),
		Confidence:         m.Confidence,
		VerifiedBy:         m.VerifiedBy,
		VerifiedAt:         m.VerifiedAt,
		TakenAt:            m.TakenAt,
		CreatedAt:          m.CreatedAt,
	}
}

// RunInTx runs fn inside a database transaction.
func (r *TrackingRepoPG) RunInTx(ctx context.Context, fn func(repo trackinguc.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TrackingRepoPG{db: tx, log: r.log})
	})
}

// UserOrganization returns the organization of userID.
func (r *TrackingRepoPG) UserOrganization(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Select("id", "organization_id").First(&model, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("user", "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return model.OrganizationID, nil
}

// GetOrCreateSession inserts the day's session if it is missing and reads it
// back. On PostgreSQL the row stays locked until the transaction ends.
func (r *TrackingRepoPG) GetOrCreateSession(ctx context.Context, userID uuid.UUID, day time.Time) (*tracking.Session, error) {
	day = tracking.DayOf(day)
	row := SessionSchema{
		UserID:             userID,
		Date:               day,
		ActiveByAppSec:     map[string]int64{},
		VerificationStatus: string(tracking.StatusPending),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create tracking session: %w", err)
	}

	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		// sqlite has no row locks
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model SessionSchema
	if err := q.Where("user_id = ? AND date = ?", userID, day).First(&model).Error; err != nil {
		return nil, fmt.Errorf("failed to load tracking session: %w", err)
	}

	s := sessionFromSchema(&model)
	return &s, nil
}

// SaveSession writes the aggregate counters of s.
func (r *TrackingRepoPG) SaveSession(ctx context.Context, s *tracking.Session) error {
	model := sessionToSchema(s)
	res := r.db.WithContext(ctx).Model(&SessionSchema{ID: s.ID}).
		Select("*").
		Omit("id", "user_id", "date", "created_at").
		Updates(&model)
	if res.Error != nil {
		r.log.Error("failed to save tracking session", zap.Error(res.Error), zap.Int64("id", s.ID))
		return fmt.Errorf("failed to save tracking session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("session", "tracking session not found")
	}
	return nil
}

// GetSession retrieves a session by ID.
func (r *TrackingRepoPG) GetSession(ctx context.Context, id int64) (*tracking.Session, error) {
	var model SessionSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("session", "tracking session not found")
		}
		return nil, fmt.Errorf("failed to get tracking session: %w", err)
	}
	s := sessionFromSchema(&model)
	return &s, nil
}

// GetSessionByDate retrieves the user's session for day.
func (r *TrackingRepoPG) GetSessionByDate(ctx context.Context, userID uuid.UUID, day time.Time) (*tracking.Session, error) {
	var model SessionSchema
	err := r.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, tracking.DayOf(day)).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("session", "no tracking session for this day")
		}
		return nil, fmt.Errorf("failed to get tracking session: %w", err)
	}
	s := sessionFromSchema(&model)
	return &s, nil
}

// ListSessions retrieves a page of the user's sessions, newest date first.
func (r *TrackingRepoPG) ListSessions(ctx context.Context, userID uuid.UUID, page, limit int64) ([]tracking.Session, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&SessionSchema{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tracking sessions: %w", err)
	}

	var models []SessionSchema
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Offset(pagination.Offset(page, limit)).
		Limit(int(limit)).
		Find(&models).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tracking sessions: %w", err)
	}

	sessions := make([]tracking.Session, len(models))
	for i := range models {
		sessions[i] = sessionFromSchema(&models[i])
	}
	return sessions, total, nil
}

// SetSessionStatus updates a session's verification status.
func (r *TrackingRepoPG) SetSessionStatus(ctx context.Context, id int64, status tracking.VerificationStatus) error {
	err := r.db.WithContext(ctx).Model(&SessionSchema{}).Where("id = ?", id).Update("verification_status", string(status)).Error
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	return nil
}

// LockSession takes a row lock on the session. sqlite serialises writers and has no row locks.
func (r *TrackingRepoPG) LockSession(ctx context.Context, id int64) error {
	q := r.db.WithContext(ctx).Model(&SessionSchema{}).Select("id")
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model SessionSchema
	if err := q.Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFoundError("session", "tracking session not found")
		}
		return fmt.Errorf("failed to lock tracking session: %w", err)
	}
	return nil
}

// CreateAppUsages bulk-inserts app usage rows.
func (r *TrackingRepoPG) CreateAppUsages(ctx context.Context, rows []tracking.AppUsage) error {
	models := make([]AppUsageSchema, len(rows))
	for i, a := range rows {
		models[i] = AppUsageSchema{SessionID: a.SessionID, AppName: a.AppName, Seconds: a.Seconds, Minutes: a.Minutes, ChunkID: a.ChunkID}
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to create app usages: %w", err)
	}
	for i := range models {
		rows[i].ID = models[i].ID
	}
	return nil
}

// CreateTaskUsages bulk-inserts task usage rows.
func (r *TrackingRepoPG) CreateTaskUsages(ctx context.Context, rows []tracking.TaskUsage) error {
	models := make([]TaskUsageSchema, len(rows))
	for i, t := range rows {
		models[i] = TaskUsageSchema{
			SessionID:        t.SessionID,
			TaskID:           t.TaskID,
			ProjectID:        t.ProjectID,
			EffectiveSec:     t.EffectiveSec,
			OvertimeSec:      t.OvertimeSec,
			RecordedSec:      t.RecordedSec,
			RemainingTaskSec: t.RemainingSec,
			TotalTaskSec:     t.TotalTaskSec,
			TotalWorkedSec:   t.TotalWorkedSec,
			Minutes:          t.Minutes,
			ChunkID:          t.ChunkID,
		}
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to create task usages: %w", err)
	}
	for i := range models {
		rows[i].ID = models[i].ID
	}
	return nil
}

// CreateScreenshots bulk-inserts screenshot rows.
func (r *TrackingRepoPG) CreateScreenshots(ctx context.Context, rows []tracking.Screenshot) error {
	models := make([]ScreenshotSchema, len(rows))
	for i, s := range rows {
		models[i] = ScreenshotSchema{SessionID: s.SessionID, URL: s.URL, WindowTitle: s.WindowTitle, TakenAt: s.TakenAt}
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to create screenshots: %w", err)
	}
	for i := range models {
		rows[i].ID = models[i].ID
	}
	return nil
}

// CreateHeadshots bulk-inserts headshot rows and sets their IDs.
func (r *TrackingRepoPG) CreateHeadshots(ctx context.Context, rows []tracking.Headshot) error {
	models := make([]HeadshotSchema, len(rows))
	for i, h := range rows {
		models[i] = HeadshotSchema{
			SessionID:          h.SessionID,
			URL:                h.URL,
			Status:             h.Status,
			VerificationStatus: string(h.VerificationStatus),
			TakenAt:            h.TakenAt,
		}
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to create headshots: %w", err)
	}
	for i := range models {
		rows[i].ID = models[i].ID
	}
	return nil
}

// ListAppUsages returns a session's app usage rows in insertion order.
func (r *TrackingRepoPG) ListAppUsages(ctx context.Context, sessionID int64) ([]tracking.AppUsage, error) {
	var models []AppUsageSchema
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list app usages: %w", err)
	}
	out := make([]tracking.AppUsage, len(models))
	for i, m := range models {
		out[i] = tracking.AppUsage{ID: m.ID, SessionID: m.SessionID, AppName: m.AppName, Seconds: m.Seconds, Minutes: m.Minutes, ChunkID: m.ChunkID, CreatedAt: m.CreatedAt}
	}
	return out, nil
}

// ListTaskUsages returns a session's task usage rows in insertion order.
func (r *TrackingRepoPG) ListTaskUsages(ctx context.Context, sessionID int64) ([]tracking.TaskUsage, error) {
	var models []TaskUsageSchema
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list task usages: %w", err)
	}
	out := make([]tracking.TaskUsage, len(models))
	for i, m := range models {
		out[i] = tracking.TaskUsage{
			ID:             m.ID,
			SessionID:      m.SessionID,
			TaskID:         m.TaskID,
			ProjectID:      m.ProjectID,
			EffectiveSec:   m.EffectiveSec,
			OvertimeSec:    m.OvertimeSec,
			RecordedSec:    m.RecordedSec,
			RemainingSec:   m.RemainingTaskSec,
			TotalTaskSec:   m.TotalTaskSec,
			TotalWorkedSec: m.TotalWorkedSec,
			Minutes:        m.Minutes,
			ChunkID:        m.ChunkID,
			CreatedAt:      m.CreatedAt,
		}
	}
	return out, nil
}

// ListScreenshots returns a session's screenshots, oldest first.
func (r *TrackingRepoPG) ListScreenshots(ctx context.Context, sessionID int64) ([]tracking.Screenshot, error) {
	var models []ScreenshotSchema
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("taken_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list screenshots: %w", err)
	}
	out := make([]tracking.Screenshot, len(models))
	for i, m := range models {
		out[i] = tracking.Screenshot{ID: m.ID, SessionID: m.SessionID, URL: m.URL, WindowTitle: m.WindowTitle, TakenAt: m.TakenAt, CreatedAt: m.CreatedAt}
	}
	return out, nil
}

// ListHeadshots returns a session's headshots, oldest first.
func (r *TrackingRepoPG) ListHeadshots(ctx context.Context, sessionID int64) ([]tracking.Headshot, error) {
	var models []HeadshotSchema
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("taken_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list headshots: %w", err)
	}
	out := make([]tracking.Headshot, len(models))
	for i := range models {
		out[i] = headshotFromSchema(&models[i])
	}
	return out, nil
}

// GetHeadshot retrieves a headshot by ID. It returns nil, nil when it does not exist.
func (r *TrackingRepoPG) GetHeadshot(ctx context.Context, id int64) (*tracking.Headshot, error) {
	var model HeadshotSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get headshot: %w", err)
	}
	h := headshotFromSchema(&model)
	return &h, nil
}

// UpdateHeadshot stores the verification outcome of h.
func (r *TrackingRepoPG) UpdateHeadshot(ctx context.Context, h *tracking.Headshot) error {
	err := r.db.WithContext(ctx).Model(&HeadshotSchema{}).Where("id = ?", h.ID).Updates(map[string]any{
		"verification_status": string(h.VerificationStatus),
		"confidence":          h.Confidence,
		"verified_by":         h.VerifiedBy,
		"verified_at":         h.VerifiedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update headshot: %w", err)
	}
	return nil
}
