package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	pagination "treko/internal/domain"
	"treko/internal/domain/project"
	apperrors "treko/pkg/errors"
)

// ProjectRepoPG implements project.Repository using PostgreSQL and GORM.
type ProjectRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewProjectRepoPG creates a new instance of ProjectRepoPG.
func NewProjectRepoPG(db *gorm.DB, log *zap.Logger) *ProjectRepoPG {
	return &ProjectRepoPG{db: db, log: log}
}

// ProjectSchema represents the database schema for the projects table.
type ProjectSchema struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uq_projects_organization_name"`
	Name           string     `gorm:"size:255;not null;uniqueIndex:uq_projects_organization_name"`
	Description    string     `gorm:"not null;default:''"`
	Status         string     `gorm:"size:16;not null;default:ACTIVE"`
	StartDate      *time.Time `gorm:"type:date"`
	EndDate        *time.Time `gorm:"type:date"`
	IsBillable     bool       `gorm:"not null"`
	CreatedBy      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for the ProjectSchema model.
func (ProjectSchema) TableName() string {
	return "projects"
}

// TaskSchema represents the database schema for the tasks table.
type TaskSchema struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProjectID            uuid.UUID  `gorm:"type:uuid;not null;index:idx_tasks_project_status"`
	Name                 string     `gorm:"size:255;not null"`
	Description          string     `gorm:"not null;default:''"`
	Status               string     `gorm:"size:16;not null;default:TODO;index:idx_tasks_project_status"`
	Priority             string     `gorm:"size:16;not null;default:MEDIUM"`
	AssigneeID           *uuid.UUID `gorm:"type:uuid;index"`
	DueDate              *time.Time
	EstimatedHours       *float64 `gorm:"type:numeric(8,2)"`
	CompletionPercentage int      `gorm:"not null;default:0"`
	Tags                 []string `gorm:"serializer:json;type:jsonb;not null"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName specifies the table name for the TaskSchema model.
func (TaskSchema) TableName() string {
	return "tasks"
}

func projectFromSchema(m *ProjectSchema) project.Project {
	return project.Project{
		ID:             m.ID,
		OrganizationID: m.OrganizationID,
		Name:           m.Name,
		Description:    m.Description,
		Status:         project.Status(m.Status),
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		IsBillable:     m.IsBillable,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func projectToSchema(p *project.Project) ProjectSchema {
	return ProjectSchema{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Name:           p.Name,
		Description:    p.Description,
		Status:         string(p.Status),
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		IsBillable:     p.IsBillable,
		CreatedBy:      p.CreatedBy,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func taskFromSchema(m *TaskSchema) project.Task {
	return project.Task{
		ID:                   m.ID,
		ProjectID:            m.ProjectID,
		Name:                 m.Name,
		Description:          m.Description,
		Status:               project.TaskStatus(m.Status),
		Priority:             project.Priority(m.Priority),
		AssigneeID:           m.AssigneeID,
		DueDate:              m.DueDate,
		EstimatedHours:       m.EstimatedHours,
		CompletionPercentage: m.CompletionPercentage,
		Tags:                 m.Tags,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func taskToSchema(t *project.Task) TaskSchema {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskSchema{
		ID:                   t.ID,
		ProjectID:            t.ProjectID,
		Name:                 t.Name,
		Description:          t.Description,
		Status:               string(t.Status),
		Priority:             string(t.Priority),
		AssigneeID:           t.AssigneeID,
		DueDate:              t.DueDate,
		EstimatedHours:       t.EstimatedHours,
		CompletionPercentage: t.CompletionPercentage,
		Tags:                 tags,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

// CreateProject inserts a new project.
func (r *ProjectRepoPG) CreateProject(ctx context.Context, p *project.Project) error {
	if p == nil {
		return errors.New("project cannot be nil")
	}

	model := projectToSchema(p)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create project in db", zap.Error(err), zap.String("name", p.Name))
		return fmt.Errorf("failed to create project: %w", err)
	}

	p.CreatedAt, p.UpdatedAt = model.CreatedAt, model.UpdatedAt
	return nil
}

// GetProject retrieves a project by ID.
func (r *ProjectRepoPG) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	var model ProjectSchema
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("project", "project not found")
		}
		r.log.Error("failed to get project from db", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p := projectFromSchema(&model)
	return &p, nil
}

// GetProjectByName looks a project up by its organization-unique name. It returns nil, nil when none matches.
func (r *ProjectRepoPG) GetProjectByName(ctx context.Context, orgID uuid.UUID, name string) (*project.Project, error) {
	var model ProjectSchema
	err := r.db.WithContext(ctx).Where("organization_id = ? AND name = ?", orgID, name).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get project by name: %w", err)
	}

	p := projectFromSchema(&model)
	return &p, nil
}

// ListProjects retrieves a page of projects matching f, newest first.
func (r *ProjectRepoPG) ListProjects(ctx context.Context, f project.ProjectFilter) ([]project.Project, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		if f.OrganizationID != nil {
			db = db.Where("organization_id = ?", *f.OrganizationID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", string(f.Status))
		}
		if f.Query != "" {
			db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", likePattern(f.Query))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&ProjectSchema{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	var models []ProjectSchema
	err := r.db.WithContext(ctx).Scopes(filter).
		Order("created_at DESC").
		Offset(pagination.Offset(f.Page, f.Limit)).
		Limit(int(f.Limit)).
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list projects from db", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]project.Project, len(models))
	for i := range models {
		projects[i] = projectFromSchema(&models[i])
	}
	return projects, total, nil
}

// UpdateProject writes every mutable column of p.
func (r *ProjectRepoPG) UpdateProject(ctx context.Context, p *project.Project) error {
	if p == nil {
		return errors.New("project cannot be nil")
	}

	model := projectToSchema(p)
	res := r.db.WithContext(ctx).Model(&ProjectSchema{ID: p.ID}).Select("*").Omit("id", "organization_id", "created_at").Updates(&model)
	if res.Error != nil {
		r.log.Error("failed to update project in db", zap.Error(res.Error), zap.String("id", p.ID.String()))
		return fmt.Errorf("failed to update project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("project", "project not found")
	}

	p.UpdatedAt = model.UpdatedAt
	return nil
}

// DeleteProject removes a project; its tasks go with it.
func (r *ProjectRepoPG) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&TaskSchema{}).Error; err != nil {
			return fmt.Errorf("failed to delete project tasks: %w", err)
		}
		res := tx.Delete(&ProjectSchema{}, "id = ?", id)
		if res.Error != nil {
			r.log.Error("failed to delete project in db", zap.Error(res.Error), zap.String("id", id.String()))
			return fmt.Errorf("failed to delete project: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFoundError("project", "project not found")
		}
		r.log.Info("project deleted in db", zap.String("id", id.String()))
		return nil
	})
}

// CreateTask inserts a new task.
func (r *ProjectRepoPG) CreateTask(ctx context.Context, t *project.Task) error {
	if t == nil {
		return errors.New("task cannot be nil")
	}

	model := taskToSchema(t)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.log.Error("failed to create task in db", zap.Error(err), zap.String("project_id", t.ProjectID.String()))
		return fmt.Errorf("failed to create task: %w", err)
	}

	t.CreatedAt, t.UpdatedAt = model.CreatedAt, model.UpdatedAt
	return nil
}

// GetTask retrieves a task by ID.
func (r *ProjectRepoPG) GetTask(ctx context.Context, id uuid.UUID) (*project.Task, error) {
	var model TaskSchema
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("task", "task not found")
		}
		r.log.Error("failed to get task from db", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	t := taskFromSchema(&model)
	return &t, nil
}

// ListTasks retrieves a page of one project's tasks: earliest due date first, undated last.
func (r *ProjectRepoPG) ListTasks(ctx context.Context, f project.TaskFilter) ([]project.Task, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("project_id = ?", f.ProjectID)
		if f.Status != "" {
			db = db.Where("status = ?", string(f.Status))
		}
		if f.AssigneeID != nil {
			db = db.Where("assignee_id = ?", *f.AssigneeID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&TaskSchema{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	var models []TaskSchema
	err := r.db.WithContext(ctx).Scopes(filter).
		Order("due_date IS NULL, due_date, created_at DESC").
		Offset(pagination.Offset(f.Page, f.Limit)).
		Limit(int(f.Limit)).
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list tasks from db", zap.Error(err), zap.String("project_id", f.ProjectID.String()))
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]project.Task, len(models))
	for i := range models {
		tasks[i] = taskFromSchema(&models[i])
	}
	return tasks, total, nil
}

// UpdateTask writes every mutable column of t.
func (r *ProjectRepoPG) UpdateTask(ctx context.Context, t *project.Task) error {
	if t == nil {
		return errors.New("task cannot be nil")
	}

	model := taskToSchema(t)
	res := r.db.WithContext(ctx).Model(&TaskSchema{ID: t.ID}).Select("*").Omit("id", "project_id", "created_at").Updates(&model)
	if res.Error != nil {
		r.log.Error("failed to update task in db", zap.Error(res.Error), zap.String("id", t.ID.String()))
		return fmt.Errorf("failed to update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("task", "task not found")
	}

	t.UpdatedAt = model.UpdatedAt
	return nil
}

// DeleteTask removes a task by ID.
func (r *ProjectRepoPG) DeleteTask(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&TaskSchema{}, "id = ?", id)
	if res.Error != nil {
		r.log.Error("failed to delete task in db", zap.Error(res.Error), zap.String("id", id.String()))
		return fmt.Errorf("failed to delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFoundError("task", "task not found")
	}
	return nil
}

// TaskRecordedSeconds sums recorded_sec over the task's usage rows.
func (r *ProjectRepoPG) TaskRecordedSeconds(ctx context.Context, taskID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&TaskUsageSchema{}).
		Where("task_id = ?", taskID).
		Select("COALESCE(SUM(recorded_sec), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum task usage: %w", err)
	}
	return total, nil
}
