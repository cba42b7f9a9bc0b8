package project

import (
	"time"

	pagination "treko/internal/domain"
	domain "treko/internal/domain/project"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// CreateProjectRequest creates a project. OrganizationID is only honoured for superusers.
type CreateProjectRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=255"`
	Description    string `json:"description" validate:"max=5000"`
	Status         string `json:"status" validate:"omitempty,oneof=ACTIVE PAUSED COMPLETED ARCHIVED"`
	StartDate      string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate        string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IsBillable     *bool  `json:"is_billable"`
	OrganizationID string `json:"organization_id" validate:"omitempty,uuid"`
}

// UpdateProjectRequest is a partial update; nil fields are left unchanged.
type UpdateProjectRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=255"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Status      *string `json:"status" validate:"omitempty,oneof=ACTIVE PAUSED COMPLETED ARCHIVED"`
	StartDate   *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IsBillable  *bool   `json:"is_billable"`
}

// ListProjectsRequest supports pagination, a status filter and name search.
type ListProjectsRequest struct {
	Query  string
	Status string `validate:"omitempty,oneof=ACTIVE PAUSED COMPLETED ARCHIVED"`
	Page   int64
	Limit  int64
}

// ListProjectsResponse is a page of projects.
type ListProjectsResponse struct {
	Projects   []ProjectDTO           `json:"projects"`
	Pagination *pagination.Pagination `json:"pagination"`
}

// ProjectDTO is the public view of a project.
type ProjectDTO struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	StartDate      string    `json:"start_date,omitempty"`
	EndDate        string    `json:"end_date,omitempty"`
	IsBillable     bool      `json:"is_billable"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateTaskRequest creates a task inside a project.
type CreateTaskRequest struct {
	ProjectID      string   `json:"project_id" validate:"required,uuid"`
	Name           string   `json:"name" validate:"required,min=2,max=255"`
	Description    string   `json:"description" validate:"max=5000"`
	Status         string   `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW COMPLETED ARCHIVED"`
	Priority       string   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AssigneeID     string   `json:"assignee_id" validate:"omitempty,uuid"`
	DueDate        string   `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	EstimatedHours *float64 `json:"estimated_hours" validate:"omitempty,gte=0"`
	Tags           []string `json:"tags" validate:"omitempty,dive,max=50"`
}

// UpdateTaskRequest is a partial update; nil fields are left unchanged.
type UpdateTaskRequest struct {
	Name                 *string   `json:"name" validate:"omitempty,min=2,max=255"`
	Description          *string   `json:"description" validate:"omitempty,max=5000"`
	Status               *string   `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW COMPLETED ARCHIVED"`
	Priority             *string   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AssigneeID           *string   `json:"assignee_id" validate:"omitempty,uuid"`
	DueDate              *string   `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	EstimatedHours       *float64  `json:"estimated_hours" validate:"omitempty,gte=0"`
	CompletionPercentage *int      `json:"completion_percentage" validate:"omitempty,gte=0,lte=100"`
	Tags                 *[]string `json:"tags"`
}

// ListTasksRequest lists one project's tasks.
type ListTasksRequest struct {
	ProjectID  string `validate:"required,uuid"`
	Status     string `validate:"omitempty,oneof=TODO IN_PROGRESS REVIEW COMPLETED ARCHIVED"`
	AssigneeID string `validate:"omitempty,uuid"`
	Page       int64
	Limit      int64
}

// ListTasksResponse is a page of tasks.
type ListTasksResponse struct {
	Tasks      []TaskDTO              `json:"tasks"`
	Pagination *pagination.Pagination `json:"pagination"`
}

// TaskDTO is the public view of a task.
type TaskDTO struct {
	ID                   string    `json:"id"`
	ProjectID            string    `json:"project_id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Status               string    `json:"status"`
	Priority             string    `json:"priority"`
	AssigneeID           string    `json:"assignee_id,omitempty"`
	DueDate              string    `json:"due_date,omitempty"`
	EstimatedHours       *float64  `json:"estimated_hours"`
	CompletionPercentage int       `json:"completion_percentage"`
	Tags                 []string  `json:"tags"`
	IsOverdue            bool      `json:"is_overdue"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TimeSpentResponse reports tracked hours for a task.
type TimeSpentResponse struct {
	TaskID               string   `json:"task_id"`
	TotalHours           float64  `json:"total_hours"`
	EstimatedHours       *float64 `json:"estimated_hours"`
	CompletionPercentage int      `json:"completion_percentage"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// parseDate expects input already checked by the validator.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func toProjectDTO(p *domain.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:             p.ID.String(),
		OrganizationID: p.OrganizationID.String(),
		Name:           p.Name,
		Description:    p.Description,
		Status:         string(p.Status),
		StartDate:      formatDate(p.StartDate),
		EndDate:        formatDate(p.EndDate),
		IsBillable:     p.IsBillable,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.CreatedBy != nil {
		dto.CreatedBy = p.CreatedBy.String()
	}
	return dto
}

func toTaskDTO(t *domain.Task, now time.Time) TaskDTO {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	dto := TaskDTO{
		ID:                   t.ID.String(),
		ProjectID:            t.ProjectID.String(),
		Name:                 t.Name,
		Description:          t.Description,
		Status:               string(t.Status),
		Priority:             string(t.Priority),
		DueDate:              formatDate(t.DueDate),
		EstimatedHours:       t.EstimatedHours,
		CompletionPercentage: t.CompletionPercentage,
		Tags:                 tags,
		IsOverdue:            t.IsOverdue(now),
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
	if t.AssigneeID != nil {
		dto.AssigneeID = t.AssigneeID.String()
	}
	return dto
}
