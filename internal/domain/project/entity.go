package project

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Status is a project's lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusArchived  Status = "ARCHIVED"
)

// TaskStatus is a task's workflow state.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskReview     TaskStatus = "REVIEW"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskArchived   TaskStatus = "ARCHIVED"
)

// Priority orders tasks.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Project belongs to one organization; its name is unique there.
type Project struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Description    string
	Status         Status
	StartDate      *time.Time
	EndDate        *time.Time
	IsBillable     bool
	CreatedBy      *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Task is a unit of work inside a project.
type Task struct {
	ID                   uuid.UUID
	ProjectID            uuid.UUID
	Name                 string
	Description          string
	Status               TaskStatus
	Priority             Priority
	AssigneeID           *uuid.UUID
	DueDate              *time.Time
	EstimatedHours       *float64
	CompletionPercentage int
	Tags                 []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsOverdue reports whether the due date has passed while the task is still open.
// Due dates are calendar days: a task due today is not overdue until tomorrow (UTC).
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == TaskCompleted || t.Status == TaskArchived {
		return false
	}
	return truncateDay(now).After(truncateDay(*t.DueDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HoursFromSeconds converts tracked seconds to hours rounded to two decimals.
func HoursFromSeconds(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*100) / 100
}

// Completion derives a completion percentage from hours spent against the estimate.
// ok is false when there is no usable estimate.
func Completion(spentHours float64, estimatedHours *float64) (pct int, ok bool) {
	if estimatedHours == nil || *estimatedHours <= 0 {
		return 0, false
	}
	pct = int(math.Round(spentHours / *estimatedHours * 100))
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// ProjectFilter narrows a project listing. A nil OrganizationID lists every organization.
type ProjectFilter struct {
	OrganizationID *uuid.UUID
	Status         Status
	Query          string
	Page           int64
	Limit          int64
}

// TaskFilter narrows a task listing to one project.
type TaskFilter struct {
	ProjectID  uuid.UUID
	Status     TaskStatus
	AssigneeID *uuid.UUID
	Page       int64
	Limit      int64
}
