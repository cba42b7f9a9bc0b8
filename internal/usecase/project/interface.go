package project

import (
	"context"

	"github.com/google/uuid"

	domain "treko/internal/domain/project"
	"treko/pkg/auth"
)

// Usecase defines project and task operations.
type Usecase interface {
	CreateProject(ctx context.Context, actor auth.Principal, in CreateProjectRequest) (*ProjectDTO, error)
	GetProject(ctx context.Context, actor auth.Principal, id uuid.UUID) (*ProjectDTO, error)
	ListProjects(ctx context.Context, actor auth.Principal, in ListProjectsRequest) (*ListProjectsResponse, error)
	UpdateProject(ctx context.Context, actor auth.Principal, id uuid.UUID, in UpdateProjectRequest) (*ProjectDTO, error)
	DeleteProject(ctx context.Context, actor auth.Principal, id uuid.UUID) error

	CreateTask(ctx context.Context, actor auth.Principal, in CreateTaskRequest) (*TaskDTO, error)
	GetTask(ctx context.Context, actor auth.Principal, id uuid.UUID) (*TaskDTO, error)
	ListTasks(ctx context.Context, actor auth.Principal, in ListTasksRequest) (*ListTasksResponse, error)
	UpdateTask(ctx context.Context, actor auth.Principal, id uuid.UUID, in UpdateTaskRequest) (*TaskDTO, error)
	DeleteTask(ctx context.Context, actor auth.Principal, id uuid.UUID) error
	TimeSpent(ctx context.Context, actor auth.Principal, taskID uuid.UUID) (*TimeSpentResponse, error)
}

// Repository abstracts persistence of projects and tasks.
// GetProjectByName returns nil, nil when no project matches.
type Repository interface {
	CreateProject(ctx context.Context, p *domain.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	GetProjectByName(ctx context.Context, orgID uuid.UUID, name string) (*domain.Project, error)
	ListProjects(ctx context.Context, f domain.ProjectFilter) ([]domain.Project, int64, error)
	UpdateProject(ctx context.Context, p *domain.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error

	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, int64, error)
	UpdateTask(ctx context.Context, t *domain.Task) error
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// TaskRecordedSeconds sums the recorded seconds of every usage row booked against the task.
	TaskRecordedSeconds(ctx context.Context, taskID uuid.UUID) (int64, error)
}
