package project

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	pagination "treko/internal/domain"
	accountdomain "treko/internal/domain/account"
	domain "treko/internal/domain/project"
	"treko/internal/usecase/validation"
	"treko/pkg/auth"
	apperrors "treko/pkg/errors"
	"treko/pkg/logger"
	"treko/pkg/security"
)

// Service implements Usecase.
type Service struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

var _ Usecase = (*Service)(nil)

// New creates the project service.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log, validate: validation.New(), now: time.Now}
}

var (
	errProjectNotFound = apperrors.NewNotFoundError("project", "project not found")
	errTaskNotFound    = apperrors.NewNotFoundError("task", "task not found")
	errCannotManage    = apperrors.NewPermissionDeniedError("only admins and managers can change projects and tasks")
)

func canManage(actor auth.Principal) bool {
	role := accountdomain.Role(actor.Role)
	return actor.Superuser || role == accountdomain.RoleAdmin || role == accountdomain.RoleManager
}

// organizationOf returns nil for superusers, who see every organization.
func organizationOf(actor auth.Principal) (*uuid.UUID, error) {
	if actor.Superuser {
		return nil, nil
	}
	id, err := uuid.Parse(actor.OrganizationID)
	if err != nil {
		return nil, apperrors.NewPermissionDeniedError("user has no organization")
	}
	return &id, nil
}

// loadProject fetches a project visible to actor. Projects of other
// organizations are reported as missing.
func (s *Service) loadProject(ctx context.Context, actor auth.Principal, id uuid.UUID) (*domain.Project, error) {
	org, err := organizationOf(actor)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if org != nil && p.OrganizationID != *org {
		return nil, errProjectNotFound
	}
	return p, nil
}

func (s *Service) loadTask(ctx context.Context, actor auth.Principal, id uuid.UUID) (*domain.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadProject(ctx, actor, t.ProjectID); err != nil {
		if apperrors.StatusCode(err) == 404 {
			return nil, errTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) ensureUniqueName(ctx context.Context, orgID uuid.UUID, name string, self uuid.UUID) error {
	existing, err := s.repo.GetProjectByName(ctx, orgID, name)
	if err != nil {
		return apperrors.NewInternalError("failed to validate project name", err)
	}
	if existing != nil && existing.ID != self {
		return apperrors.NewAlreadyExistsError("project", "a project with this name already exists")
	}
	return nil
}

// CreateProject adds a project to the actor's organization.
func (s *Service) CreateProject(ctx context.Context, actor auth.Principal, in CreateProjectRequest) (*ProjectDTO, error) {
	log := logger.WithContext(ctx, s.log)

	if !canManage(actor) {
		return nil, errCannotManage
	}
	if err := validation.Struct(s.validate, in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	org, err := organizationOf(actor)
	if err != nil {
		return nil, err
	}
	var orgID uuid.UUID
	switch {
	case org != nil:
		orgID = *org
	case in.OrganizationID != "":
		orgID = uuid.MustParse(in.OrganizationID)
	default:
		return nil, apperrors.NewValidationError("organization_id", "organization_id is required")
	}

	if err := s.ensureUniqueName(ctx, orgID, in.Name, uuid.Nil); err != nil {
		return nil, err
	}

	status := domain.Status(in.Status)
	if status == "" {
		status = domain.StatusActive
	}
	billable := true
	if in.IsBillable != nil {
		billable = *in.IsBillable
	}

	p := &domain.Project{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           in.Name,
		Description:    in.Description,
		Status:         status,
		StartDate:      parseDate(in.StartDate),
		EndDate:        parseDate(in.EndDate),
		IsBillable:     billable,
	}
	if err := checkDateRange(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}
	if creator, err := uuid.Parse(actor.UserID); err == nil {
		p.CreatedBy = &creator
	}

	if err := s.repo.CreateProject(ctx, p); err != nil {
		log.Error("failed to create project", zap.Error(err))
		return nil, err
	}

	log.Info("project created", zap.String("project_id", p.ID.String()), zap.String("organization_id", orgID.String()))
	dto := toProjectDTO(p)
	return &dto, nil
}

func checkDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return apperrors.NewValidationError("end_date", "end_date must not be before start_date")
	}
	return nil
}

// GetProject returns one project.
func (s *Service) GetProject(ctx context.Context, actor auth.Principal, id uuid.UUID) (*ProjectDTO, error) {
	p, err := s.loadProject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := toProjectDTO(p)
	return &dto, nil
}

// ListProjects pages through the actor's projects.
func (s *Service) ListProjects(ctx context.Context, actor auth.Principal, in ListProjectsRequest) (*ListProjectsResponse, error) {
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	query, err := security.ValidateSearchQuery(in.Query)
	if err != nil {
		return nil, apperrors.NewValidationError("q", err.Error())
	}
	org, err := organizationOf(actor)
	if err != nil {
		return nil, err
	}
	page, limit := pagination.NormalizePage(in.Page, in.Limit)

	projects, total, err := s.repo.ListProjects(ctx, domain.ProjectFilter{
		OrganizationID: org,
		Status:         domain.Status(in.Status),
		Query:          query,
		Page:           page,
		Limit:          limit,
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to list projects", zap.Error(err))
		return nil, err
	}

	out := make([]ProjectDTO, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectDTO(&projects[i]))
	}
	return &ListProjectsResponse{Projects: out, Pagination: pagination.NewPagination(total, page, limit)}, nil
}

// UpdateProject applies a partial update.
func (s *Service) UpdateProject(ctx context.Context, actor auth.Principal, id uuid.UUID, in UpdateProjectRequest) (*ProjectDTO, error) {
	if !canManage(actor) {
		return nil, errCannotManage
	}
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	p, err := s.loadProject(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil && *in.Name != p.Name {
		if err := s.ensureUniqueName(ctx, p.OrganizationID, *in.Name, p.ID); err != nil {
			return nil, err
		}
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		p.Status = domain.Status(*in.Status)
	}
	if in.StartDate != nil {
		p.StartDate = parseDate(*in.StartDate)
	}
	if in.EndDate != nil {
		p.EndDate = parseDate(*in.EndDate)
	}
	if in.IsBillable != nil {
		p.IsBillable = *in.IsBillable
	}
	if err := checkDateRange(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProject(ctx, p); err != nil {
		logger.WithContext(ctx, s.log).Error("failed to update project", zap.String("project_id", id.String()), zap.Error(err))
		return nil, err
	}
	dto := toProjectDTO(p)
	return &dto, nil
}

// DeleteProject removes a project and, through the foreign key, its tasks.
func (s *Service) DeleteProject(ctx context.Context, actor auth.Principal, id uuid.UUID) error {
	if !canManage(actor) {
		return errCannotManage
	}
	if _, err := s.loadProject(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	logger.WithContext(ctx, s.log).Info("project deleted", zap.String("project_id", id.String()))
	return nil
}

// CreateTask adds a task to a project the actor can see.
func (s *Service) CreateTask(ctx context.Context, actor auth.Principal, in CreateTaskRequest) (*TaskDTO, error) {
	if !canManage(actor) {
		return nil, errCannotManage
	}
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	p, err := s.loadProject(ctx, actor, uuid.MustParse(in.ProjectID))
	if err != nil {
		return nil, err
	}

	t := &domain.Task{
		ID:             uuid.New(),
		ProjectID:      p.ID,
		Name:           in.Name,
		Description:    in.Description,
		Status:         domain.TaskStatus(in.Status),
		Priority:       domain.Priority(in.Priority),
		DueDate:        parseDate(in.DueDate),
		EstimatedHours: in.EstimatedHours,
		Tags:           in.Tags,
	}
	if t.Status == "" {
		t.Status = domain.TaskTodo
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if in.AssigneeID != "" {
		assignee := uuid.MustParse(in.AssigneeID)
		t.AssigneeID = &assignee
	}

	if err := s.repo.CreateTask(ctx, t); err != nil {
		logger.WithContext(ctx, s.log).Error("failed to create task", zap.Error(err))
		return nil, err
	}
	logger.WithContext(ctx, s.log).Info("task created", zap.String("task_id", t.ID.String()), zap.String("project_id", p.ID.String()))
	dto := toTaskDTO(t, s.now())
	return &dto, nil
}

// GetTask returns one task.
func (s *Service) GetTask(ctx context.Context, actor auth.Principal, id uuid.UUID) (*TaskDTO, error) {
	t, err := s.loadTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	dto := toTaskDTO(t, s.now())
	return &dto, nil
}

// ListTasks pages through one project's tasks.
func (s *Service) ListTasks(ctx context.Context, actor auth.Principal, in ListTasksRequest) (*ListTasksResponse, error) {
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	p, err := s.loadProject(ctx, actor, uuid.MustParse(in.ProjectID))
	if err != nil {
		return nil, err
	}
	page, limit := pagination.NormalizePage(in.Page, in.Limit)

	filter := domain.TaskFilter{
		ProjectID: p.ID,
		Status:    domain.TaskStatus(in.Status),
		Page:      page,
		Limit:     limit,
	}
	if in.AssigneeID != "" {
		assignee := uuid.MustParse(in.AssigneeID)
		filter.AssigneeID = &assignee
	}

	tasks, total, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]TaskDTO, 0, len(tasks))
	for i := range tasks {
		out = append(out, toTaskDTO(&tasks[i], now))
	}
	return &ListTasksResponse{Tasks: out, Pagination: pagination.NewPagination(total, page, limit)}, nil
}

// UpdateTask applies a partial update.
func (s *Service) UpdateTask(ctx context.Context, actor auth.Principal, id uuid.UUID, in UpdateTaskRequest) (*TaskDTO, error) {
	if !canManage(actor) {
		return nil, errCannotManage
	}
	if err := validation.Struct(s.validate, in); err != nil {
		return nil, err
	}
	t, err := s.loadTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		t.Name = *in.Name
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = domain.TaskStatus(*in.Status)
	}
	if in.Priority != nil {
		t.Priority = domain.Priority(*in.Priority)
	}
	if in.AssigneeID != nil {
		if *in.AssigneeID == "" {
			t.AssigneeID = nil
		} else {
			assignee := uuid.MustParse(*in.AssigneeID)
			t.AssigneeID = &assignee
		}
	}
	if in.DueDate != nil {
		t.DueDate = parseDate(*in.DueDate)
	}
	if in.EstimatedHours != nil {
		t.EstimatedHours = in.EstimatedHours
	}
	if in.CompletionPercentage != nil {
		t.CompletionPercentage = *in.CompletionPercentage
	}
	if in.Tags != nil {
		t.Tags = *in.Tags
	}

	if err := s.repo.UpdateTask(ctx, t); err != nil {
		logger.WithContext(ctx, s.log).Error("failed to update task", zap.String("task_id", id.String()), zap.Error(err))
		return nil, err
	}
	dto := toTaskDTO(t, s.now())
	return &dto, nil
}

// DeleteTask removes a task.
func (s *Service) DeleteTask(ctx context.Context, actor auth.Principal, id uuid.UUID) error {
	if !canManage(actor) {
		return errCannotManage
	}
	if _, err := s.loadTask(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, id)
}

// TimeSpent totals the tracked hours for a task and, when it has an
// estimate, stores the derived completion percentage.
func (s *Service) TimeSpent(ctx context.Context, actor auth.Principal, taskID uuid.UUID) (*TimeSpentResponse, error) {
	t, err := s.loadTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	seconds, err := s.repo.TaskRecordedSeconds(ctx, taskID)
	if err != nil {
		return nil, err
	}
	hours := domain.HoursFromSeconds(seconds)

	if pct, ok := domain.Completion(hours, t.EstimatedHours); ok && pct != t.CompletionPercentage {
		t.CompletionPercentage = pct
		if err := s.repo.UpdateTask(ctx, t); err != nil {
			return nil, err
		}
	}

	return &TimeSpentResponse{
		TaskID:               t.ID.String(),
		TotalHours:           hours,
		EstimatedHours:       t.EstimatedHours,
		CompletionPercentage: t.CompletionPercentage,
	}, nil
}
