package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"treko/internal/usecase/account"
	"treko/internal/usecase/project"
	"treko/internal/usecase/tracking"
	"treko/pkg/auth"
)

// MockAccountUsecase is a mock implementation of account.Usecase
type MockAccountUsecase struct {
	mock.Mock
}

func (m *MockAccountUsecase) Login(ctx context.Context, in account.LoginRequest) (*account.LoginResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.LoginResponse), args.Error(1)
}

func (m *MockAccountUsecase) Refresh(ctx context.Context, in account.RefreshRequest) (*auth.TokenPair, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenPair), args.Error(1)
}

func (m *MockAccountUsecase) Signup(ctx context.Context, actor auth.Principal, in account.SignupRequest) (*account.UserDTO, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.UserDTO), args.Error(1)
}

func (m *MockAccountUsecase) ChangePassword(ctx context.Context, actor auth.Principal, in account.ChangePasswordRequest) error {
	return m.Called(ctx, actor, in).Error(0)
}

func (m *MockAccountUsecase) CreateOrganization(ctx context.Context, actor auth.Principal, in account.CreateOrganizationRequest) (*account.OrganizationDTO, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.OrganizationDTO), args.Error(1)
}

func (m *MockAccountUsecase) ListOrganizations(ctx context.Context, actor auth.Principal) ([]account.OrganizationDTO, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]account.OrganizationDTO), args.Error(1)
}

func (m *MockAccountUsecase) ListUsers(ctx context.Context, actor auth.Principal, in account.ListUsersRequest) (*account.ListUsersResponse, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.ListUsersResponse), args.Error(1)
}

func (m *MockAccountUsecase) GetUser(ctx context.Context, actor auth.Principal, id uuid.UUID) (*account.UserDTO, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.UserDTO), args.Error(1)
}

func (m *MockAccountUsecase) CreateSuperuser(ctx context.Context, in account.CreateSuperuserRequest) (*account.UserDTO, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.UserDTO), args.Error(1)
}

// MockProjectUsecase is a mock implementation of project.Usecase
type MockProjectUsecase struct {
	mock.Mock
}

func (m *MockProjectUsecase) CreateProject(ctx context.Context, actor auth.Principal, in project.CreateProjectRequest) (*project.ProjectDTO, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.ProjectDTO), args.Error(1)
}

func (m *MockProjectUsecase) GetProject(ctx context.Context, actor auth.Principal, id uuid.UUID) (*project.ProjectDTO, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.ProjectDTO), args.Error(1)
}

func (m *MockProjectUsecase) ListProjects(ctx context.Context, actor auth.Principal, in project.ListProjectsRequest) (*project.ListProjectsResponse, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.ListProjectsResponse), args.Error(1)
}

func (m *MockProjectUsecase) UpdateProject(ctx context.Context, actor auth.Principal, id uuid.UUID, in project.UpdateProjectRequest) (*project.ProjectDTO, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.ProjectDTO), args.Error(1)
}

func (m *MockProjectUsecase) DeleteProject(ctx context.Context, actor auth.Principal, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockProjectUsecase) CreateTask(ctx context.Context, actor auth.Principal, in project.CreateTaskRequest) (*project.TaskDTO, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.TaskDTO), args.Error(1)
}

func (m *MockProjectUsecase) GetTask(ctx context.Context, actor auth.Principal, id uuid.UUID) (*project.TaskDTO, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.TaskDTO), args.Error(1)
}

func (m *MockProjectUsecase) ListTasks(ctx context.Context, actor auth.Principal, in project.ListTasksRequest) (*project.ListTasksResponse, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.ListTasksResponse), args.Error(1)
}

func (m *MockProjectUsecase) UpdateTask(ctx context.Context, actor auth.Principal, id uuid.UUID, in project.UpdateTaskRequest) (*project.TaskDTO, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.TaskDTO), args.Error(1)
}

func (m *MockProjectUsecase) DeleteTask(ctx context.Context, actor auth.Principal, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockProjectUsecase) TimeSpent(ctx context.Context, actor auth.Principal, taskID uuid.UUID) (*project.TimeSpentResponse, error) {
	args := m.Called(ctx, actor, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*project.TimeSpentResponse), args.Error(1)
}

// MockTrackingUsecase is a mock implementation of tracking.Usecase
type MockTrackingUsecase struct {
	mock.Mock
}

func (m *MockTrackingUsecase) Ingest(ctx context.Context, actor auth.Principal, in tracking.PayloadRequest) (*tracking.IngestResponse, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.IngestResponse), args.Error(1)
}

func (m *MockTrackingUsecase) Today(ctx context.Context, actor auth.Principal, userID uuid.UUID) (*tracking.SessionDTO, error) {
	args := m.Called(ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.SessionDTO), args.Error(1)
}

func (m *MockTrackingUsecase) History(ctx context.Context, actor auth.Principal, userID uuid.UUID, page, limit int64) (*tracking.HistoryResponse, error) {
	args := m.Called(ctx, actor, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tracking.HistoryResponse), args.Error(1)
}

func (m *MockTrackingUsecase) Apps(ctx context.Context, actor auth.Principal, sessionID int64) ([]tracking.AppUsageDTO, error) {
	args := m.Called(ctx, actor, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tracking.AppUsageDTO), args.Error(1)
}

func (m *MockTrackingUsecase) Screenshots(ctx context.Context, actor auth.Principal, sessionID int64) ([]tracking.ScreenshotDTO, error) {
	args := m.Called(ctx, actor, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tracking.ScreenshotDTO), args.Error(1)
}

func (m *MockTrackingUsecase) Headshots(ctx context.Context, actor auth.Principal, sessionID int64) ([]tracking.HeadshotDTO, error) {
	args := m.Called(ctx, actor, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tracking.HeadshotDTO), args.Error(1)
}

func (m *MockTrackingUsecase) Tasks(ctx context.Context, actor auth.Principal, sessionID int64) ([]tracking.TaskUsageDTO, error) {
	args := m.Called(ctx, actor, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tracking.TaskUsageDTO), args.Error(1)
}

func (m *MockTrackingUsecase) VerifyHeadshot(ctx context.Context, headshotID int64) error {
	return m.Called(ctx, headshotID).Error(0)
}
