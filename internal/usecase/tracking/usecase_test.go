package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "treko/internal/domain/tracking"
	"treko/pkg/auth"
	apperrors "treko/pkg/errors"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) RunInTx(ctx context.Context, fn func(repo Repository) error) error {
	return fn(m)
}

func (m *MockRepository) UserOrganization(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*uuid.UUID), args.Error(1)
}

func (m *MockRepository) GetOrCreateSession(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.Session, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockRepository) SaveSession(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockRepository) GetSessionByDate(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.Session, error) {
	args := m.Called(ctx, userID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockRepository) ListSessions(ctx context.Context, userID uuid.UUID, page, limit int64) ([]domain.Session, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	return args.Get(0).([]domain.Session), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) SetSessionStatus(ctx context.Context, id int64, status domain.VerificationStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockRepository) LockSession(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) CreateAppUsages(ctx context.Context, rows []domain.AppUsage) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockRepository) CreateTaskUsages(ctx context.Context, rows []domain.TaskUsage) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockRepository) CreateScreenshots(ctx context.Context, rows []domain.Screenshot) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockRepository) CreateHeadshots(ctx context.Context, rows []domain.Headshot) error {
	args := m.Called(ctx, rows)
	for i := range rows {
		rows[i].ID = int64(100 + i)
	}
	return args.Error(0)
}

func (m *MockRepository) ListAppUsages(ctx context.Context, sessionID int64) ([]domain.AppUsage, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]domain.AppUsage), args.Error(1)
}

func (m *MockRepository) ListTaskUsages(ctx context.Context, sessionID int64) ([]domain.TaskUsage, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]domain.TaskUsage), args.Error(1)
}

func (m *MockRepository) ListScreenshots(ctx context.Context, sessionID int64) ([]domain.Screenshot, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]domain.Screenshot), args.Error(1)
}

func (m *MockRepository) ListHeadshots(ctx context.Context, sessionID int64) ([]domain.Headshot, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]domain.Headshot), args.Error(1)
}

func (m *MockRepository) GetHeadshot(ctx context.Context, id int64) (*domain.Headshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Headshot), args.Error(1)
}

func (m *MockRepository) UpdateHeadshot(ctx context.Context, h *domain.Headshot) error {
	return m.Called(ctx, h).Error(0)
}

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, jobType string, payload any) (string, error) {
	args := m.Called(ctx, jobType, payload)
	return args.String(0), args.Error(1)
}

type fetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

var testNow = time.Date(2025, 9, 16, 10, 30, 0, 0, time.UTC)

func setupTestService(t *testing.T, fetcher ImageFetcher) (*Service, *MockRepository, *MockQueue) {
	t.Helper()
	repo := new(MockRepository)
	queue := new(MockQueue)
	svc := New(repo, queue, fetcher, NewImageVerifier(), zaptest.NewLogger(t))
	svc.now = func() time.Time { return testNow }
	return svc, repo, queue
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

const samplePayload = `{
  "user_id": "%s",
  "app_version": "treko-desktop/0.1",
  "project_id": "9a92974f-8821-4592-ac0d-c536bdc33b17",
  "chunk_id": "chunk-1",
  "stats": {"active_sec": 30, "effective_sec": 30, "idle_sec": 10, "overtime_sec": 0, "recorded_sec": 40},
  "apps": {"active_by_app_sec": {"Chrome": 25, "Terminal": 5}, "session_count": 1, "session_duration_sec": 40},
  "by_task": [{"task_id": "4dde3ad9-d876-4569-8d4c-4ad82b30cd53", "recorded_sec": 40, "effective_sec": 30}],
  "media": {
    "screenshots": ["https://shots.s3.amazonaws.com/a.png"],
    "headshots": [{"url": "https://heads.s3.amazonaws.com/u/1.jpg", "timestamp": "2025-09-16T10:20:00Z"}]
  },
  "window": {"start": "2025-09-16T10:00:00Z", "end": "2025-09-16T10:20:00Z"}
}`

func decodePayload(t *testing.T, userID uuid.UUID) PayloadRequest {
	t.Helper()
	var in PayloadRequest
	body := []byte(fmt.Sprintf(samplePayload, userID.String()))
	require.NoError(t, json.Unmarshal(body, &in))
	return in
}

func TestMediaItem_UnmarshalBothForms(t *testing.T) {
	var media MediaPayload
	err := json.Unmarshal([]byte(`{"headshots": ["https://a/1.jpg", {"url": "https://a/2.jpg", "status": "idle"}]}`), &media)
	require.NoError(t, err)
	require.Len(t, media.Headshots, 2)
	assert.Equal(t, "https://a/1.jpg", media.Headshots[0].URL)
	assert.Equal(t, "idle", media.Headshots[1].Status)

	assert.Error(t, json.Unmarshal([]byte(`{"headshots": [42]}`), &media))
}

func TestIngest_Success(t *testing.T) {
	svc, repo, queue := setupTestService(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	org := uuid.New()

	session := &domain.Session{ID: 7, UserID: userID, Date: domain.DayOf(testNow), ActiveSec: 60, RecordedSec: 60,
		ActiveByAppSec: map[string]int64{"Chrome": 60}, VerificationStatus: domain.StatusVerified}

	repo.On("UserOrganization", ctx, userID).Return(&org, nil)
	repo.On("GetOrCreateSession", ctx, userID, testNow).Return(session, nil)
	repo.On("SaveSession", ctx, session).Return(nil)
	repo.On("CreateAppUsages", ctx, mock.MatchedBy(func(rows []domain.AppUsage) bool { return len(rows) == 2 })).Return(nil)
	repo.On("CreateTaskUsages", ctx, mock.MatchedBy(func(rows []domain.TaskUsage) bool {
		return len(rows) == 1 && rows[0].Minutes == 0.67 && rows[0].ProjectID != nil
	})).Return(nil)
	repo.On("CreateScreenshots", ctx, mock.MatchedBy(func(rows []domain.Screenshot) bool {
		return len(rows) == 1 && rows[0].TakenAt.Equal(testNow)
	})).Return(nil)
	repo.On("CreateHeadshots", ctx, mock.MatchedBy(func(rows []domain.Headshot) bool {
		return len(rows) == 1 && rows[0].VerificationStatus == domain.StatusPending && rows[0].Status == "active"
	})).Return(nil)
	queue.On("Enqueue", ctx, JobVerifyHeadshot, VerifyHeadshotJob{HeadshotID: 100}).Return("job-1", nil)

	resp, err := svc.Ingest(ctx, auth.Principal{UserID: userID.String(), Role: "EMPLOYEE", OrganizationID: org.String()}, decodePayload(t, userID))
	require.NoError(t, err)
	assert.Equal(t, int64(7), resp.SessionID)

	assert.Equal(t, int64(90), session.ActiveSec)
	assert.Equal(t, int64(100), session.RecordedSec)
	assert.Equal(t, 75, session.ActivityLevel, "latest chunk only")
	assert.Equal(t, int64(85), session.ActiveByAppSec["Chrome"])
	assert.Equal(t, domain.StatusPending, session.VerificationStatus, "new headshots reopen verification")
	repo.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestIngest_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing user id", func(t *testing.T) {
		svc, _, _ := setupTestService(t, nil)
		_, err := svc.Ingest(ctx, auth.Principal{Superuser: true}, PayloadRequest{})
		assert.Equal(t, 400, apperrors.StatusCode(err))
		assert.Contains(t, err.Error(), "user_id missing")
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, repo, _ := setupTestService(t, nil)
		userID := uuid.New()
		repo.On("UserOrganization", ctx, userID).Return(nil, apperrors.NewNotFoundError("user", "user not found"))
		_, err := svc.Ingest(ctx, auth.Principal{Superuser: true}, decodePayload(t, userID))
		assert.Equal(t, 404, apperrors.StatusCode(err))
	})

	t.Run("employee posting for someone else", func(t *testing.T) {
		svc, repo, _ := setupTestService(t, nil)
		userID := uuid.New()
		org := uuid.New()
		repo.On("UserOrganization", ctx, userID).Return(&org, nil)
		_, err := svc.Ingest(ctx, auth.Principal{UserID: uuid.NewString(), Role: "EMPLOYEE", OrganizationID: org.String()}, decodePayload(t, userID))
		assert.Equal(t, 403, apperrors.StatusCode(err))
	})

	t.Run("transaction failure skips enqueue", func(t *testing.T) {
		svc, repo, queue := setupTestService(t, nil)
		userID := uuid.New()
		org := uuid.New()
		repo.On("UserOrganization", ctx, userID).Return(&org, nil)
		repo.On("GetOrCreateSession", ctx, userID, testNow).Return(nil, errors.New("db down"))
		_, err := svc.Ingest(ctx, auth.Principal{Superuser: true}, decodePayload(t, userID))
		assert.Error(t, err)
		queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReads_OrganizationScope(t *testing.T) {
	svc, repo, _ := setupTestService(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	org := uuid.New()
	session := &domain.Session{ID: 3, UserID: userID}

	repo.On("UserOrganization", ctx, userID).Return(&org, nil)
	repo.On("GetSession", ctx, int64(3)).Return(session, nil)
	repo.On("ListScreenshots", ctx, int64(3)).Return([]domain.Screenshot{{ID: 1, URL: "u"}}, nil)

	manager := auth.Principal{UserID: uuid.NewString(), Role: "MANAGER", OrganizationID: org.String()}
	shots, err := svc.Screenshots(ctx, manager, 3)
	require.NoError(t, err)
	assert.Len(t, shots, 1)

	outsider := auth.Principal{UserID: uuid.NewString(), Role: "MANAGER", OrganizationID: uuid.NewString()}
	_, err = svc.Screenshots(ctx, outsider, 3)
	assert.Equal(t, 404, apperrors.StatusCode(err))
}

func TestHistory(t *testing.T) {
	svc, repo, _ := setupTestService(t, nil)
	ctx := context.Background()
	userID := uuid.New()
	org := uuid.New()
	repo.On("UserOrganization", ctx, userID).Return(&org, nil)
	repo.On("ListSessions", ctx, userID, int64(1), int64(10)).Return([]domain.Session{{ID: 2}, {ID: 1}}, int64(2), nil)

	resp, err := svc.History(ctx, auth.Principal{UserID: userID.String()}, userID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Sessions, 2)
	assert.NotNil(t, resp.Sessions[0].ActiveByAppSec)
}

func TestVerifyHeadshot(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		image    []byte
		fetchErr error
		want     domain.VerificationStatus
	}{
		{name: "valid image", image: pngBytes(t, 128, 128), want: domain.StatusVerified},
		{name: "too small", image: pngBytes(t, 16, 16), want: domain.StatusSuspicious},
		{name: "not an image", image: []byte("hello"), want: domain.StatusSuspicious},
		{name: "fetch error", fetchErr: errors.New("access denied"), want: domain.StatusSuspicious},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := fetcherFunc(func(context.Context, string) ([]byte, error) { return tt.image, tt.fetchErr })
			svc, repo, _ := setupTestService(t, fetcher)

			h := &domain.Headshot{ID: 5, SessionID: 9, URL: "https://b.s3.amazonaws.com/k.png", VerificationStatus: domain.StatusPending}
			repo.On("GetHeadshot", ctx, int64(5)).Return(h, nil)
			repo.On("LockSession", ctx, int64(9)).Return(nil)
			repo.On("UpdateHeadshot", ctx, mock.MatchedBy(func(x *domain.Headshot) bool {
				return x.VerificationStatus == tt.want && x.VerifiedBy == domain.VerifiedBySystem && x.Confidence == 0 && x.VerifiedAt != nil
			})).Return(nil)
			repo.On("ListHeadshots", ctx, int64(9)).Return([]domain.Headshot{{VerificationStatus: tt.want}}, nil)
			repo.On("SetSessionStatus", ctx, int64(9), tt.want).Return(nil)

			require.NoError(t, svc.VerifyHeadshot(ctx, 5))
			repo.AssertExpectations(t)
		})
	}
}

func TestVerifyHeadshot_NoOps(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupTestService(t, nil)

	repo.On("GetHeadshot", ctx, int64(1)).Return(nil, nil)
	repo.On("GetHeadshot", ctx, int64(2)).Return(&domain.Headshot{ID: 2}, nil)

	require.NoError(t, svc.VerifyHeadshot(ctx, 1))
	require.NoError(t, svc.VerifyHeadshot(ctx, 2))
	repo.AssertNotCalled(t, "UpdateHeadshot", mock.Anything, mock.Anything)
}

func TestVerifyHeadshot_RepositoryErrorPropagates(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupTestService(t, fetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("unused")
	}))
	h := &domain.Headshot{ID: 5, SessionID: 9, URL: "https://b.s3.amazonaws.com/k.png"}
	repo.On("GetHeadshot", ctx, int64(5)).Return(h, nil)
	repo.On("LockSession", ctx, int64(9)).Return(nil)
	repo.On("UpdateHeadshot", ctx, h).Return(errors.New("connection reset"))

	err := svc.VerifyHeadshot(ctx, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestVerifyHeadshot_LocksSessionBeforeRecompute(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupTestService(t, fetcherFunc(func(context.Context, string) ([]byte, error) {
		return pngBytes(t, 128, 128), nil
	}))

	var calls []string
	record := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) { calls = append(calls, name) }
	}

	h := &domain.Headshot{ID: 5, SessionID: 9, URL: "https://b.s3.amazonaws.com/k.png"}
	repo.On("GetHeadshot", ctx, int64(5)).Return(h, nil)
	repo.On("LockSession", ctx, int64(9)).Run(record("lock")).Return(nil)
	repo.On("UpdateHeadshot", ctx, mock.Anything).Run(record("update")).Return(nil)
	repo.On("ListHeadshots", ctx, int64(9)).Run(record("list")).
		Return([]domain.Headshot{{VerificationStatus: domain.StatusVerified}}, nil)
	repo.On("SetSessionStatus", ctx, int64(9), domain.StatusVerified).Run(record("set")).Return(nil)

	require.NoError(t, svc.VerifyHeadshot(ctx, 5))
	assert.Equal(t, []string{"lock", "update", "list", "set"}, calls)
}

func TestVerifyHeadshot_LockFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setupTestService(t, fetcherFunc(func(context.Context, string) ([]byte, error) {
		return pngBytes(t, 128, 128), nil
	}))
	h := &domain.Headshot{ID: 5, SessionID: 9, URL: "https://b.s3.amazonaws.com/k.png"}
	repo.On("GetHeadshot", ctx, int64(5)).Return(h, nil)
	repo.On("LockSession", ctx, int64(9)).Return(errors.New("lock timeout"))

	err := svc.VerifyHeadshot(ctx, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock timeout")
	repo.AssertNotCalled(t, "UpdateHeadshot", mock.Anything, mock.Anything)
}
