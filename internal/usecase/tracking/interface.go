package tracking

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "treko/internal/domain/tracking"
	"treko/pkg/auth"
)

// JobVerifyHeadshot is the queue job type that runs VerifyHeadshot.
const JobVerifyHeadshot = "verify_headshot"

// VerifyHeadshotJob is the payload of a JobVerifyHeadshot job.
type VerifyHeadshotJob struct {
	HeadshotID int64 `json:"headshot_id"`
}

// Usecase defines ingestion, read and verification operations.
type Usecase interface {
	Ingest(ctx context.Context, actor auth.Principal, in PayloadRequest) (*IngestResponse, error)

	Today(ctx context.Context, actor auth.Principal, userID uuid.UUID) (*SessionDTO, error)
	History(ctx context.Context, actor auth.Principal, userID uuid.UUID, page, limit int64) (*HistoryResponse, error)
	Apps(ctx context.Context, actor auth.Principal, sessionID int64) ([]AppUsageDTO, error)
	Screenshots(ctx context.Context, actor auth.Principal, sessionID int64) ([]ScreenshotDTO, error)
	Headshots(ctx context.Context, actor auth.Principal, sessionID int64) ([]HeadshotDTO, error)
	Tasks(ctx context.Context, actor auth.Principal, sessionID int64) ([]TaskUsageDTO, error)

	VerifyHeadshot(ctx context.Context, headshotID int64) error
}

// Repository abstracts persistence of tracking sessions and their rows.
// GetHeadshot returns nil, nil when the headshot does not exist.
type Repository interface {
	// RunInTx calls fn with a Repository bound to one database transaction.
	RunInTx(ctx context.Context, fn func(repo Repository) error) error

	// UserOrganization returns the user's organization, or a *errors.NotFoundError.
	UserOrganization(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error)

	// GetOrCreateSession returns the user's session for day, creating it if
	// needed, locked for the rest of the transaction.
	GetOrCreateSession(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.Session, error)
	SaveSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, id int64) (*domain.Session, error)
	GetSessionByDate(ctx context.Context, userID uuid.UUID, day time.Time) (*domain.Session, error)
	ListSessions(ctx context.Context, userID uuid.UUID, page, limit int64) ([]domain.Session, int64, error)
	SetSessionStatus(ctx context.Context, id int64, status domain.VerificationStatus) error
	// LockSession holds the session row until the transaction ends. Concurrent
	// verifications of one session recompute its status one after another.
	LockSession(ctx context.Context, id int64) error

	CreateAppUsages(ctx context.Context, rows []domain.AppUsage) error
	CreateTaskUsages(ctx context.Context, rows []domain.TaskUsage) error
	CreateScreenshots(ctx context.Context, rows []domain.Screenshot) error
	// CreateHeadshots fills in the ID of every row.
	CreateHeadshots(ctx context.Context, rows []domain.Headshot) error

	ListAppUsages(ctx context.Context, sessionID int64) ([]domain.AppUsage, error)
	ListTaskUsages(ctx context.Context, sessionID int64) ([]domain.TaskUsage, error)
	ListScreenshots(ctx context.Context, sessionID int64) ([]domain.Screenshot, error)
	ListHeadshots(ctx context.Context, sessionID int64) ([]domain.Headshot, error)

	GetHeadshot(ctx context.Context, id int64) (*domain.Headshot, error)
	UpdateHeadshot(ctx context.Context, h *domain.Headshot) error
}

// JobEnqueuer schedules background jobs.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any) (string, error)
}

// ImageFetcher downloads the image an uploaded URL points at.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Verifier decides whether a headshot image is acceptable.
type Verifier interface {
	Verify(ctx context.Context, image []byte) (domain.VerificationStatus, float64, error)
}
