package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	pagination "treko/internal/domain"
	accountdomain "treko/internal/domain/account"
	domain "treko/internal/domain/tracking"
	"treko/internal/usecase/validation"
	"treko/pkg/auth"
	apperrors "treko/pkg/errors"
	"treko/pkg/logger"
	"treko/pkg/metrics"
)

var errSessionNotFound = apperrors.NewNotFoundError("session", "tracking session not found")

// Service implements Usecase.
type Service struct {
	repo     Repository
	jobs     JobEnqueuer
	fetcher  ImageFetcher
	verifier Verifier
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

var _ Usecase = (*Service)(nil)

// New creates the tracking service. jobs may be nil, in which case
// headshots stay pending until verified some other way.
func New(r Repository, jobs JobEnqueuer, fetcher ImageFetcher, verifier Verifier, log *zap.Logger) *Service {
	return &Service{
		repo:     r,
		jobs:     jobs,
		fetcher:  fetcher,
		verifier: verifier,
		log:      log,
		validate: validation.New(),
		now:      time.Now,
	}
}

// Ingest folds one payload chunk into the user's session for today and
// records its rows, then schedules verification of any new headshots.
func (s *Service) Ingest(ctx context.Context, actor auth.Principal, in PayloadRequest) (*IngestResponse, error) {
	log := logger.WithContext(ctx, s.log)

	if in.UserID == "" {
		metrics.PayloadsIngested.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewValidationError("user_id", "user_id missing")
	}
	if err := validation.Struct(s.validate, in); err != nil {
		metrics.PayloadsIngested.WithLabelValues("invalid").Inc()
		return nil, err
	}
	payload := in.toPayload()

	if err := s.authorize(ctx, actor, payload.UserID); err != nil {
		metrics.PayloadsIngested.WithLabelValues("rejected").Inc()
		return nil, err
	}

	now := s.now().UTC()
	var (
		sessionID int64
		headshots []domain.Headshot
	)
	err := s.repo.RunInTx(ctx, func(tx Repository) error {
		session, err := tx.GetOrCreateSession(ctx, payload.UserID, now)
		if err != nil {
			return err
		}
		session.Apply(payload)
		if len(payload.Headshots) > 0 && session.VerificationStatus == domain.StatusVerified {
			session.VerificationStatus = domain.StatusPending
		}
		if err := tx.SaveSession(ctx, session); err != nil {
			return err
		}
		sessionID = session.ID

		if rows := payload.AppUsages(session.ID); len(rows) > 0 {
			if err := tx.CreateAppUsages(ctx, rows); err != nil {
				return err
			}
		}
		if rows := payload.TaskUsages(session.ID); len(rows) > 0 {
			if err := tx.CreateTaskUsages(ctx, rows); err != nil {
				return err
			}
		}
		if rows := payload.ScreenshotRows(session.ID, now); len(rows) > 0 {
			if err := tx.CreateScreenshots(ctx, rows); err != nil {
				return err
			}
		}
		if rows := payload.HeadshotRows(session.ID, now); len(rows) > 0 {
			if err := tx.CreateHeadshots(ctx, rows); err != nil {
				return err
			}
			headshots = rows
		}
		return nil
	})
	if err != nil {
		metrics.PayloadsIngested.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Error("failed to ingest payload",
			zap.String("user_id", payload.UserID.String()),
			zap.String("chunk_id", payload.ChunkID),
			zap.Error(err),
		)
		return nil, err
	}
	metrics.PayloadsIngested.WithLabelValues(metrics.OutcomeSuccess).Inc()

	s.enqueueVerifications(ctx, headshots)

	log.Info("payload ingested",
		zap.String("user_id", payload.UserID.String()),
		zap.Int64("session_id", sessionID),
		zap.String("chunk_id", payload.ChunkID),
		zap.Int64("recorded_sec", payload.Stats.RecordedSec),
		zap.Int("headshots", len(headshots)),
	)
	return &IngestResponse{Message: "Payload processed successfully", SessionID: sessionID}, nil
}

// enqueueVerifications runs after commit. A failed enqueue leaves the
// headshot pending; the payload itself is already stored.
func (s *Service) enqueueVerifications(ctx context.Context, headshots []domain.Headshot) {
	if s.jobs == nil {
		return
	}
	for _, h := range headshots {
		if h.URL == "" {
			continue
		}
		if _, err := s.jobs.Enqueue(ctx, JobVerifyHeadshot, VerifyHeadshotJob{HeadshotID: h.ID}); err != nil {
			logger.WithContext(ctx, s.log).Warn("failed to enqueue headshot verification",
				zap.Int64("headshot_id", h.ID), zap.Error(err))
		}
	}
}

// authorize lets users act on their own data and lets admins, managers and
// superusers act on users of their organization.
func (s *Service) authorize(ctx context.Context, actor auth.Principal, userID uuid.UUID) error {
	org, err := s.repo.UserOrganization(ctx, userID)
	if err != nil {
		return err
	}
	if actor.Superuser || actor.UserID == userID.String() {
		return nil
	}

	role := accountdomain.Role(actor.Role)
	if role != accountdomain.RoleAdmin && role != accountdomain.RoleManager {
		return apperrors.NewPermissionDeniedError("cannot access another user's tracking data")
	}
	if org == nil || actor.OrganizationID != org.String() {
		return apperrors.NewNotFoundError("user", "user not found")
	}
	return nil
}

func (s *Service) loadSession(ctx context.Context, actor auth.Principal, id int64) (*domain.Session, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, session.UserID); err != nil {
		var nf *apperrors.NotFoundError
		if errors.As(err, &nf) {
			return nil, errSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

// Today returns the user's session for the current UTC day.
func (s *Service) Today(ctx context.Context, actor auth.Principal, userID uuid.UUID) (*SessionDTO, error) {
	if err := s.authorize(ctx, actor, userID); err != nil {
		return nil, err
	}
	session, err := s.repo.GetSessionByDate(ctx, userID, domain.DayOf(s.now()))
	if err != nil {
		return nil, err
	}
	dto := toSessionDTO(session)
	return &dto, nil
}

// History pages through the user's sessions, newest first.
func (s *Service) History(ctx context.Context, actor auth.Principal, userID uuid.UUID, page, limit int64) (*HistoryResponse, error) {
	if err := s.authorize(ctx, actor, userID); err != nil {
		return nil, err
	}
	page, limit = pagination.NormalizePage(page, limit)

	sessions, total, err := s.repo.ListSessions(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SessionDTO, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionDTO(&sessions[i]))
	}
	return &HistoryResponse{Sessions: out, Pagination: pagination.NewPagination(total, page, limit)}, nil
}

// Apps lists the app usage rows of a session.
func (s *Service) Apps(ctx context.Context, actor auth.Principal, sessionID int64) ([]AppUsageDTO, error) {
	if _, err := s.loadSession(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAppUsages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]AppUsageDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toAppUsageDTO(&rows[i]))
	}
	return out, nil
}

// Screenshots lists a session's screenshots, oldest first.
func (s *Service) Screenshots(ctx context.Context, actor auth.Principal, sessionID int64) ([]ScreenshotDTO, error) {
	if _, err := s.loadSession(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListScreenshots(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]ScreenshotDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toScreenshotDTO(&rows[i]))
	}
	return out, nil
}

// Headshots lists a session's headshots, oldest first.
func (s *Service) Headshots(ctx context.Context, actor auth.Principal, sessionID int64) ([]HeadshotDTO, error) {
	if _, err := s.loadSession(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListHeadshots(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]HeadshotDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toHeadshotDTO(&rows[i]))
	}
	return out, nil
}

// Tasks lists the task usage rows of a session.
func (s *Service) Tasks(ctx context.Context, actor auth.Principal, sessionID int64) ([]TaskUsageDTO, error) {
	if _, err := s.loadSession(ctx, actor, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListTaskUsages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]TaskUsageDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toTaskUsageDTO(&rows[i]))
	}
	return out, nil
}
