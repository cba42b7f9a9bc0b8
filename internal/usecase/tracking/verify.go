package tracking

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	domain "treko/internal/domain/tracking"
	"treko/pkg/logger"
)

// VerifyHeadshot checks one headshot image and updates the headshot and its
// session. A missing headshot or an empty URL is a no-op. Fetch and verify
// failures mark the headshot suspicious; repository failures are returned so
// the job can be retried.
func (s *Service) VerifyHeadshot(ctx context.Context, headshotID int64) error {
	log := logger.WithContext(ctx, s.log).With(zap.Int64("headshot_id", headshotID))

	h, err := s.repo.GetHeadshot(ctx, headshotID)
	if err != nil {
		return fmt.Errorf("load headshot %d: %w", headshotID, err)
	}
	if h == nil {
		log.Info("headshot no longer exists, skipping")
		return nil
	}
	if h.URL == "" {
		log.Info("headshot has no url, skipping")
		return nil
	}

	status, confidence := s.check(ctx, log, h.URL)

	now := s.now().UTC()
	h.VerificationStatus = status
	h.Confidence = confidence
	h.VerifiedBy = domain.VerifiedBySystem
	h.VerifiedAt = &now

	return s.repo.RunInTx(ctx, func(tx Repository) error {
		if err := tx.LockSession(ctx, h.SessionID); err != nil {
			return fmt.Errorf("lock session %d: %w", h.SessionID, err)
		}
		if err := tx.UpdateHeadshot(ctx, h); err != nil {
			return fmt.Errorf("update headshot %d: %w", h.ID, err)
		}
		all, err := tx.ListHeadshots(ctx, h.SessionID)
		if err != nil {
			return fmt.Errorf("list headshots of session %d: %w", h.SessionID, err)
		}
		sessionStatus := domain.AggregateStatus(all)
		if err := tx.SetSessionStatus(ctx, h.SessionID, sessionStatus); err != nil {
			return fmt.Errorf("update session %d: %w", h.SessionID, err)
		}

		log.Info("headshot verified",
			zap.String("status", string(status)),
			zap.Int64("session_id", h.SessionID),
			zap.String("session_status", string(sessionStatus)),
		)
		return nil
	})
}

// check never fails: anything that goes wrong makes the headshot suspicious.
// Confidence is always reported as zero.
func (s *Service) check(ctx context.Context, log *zap.Logger, url string) (domain.VerificationStatus, float64) {
	if s.fetcher == nil || s.verifier == nil {
		log.Warn("headshot verification is not configured")
		return domain.StatusSuspicious, 0
	}

	image, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn("failed to fetch headshot image", zap.Error(err))
		return domain.StatusSuspicious, 0
	}

	status, _, err := s.verifier.Verify(ctx, image)
	if err != nil {
		log.Warn("headshot verification failed", zap.Error(err))
		return domain.StatusSuspicious, 0
	}
	if status != domain.StatusVerified {
		return domain.StatusSuspicious, 0
	}
	return domain.StatusVerified, 0
}
