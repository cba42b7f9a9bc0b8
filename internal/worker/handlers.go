package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"treko/internal/usecase/tracking"
)

// HeadshotVerifier is the part of the tracking usecase the verify job needs.
type HeadshotVerifier interface {
	VerifyHeadshot(ctx context.Context, headshotID int64) error
}

// VerifyHeadshot decodes a tracking.VerifyHeadshotJob and runs verification.
// A payload that does not decode is never retried.
func VerifyHeadshot(uc HeadshotVerifier) Handler {
	return func(ctx context.Context, payload json.RawMessage) error {
		var job tracking.VerifyHeadshotJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return Permanent(fmt.Errorf("invalid %s payload: %w", tracking.JobVerifyHeadshot, err))
		}
		if job.HeadshotID <= 0 {
			return Permanent(fmt.Errorf("invalid %s payload: headshot_id missing", tracking.JobVerifyHeadshot))
		}
		return uc.VerifyHeadshot(ctx, job.HeadshotID)
	}
}

// RegisterTracking wires the tracking jobs into w.
func RegisterTracking(w *Worker, uc HeadshotVerifier) {
	w.Register(tracking.JobVerifyHeadshot, VerifyHeadshot(uc))
}
