package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"treko/internal/domain/tracking"
	trackinguc "treko/internal/usecase/tracking"
	apperrors "treko/pkg/errors"
)

func TestTrackingRepoPG_GetOrCreateSession(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackingRepoPG(setupTestDB(t), zaptest.NewLogger(t))
	userID := uuid.New()
	morning := time.Date(2025, 9, 16, 8, 0, 0, 0, time.UTC)

	first, err := repo.GetOrCreateSession(ctx, userID, morning)
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, tracking.StatusPending, first.VerificationStatus)
	assert.Equal(t, tracking.DayOf(morning), first.Date)
	assert.NotNil(t, first.ActiveByAppSec)

	again, err := repo.GetOrCreateSession(ctx, userID, morning.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	tomorrow, err := repo.GetOrCreateSession(ctx, userID, morning.Add(24*time.Hour))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, tomorrow.ID)
}

func TestTrackingRepoPG_SaveAndReadSession(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackingRepoPG(setupTestDB(t), zaptest.NewLogger(t))
	userID := uuid.New()
	day := time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC)

	s, err := repo.GetOrCreateSession(ctx, userID, day)
	require.NoError(t, err)

	start := day.Add(9 * time.Hour)
	s.ActiveSec = 450
	s.RecordedSec = 600
	s.ActivityLevel = 75
	s.WindowStart = &start
	s.ActiveByAppSec = map[string]int64{"Chrome": 300, "Slack": 150}
	s.VerificationStatus = tracking.StatusVerified
	require.NoError(t, repo.SaveSession(ctx, s))

	got, err := repo.GetSessionByDate(ctx, userID, day.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, int64(600), got.RecordedSec)
	assert.Equal(t, 75, got.ActivityLevel)
	assert.Equal(t, map[string]int64{"Chrome": 300, "Slack": 150}, got.ActiveByAppSec)
	require.NotNil(t, got.WindowStart)
	assert.True(t, start.Equal(*got.WindowStart))

	require.NoError(t, repo.SetSessionStatus(ctx, s.ID, tracking.StatusSuspicious))
	got, err = repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, tracking.StatusSuspicious, got.VerificationStatus)

	var nf *apperrors.NotFoundError
	_, err = repo.GetSession(ctx, 9999)
	assert.ErrorAs(t, err, &nf)
	_, err = repo.GetSessionByDate(ctx, uuid.New(), day)
	assert.ErrorAs(t, err, &nf)
	assert.ErrorAs(t, repo.SaveSession(ctx, &tracking.Session{ID: 9999}), &nf)
}

func TestTrackingRepoPG_ListSessions(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackingRepoPG(setupTestDB(t), zaptest.NewLogger(t))
	userID := uuid.New()
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := repo.GetOrCreateSession(ctx, userID, day.AddDate(0, 0, i))
		require.NoError(t, err)
	}
	_, err := repo.GetOrCreateSession(ctx, uuid.New(), day)
	require.NoError(t, err)

	sessions, total, err := repo.ListSessions(ctx, userID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, sessions, 2)
	assert.Equal(t, day.AddDate(0, 0, 4), sessions[0].Date)
	assert.Equal(t, day.AddDate(0, 0, 3), sessions[1].Date)
}

func TestTrackingRepoPG_ChildRows(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackingRepoPG(setupTestDB(t), zaptest.NewLogger(t))
	s, err := repo.GetOrCreateSession(ctx, uuid.New(), time.Now())
	require.NoError(t, err)

	taskID := uuid.New()
	early := time.Date(2025, 9, 16, 9, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	require.NoError(t, repo.CreateAppUsages(ctx, []tracking.AppUsage{
		{SessionID: s.ID, AppName: "Chrome", Seconds: 300, Minutes: 5, ChunkID: "c1"},
	}))
	require.NoError(t, repo.CreateTaskUsages(ctx, []tracking.TaskUsage{
		{SessionID: s.ID, TaskID: &taskID, RecordedSec: 600, RemainingSec: 1200, TotalTaskSec: 3600, TotalWorkedSec: 2400, Minutes: 10},
	}))
	require.NoError(t, repo.CreateScreenshots(ctx, []tracking.Screenshot{
		{SessionID: s.ID, URL: "https://b.s3.amazonaws.com/2.png", TakenAt: late},
		{SessionID: s.ID, URL: "https://b.s3.amazonaws.com/1.png", WindowTitle: "Inbox", TakenAt: early},
	}))
	headshots := []tracking.Headshot{
		{SessionID: s.ID, URL: "https://b.s3.amazonaws.com/h1.jpg", Status: "active", VerificationStatus: tracking.StatusPending, TakenAt: early},
		{SessionID: s.ID, URL: "https://b.s3.amazonaws.com/h2.jpg", Status: "active", VerificationStatus: tracking.StatusPending, TakenAt: late},
	}
	require.NoError(t, repo.CreateHeadshots(ctx, headshots))
	assert.NotZero(t, headshots[0].ID)
	assert.NotEqual(t, headshots[0].ID, headshots[1].ID)

	apps, err := repo.ListAppUsages(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "Chrome", apps[0].AppName)

	tasks, err := repo.ListTaskUsages(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(1200), tasks[0].RemainingSec)
	assert.Equal(t, int64(2400), tasks[0].TotalWorkedSec)

	shots, err := repo.ListScreenshots(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, shots, 2)
	assert.Equal(t, "Inbox", shots[0].WindowTitle)

	heads, err := repo.ListHeadshots(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, heads, 2)

	verifiedAt := late.Add(time.Minute)
	h := heads[0]
	h.VerificationStatus = tracking.StatusVerified
	h.VerifiedBy = tracking.VerifiedBySystem
	h.VerifiedAt = &verifiedAt
	require.NoError(t, repo.UpdateHeadshot(ctx, &h))

	got, err := repo.GetHeadshot(ctx, h.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, tracking.StatusVerified, got.VerificationStatus)
	assert.Equal(t, tracking.VerifiedBySystem, got.VerifiedBy)
	require.NotNil(t, got.VerifiedAt)

	got, err = repo.GetHeadshot(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTrackingRepoPG_RunInTx(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackingRepoPG(setupTestDB(t), zaptest.NewLogger(t))
	userID := uuid.New()
	day := time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := repo.RunInTx(ctx, func(tx trackinguc.Repository) error {
		if _, err := tx.GetOrCreateSession(ctx, userID, day); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetSessionByDate(ctx, userID, day)
	var nf *apperrors.NotFoundError
	assert.ErrorAs(t, err, &nf, "rolled back session must not exist")

	err = repo.RunInTx(ctx, func(tx trackinguc.Repository) error {
		_, err := tx.GetOrCreateSession(ctx, userID, day)
		return err
	})
	require.NoError(t, err)
	_, err = repo.GetSessionByDate(ctx, userID, day)
	assert.NoError(t, err)
}

func TestTrackingRepoPG_UserOrganization(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	accounts := NewAccountRepoPG(db, zaptest.NewLogger(t))
	repo := NewTrackingRepoPG(db, zaptest.NewLogger(t))

	org := seedOrganization(t, accounts, "Acme")
	member := seedUser(t, accounts, "jane@example.com", "Jane", &org.ID)
	root := seedUser(t, accounts, "root@example.com", "Root", nil)

	got, err := repo.UserOrganization(ctx, member.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, org.ID, *got)

	got, err = repo.UserOrganization(ctx, root.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = repo.UserOrganization(ctx, uuid.New())
	var nf *apperrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestTrackingRepoPG_LockSession(t *testing.T) {
	ctx := context.Background()
	repo := NewTrackingRepoPG(setupTestDB(t), zaptest.NewLogger(t))

	s, err := repo.GetOrCreateSession(ctx, uuid.New(), time.Now())
	require.NoError(t, err)

	err = repo.RunInTx(ctx, func(tx trackinguc.Repository) error {
		return tx.LockSession(ctx, s.ID)
	})
	assert.NoError(t, err)

	err = repo.LockSession(ctx, s.ID+100)
	var nf *apperrors.NotFoundError
	assert.True(t, errors.As(err, &nf))
}
