package tracking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestSessionApply_Accumulates(t *testing.T) {
	user := uuid.New()
	project := uuid.New()
	s := NewSession(user, time.Date(2025, 9, 16, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 9, 16, 0, 0, 0, 0, time.UTC), s.Date)

	s.Apply(&Payload{
		AppVersion:  "treko-desktop/0.1",
		ProjectID:   &project,
		Stats:       Stats{ActiveSec: 3, EffectiveSec: 4, IdleSec: 1, RecordedSec: 4},
		Apps:        Apps{ActiveByAppSec: map[string]int64{"Chrome": 3, "Code": 1}, SessionCount: 1, SessionDurationSec: 4},
		WindowStart: ts("2025-09-16T08:27:26Z"),
		WindowEnd:   ts("2025-09-16T08:27:30Z"),
	})
	s.Apply(&Payload{
		AppVersion:  "treko-desktop/0.2",
		Stats:       Stats{ActiveSec: 2, EffectiveSec: 2, RecordedSec: 2},
		Apps:        Apps{ActiveByAppSec: map[string]int64{"Chrome": 2}, SessionCount: 1, SessionDurationSec: 2},
		WindowStart: ts("2025-09-16T08:00:00Z"),
		WindowEnd:   ts("2025-09-16T08:10:00Z"),
	})

	assert.Equal(t, "treko-desktop/0.2", s.AppVersion)
	assert.Nil(t, s.ProjectID, "project follows the latest chunk")
	assert.Equal(t, int64(5), s.ActiveSec)
	assert.Equal(t, int64(6), s.EffectiveSec)
	assert.Equal(t, int64(1), s.IdleSec)
	assert.Equal(t, int64(6), s.RecordedSec)
	assert.Equal(t, int64(6), s.TotalDurationSec)
	assert.Equal(t, 100, s.ActivityLevel)
	assert.Equal(t, 2, s.AppSessionCount)
	assert.Equal(t, int64(6), s.AppSessionDurationSec)
	assert.Equal(t, map[string]int64{"Chrome": 5, "Code": 1}, s.ActiveByAppSec)
	assert.Equal(t, *ts("2025-09-16T08:00:00Z"), *s.WindowStart)
	assert.Equal(t, *ts("2025-09-16T08:27:30Z"), *s.WindowEnd)
}

func TestSessionApply_ActivityLevel(t *testing.T) {
	s := NewSession(uuid.New(), time.Now())

	s.Apply(&Payload{Stats: Stats{ActiveSec: 2, RecordedSec: 3}})
	assert.Equal(t, 67, s.ActivityLevel)

	s.Apply(&Payload{Stats: Stats{ActiveSec: 5}})
	assert.Equal(t, 67, s.ActivityLevel, "unchanged when nothing was recorded")
}

func TestPayloadRows(t *testing.T) {
	project := uuid.New()
	task := uuid.New()
	now := time.Date(2025, 9, 16, 9, 0, 0, 0, time.UTC)

	p := &Payload{
		ProjectID: &project,
		ChunkID:   "chunk-1",
		Apps:      Apps{ActiveByAppSec: map[string]int64{"Chrome": 90}},
		Tasks:     []TaskStat{{TaskID: &task, RecordedSec: 100, RemainingSec: 43100}},
		Screenshots: []Media{
			{URL: "https://b.s3.amazonaws.com/s1.png", WindowTitle: "Inbox", Timestamp: ts("2025-09-16T08:30:00Z")},
			{URL: "https://b.s3.amazonaws.com/s2.png"},
		},
		Headshots: []Media{{URL: "https://b.s3.amazonaws.com/h1.jpg"}},
	}

	apps := p.AppUsages(7)
	require.Len(t, apps, 1)
	assert.Equal(t, AppUsage{SessionID: 7, AppName: "Chrome", Seconds: 90, Minutes: 1.5, ChunkID: "chunk-1"}, apps[0])

	tasks := p.TaskUsages(7)
	require.Len(t, tasks, 1)
	assert.Equal(t, &project, tasks[0].ProjectID)
	assert.Equal(t, 1.67, tasks[0].Minutes)
	assert.Equal(t, int64(43100), tasks[0].RemainingSec)

	shots := p.ScreenshotRows(7, now)
	require.Len(t, shots, 2)
	assert.Equal(t, "Inbox", shots[0].WindowTitle)
	assert.Equal(t, now, shots[1].TakenAt)

	heads := p.HeadshotRows(7, now)
	require.Len(t, heads, 1)
	assert.Equal(t, "active", heads[0].Status)
	assert.Equal(t, StatusPending, heads[0].VerificationStatus)
}

func TestAggregateStatus(t *testing.T) {
	h := func(s VerificationStatus) Headshot { return Headshot{VerificationStatus: s} }

	assert.Equal(t, StatusPending, AggregateStatus(nil))
	assert.Equal(t, StatusVerified, AggregateStatus([]Headshot{h(StatusVerified), h(StatusVerified)}))
	assert.Equal(t, StatusPending, AggregateStatus([]Headshot{h(StatusVerified), h(StatusPending)}))
	assert.Equal(t, StatusSuspicious, AggregateStatus([]Headshot{h(StatusPending), h(StatusSuspicious)}))
	assert.Equal(t, StatusPending, AggregateStatus([]Headshot{h("")}))
}
