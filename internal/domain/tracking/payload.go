package tracking

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Payload is one chunk of activity uploaded by the desktop client.
type Payload struct {
	UserID      uuid.UUID
	AppVersion  string
	ProjectID   *uuid.UUID
	ChunkID     string
	IsPartial   bool
	GeneratedAt *time.Time
	Stats       Stats
	Apps        Apps
	Tasks       []TaskStat
	Screenshots []Media
	Headshots   []Media
	WindowStart *time.Time
	WindowEnd   *time.Time
}

// Stats are the chunk's time counters in seconds.
type Stats struct {
	ActiveSec    int64
	EffectiveSec int64
	IdleSec      int64
	OvertimeSec  int64
	RecordedSec  int64
}

// Apps summarises application usage for the chunk.
type Apps struct {
	ActiveByAppSec     map[string]int64
	SessionCount       int
	SessionDurationSec int64
}

// TaskStat is the time booked against one task in the chunk.
type TaskStat struct {
	TaskID         *uuid.UUID
	EffectiveSec   int64
	OvertimeSec    int64
	RecordedSec    int64
	RemainingSec   int64
	TotalTaskSec   int64
	TotalWorkedSec int64
}

// Media references an uploaded screenshot or headshot.
type Media struct {
	URL         string
	WindowTitle string
	Status      string
	Timestamp   *time.Time
}

// NewSession starts an empty session for userID on day.
func NewSession(userID uuid.UUID, day time.Time) *Session {
	return &Session{
		UserID:             userID,
		Date:               DayOf(day),
		ActiveByAppSec:     map[string]int64{},
		VerificationStatus: StatusPending,
	}
}

// Apply folds a payload chunk into the session.
// App version and project always follow the latest chunk. The activity level
// reflects the latest chunk only and is left alone when it recorded nothing.
func (s *Session) Apply(p *Payload) {
	s.AppVersion = p.AppVersion
	s.ProjectID = p.ProjectID

	s.ActiveSec += p.Stats.ActiveSec
	s.EffectiveSec += p.Stats.EffectiveSec
	s.IdleSec += p.Stats.IdleSec
	s.OvertimeSec += p.Stats.OvertimeSec
	s.RecordedSec += p.Stats.RecordedSec

	if p.Stats.RecordedSec > 0 {
		s.ActivityLevel = int(math.Round(float64(p.Stats.ActiveSec) / float64(p.Stats.RecordedSec) * 100))
	}

	if p.WindowStart != nil && (s.WindowStart == nil || p.WindowStart.Before(*s.WindowStart)) {
		start := *p.WindowStart
		s.WindowStart = &start
	}
	if p.WindowEnd != nil && (s.WindowEnd == nil || p.WindowEnd.After(*s.WindowEnd)) {
		end := *p.WindowEnd
		s.WindowEnd = &end
	}

	s.AppSessionCount += p.Apps.SessionCount
	s.AppSessionDurationSec += p.Apps.SessionDurationSec

	if s.ActiveByAppSec == nil {
		s.ActiveByAppSec = make(map[string]int64, len(p.Apps.ActiveByAppSec))
	}
	for app, sec := range p.Apps.ActiveByAppSec {
		s.ActiveByAppSec[app] += sec
	}

	s.TotalDurationSec += p.Stats.RecordedSec
}

// AppUsages builds the per-app rows for this chunk.
func (p *Payload) AppUsages(sessionID int64) []AppUsage {
	rows := make([]AppUsage, 0, len(p.Apps.ActiveByAppSec))
	for app, sec := range p.Apps.ActiveByAppSec {
		rows = append(rows, AppUsage{
			SessionID: sessionID,
			AppName:   app,
			Seconds:   sec,
			Minutes:   Minutes(sec),
			ChunkID:   p.ChunkID,
		})
	}
	return rows
}

// TaskUsages builds the per-task rows for this chunk. Every row carries the chunk's project.
func (p *Payload) TaskUsages(sessionID int64) []TaskUsage {
	rows := make([]TaskUsage, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		rows = append(rows, TaskUsage{
			SessionID:      sessionID,
			TaskID:         t.TaskID,
			ProjectID:      p.ProjectID,
			EffectiveSec:   t.EffectiveSec,
			OvertimeSec:    t.OvertimeSec,
			RecordedSec:    t.RecordedSec,
			RemainingSec:   t.RemainingSec,
			TotalTaskSec:   t.TotalTaskSec,
			TotalWorkedSec: t.TotalWorkedSec,
			Minutes:        Minutes(t.RecordedSec),
			ChunkID:        p.ChunkID,
		})
	}
	return rows
}

// ScreenshotRows builds screenshot rows; missing timestamps default to now.
func (p *Payload) ScreenshotRows(sessionID int64, now time.Time) []Screenshot {
	rows := make([]Screenshot, 0, len(p.Screenshots))
	for _, m := range p.Screenshots {
		rows = append(rows, Screenshot{
			SessionID:   sessionID,
			URL:         m.URL,
			WindowTitle: m.WindowTitle,
			TakenAt:     timestampOr(m.Timestamp, now),
		})
	}
	return rows
}

// HeadshotRows builds pending headshot rows; missing status defaults to "active".
func (p *Payload) HeadshotRows(sessionID int64, now time.Time) []Headshot {
	rows := make([]Headshot, 0, len(p.Headshots))
	for _, m := range p.Headshots {
		status := m.Status
		if status == "" {
			status = "active"
		}
		rows = append(rows, Headshot{
			SessionID:          sessionID,
			URL:                m.URL,
			Status:             status,
			VerificationStatus: StatusPending,
			TakenAt:            timestampOr(m.Timestamp, now),
		})
	}
	return rows
}

// Minutes converts seconds to minutes rounded to two decimals.
func Minutes(seconds int64) float64 {
	return math.Round(float64(seconds)/60*100) / 100
}

func timestampOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil {
		return fallback
	}
	return *t
}
