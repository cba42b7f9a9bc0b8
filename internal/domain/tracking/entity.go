package tracking

import (
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the outcome of headshot verification.
type VerificationStatus string

const (
	StatusPending    VerificationStatus = "PENDING"
	StatusVerified   VerificationStatus = "VERIFIED"
	StatusSuspicious VerificationStatus = "SUSPICIOUS"
)

// VerifiedBySystem marks headshots verified by the background job.
const VerifiedBySystem = "system"

// Session aggregates one employee's tracked activity for one UTC day.
type Session struct {
	ID                    int64
	UserID                uuid.UUID
	Date                  time.Time
	AppVersion            string
	ProjectID             *uuid.UUID
	ActiveSec             int64
	EffectiveSec          int64
	IdleSec               int64
	OvertimeSec           int64
	RecordedSec           int64
	ActivityLevel         int
	WindowStart           *time.Time
	WindowEnd             *time.Time
	AppSessionCount       int
	AppSessionDurationSec int64
	ActiveByAppSec        map[string]int64
	TotalDurationSec      int64
	VerificationStatus    VerificationStatus
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AppUsage is the time spent in one application within one payload chunk.
type AppUsage struct {
	ID        int64
	SessionID int64
	AppName   string
	Seconds   int64
	Minutes   float64
	ChunkID   string
	CreatedAt time.Time
}

// TaskUsage is the time booked against one task within one payload chunk.
type TaskUsage struct {
	ID             int64
	SessionID      int64
	TaskID         *uuid.UUID
	ProjectID      *uuid.UUID
	EffectiveSec   int64
	OvertimeSec    int64
	RecordedSec    int64
	RemainingSec   int64
	TotalTaskSec   int64
	TotalWorkedSec int64
	Minutes        float64
	ChunkID        string
	CreatedAt      time.Time
}

// Screenshot is a captured screen image reference.
type Screenshot struct {
	ID          int64
	SessionID   int64
	URL         string
	WindowTitle string
	TakenAt     time.Time
	CreatedAt   time.Time
}

// Headshot is a captured webcam image awaiting verification.
type Headshot struct {
	ID                 int64
	SessionID          int64
	URL                string
	Status             string
	VerificationStatus VerificationStatus
	Confidence         float64
	VerifiedBy         string
	VerifiedAt         *time.Time
	TakenAt            time.Time
	CreatedAt          time.Time
}

// DayOf truncates t to its UTC calendar date.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AggregateStatus derives a session's status from its headshots:
// any suspicious headshot wins, then all verified, otherwise pending.
func AggregateStatus(headshots []Headshot) VerificationStatus {
	if len(headshots) == 0 {
		return StatusPending
	}

	pending := 0
	for _, h := range headshots {
		switch h.VerificationStatus {
		case StatusSuspicious:
			return StatusSuspicious
		case StatusVerified:
		default:
			pending++
		}
	}
	if pending == 0 {
		return StatusVerified
	}
	return StatusPending
}
