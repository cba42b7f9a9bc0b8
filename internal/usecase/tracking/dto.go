package tracking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	pagination "treko/internal/domain"
	domain "treko/internal/domain/tracking"
)

// PayloadRequest is the JSON chunk uploaded by the desktop client.
type PayloadRequest struct {
	UserID      string        `json:"user_id" validate:"required,uuid"`
	AppVersion  string        `json:"app_version" validate:"max=64"`
	ProjectID   string        `json:"project_id" validate:"omitempty,uuid"`
	ChunkID     string        `json:"chunk_id" validate:"max=64"`
	ChunkCount  int           `json:"chunk_count"`
	IsPartial   bool          `json:"is_partial"`
	GeneratedAt *time.Time    `json:"generated_at"`
	Stats       StatsPayload  `json:"stats"`
	Apps        AppsPayload   `json:"apps"`
	ByTask      []TaskPayload `json:"by_task" validate:"dive"`
	Media       MediaPayload  `json:"media"`
	Window      WindowPayload `json:"window"`
}

// StatsPayload holds the chunk's counters in seconds.
type StatsPayload struct {
	ActiveSec    int64 `json:"active_sec" validate:"gte=0"`
	EffectiveSec int64 `json:"effective_sec" validate:"gte=0"`
	IdleSec      int64 `json:"idle_sec" validate:"gte=0"`
	OvertimeSec  int64 `json:"overtime_sec" validate:"gte=0"`
	RecordedSec  int64 `json:"recorded_sec" validate:"gte=0"`
}

// AppsPayload summarises application usage.
type AppsPayload struct {
	ActiveByAppSec     map[string]int64 `json:"active_by_app_sec"`
	SessionCount       int              `json:"session_count" validate:"gte=0"`
	SessionDurationSec int64            `json:"session_duration_sec" validate:"gte=0"`
}

// TaskPayload is one entry of by_task.
type TaskPayload struct {
	TaskID               string `json:"task_id" validate:"omitempty,uuid"`
	EffectiveSec         int64  `json:"effective_sec"`
	OvertimeSec          int64  `json:"overtime_sec"`
	RecordedSec          int64  `json:"recorded_sec"`
	RemainingTaskTimeSec int64  `json:"remaining_task_time_sec"`
	TotalTaskTimeSec     int64  `json:"total_task_time_sec"`
	TotalWorkedTimeSec   int64  `json:"total_worked_time_sec"`
}

// MediaPayload lists uploaded images.
type MediaPayload struct {
	Screenshots []MediaItem `json:"screenshots"`
	Headshots   []MediaItem `json:"headshots"`
}

// MediaItem is either a bare URL string or an object with metadata.
type MediaItem struct {
	URL         string     `json:"url"`
	WindowTitle string     `json:"window_title"`
	Status      string     `json:"status"`
	Timestamp   *time.Time `json:"timestamp"`
}

// UnmarshalJSON accepts both "https://..." and {"url": "https://...", ...}.
func (m *MediaItem) UnmarshalJSON(data []byte) error {
	var url string
	if err := json.Unmarshal(data, &url); err == nil {
		*m = MediaItem{URL: url}
		return nil
	}

	type plain MediaItem
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("media item must be a URL or an object: %w", err)
	}
	*m = MediaItem(p)
	return nil
}

// WindowPayload is the time range covered by the chunk.
type WindowPayload struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

// IngestResponse acknowledges a processed payload.
type IngestResponse struct {
	Message   string `json:"message"`
	SessionID int64  `json:"session_id"`
}

// SessionDTO is the public view of a tracking session.
type SessionDTO struct {
	ID                    int64            `json:"id"`
	UserID                string           `json:"user_id"`
	Date                  string           `json:"date"`
	AppVersion            string           `json:"app_version"`
	ProjectID             string           `json:"project_id,omitempty"`
	ActiveSec             int64            `json:"active_sec"`
	EffectiveSec          int64            `json:"effective_sec"`
	IdleSec               int64            `json:"idle_sec"`
	OvertimeSec           int64            `json:"overtime_sec"`
	RecordedSec           int64            `json:"recorded_sec"`
	ActivityLevel         int              `json:"activity_level"`
	WindowStart           *time.Time       `json:"window_start"`
	WindowEnd             *time.Time       `json:"window_end"`
	AppSessionCount       int              `json:"app_session_count"`
	AppSessionDurationSec int64            `json:"app_session_duration_sec"`
	ActiveByAppSec        map[string]int64 `json:"active_by_app_sec"`
	TotalDurationSec      int64            `json:"total_duration"`
	VerificationStatus    string           `json:"verification_status"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// HistoryResponse is a page of sessions, newest first.
type HistoryResponse struct {
	Sessions   []SessionDTO           `json:"sessions"`
	Pagination *pagination.Pagination `json:"pagination"`
}

// AppUsageDTO is one app usage row.
type AppUsageDTO struct {
	ID      int64   `json:"id"`
	AppName string  `json:"app_name"`
	Seconds int64   `json:"seconds"`
	Minutes float64 `json:"minutes"`
	ChunkID string  `json:"chunk_id"`
}

// TaskUsageDTO is one task usage row.
type TaskUsageDTO struct {
	ID                   int64   `json:"id"`
	TaskID               string  `json:"task_id,omitempty"`
	ProjectID            string  `json:"project_id,omitempty"`
	EffectiveSec         int64   `json:"effective_sec"`
	OvertimeSec          int64   `json:"overtime_sec"`
	RecordedSec          int64   `json:"recorded_sec"`
	RemainingTaskTimeSec int64   `json:"remaining_task_time_sec"`
	TotalTaskTimeSec     int64   `json:"total_task_time_sec"`
	TotalWorkedTimeSec   int64   `json:"total_worked_time_sec"`
	Minutes              float64 `json:"minutes"`
	ChunkID              string  `json:"chunk_id"`
}

// ScreenshotDTO is one screenshot row.
type ScreenshotDTO struct {
	ID          int64     `json:"id"`
	URL         string    `json:"url"`
	WindowTitle string    `json:"window_title"`
	Timestamp   time.Time `json:"timestamp"`
}

// HeadshotDTO is one headshot row.
type HeadshotDTO struct {
	ID                 int64      `json:"id"`
	URL                string     `json:"url"`
	Status             string     `json:"status"`
	VerificationStatus string     `json:"verification_status"`
	Confidence         float64    `json:"confidence"`
	VerifiedBy         string     `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
}

// toPayload converts a validated request into the domain payload.
func (in *PayloadRequest) toPayload() *domain.Payload {
	p := &domain.Payload{
		UserID:      uuid.MustParse(in.UserID),
		AppVersion:  in.AppVersion,
		ProjectID:   optionalUUID(in.ProjectID),
		ChunkID:     in.ChunkID,
		IsPartial:   in.IsPartial,
		GeneratedAt: in.GeneratedAt,
		Stats: domain.Stats{
			ActiveSec:    in.Stats.ActiveSec,
			EffectiveSec: in.Stats.EffectiveSec,
			IdleSec:      in.Stats.IdleSec,
			OvertimeSec:  in.Stats.OvertimeSec,
			RecordedSec:  in.Stats.RecordedSec,
		},
		Apps: domain.Apps{
			ActiveByAppSec:     in.Apps.ActiveByAppSec,
			SessionCount:       in.Apps.SessionCount,
			SessionDurationSec: in.Apps.SessionDurationSec,
		},
		WindowStart: in.Window.Start,
		WindowEnd:   in.Window.End,
	}

	for _, t := range in.ByTask {
		p.Tasks = append(p.Tasks, domain.TaskStat{
			TaskID:         optionalUUID(t.TaskID),
			EffectiveSec:   t.EffectiveSec,
			OvertimeSec:    t.OvertimeSec,
			RecordedSec:    t.RecordedSec,
			RemainingSec:   t.RemainingTaskTimeSec,
			TotalTaskSec:   t.TotalTaskTimeSec,
			TotalWorkedSec: t.TotalWorkedTimeSec,
		})
	}
	for _, m := range in.Media.Screenshots {
		p.Screenshots = append(p.Screenshots, toMedia(m))
	}
	for _, m := range in.Media.Headshots {
		p.Headshots = append(p.Headshots, toMedia(m))
	}
	return p
}

func toMedia(m MediaItem) domain.Media {
	return domain.Media{URL: m.URL, WindowTitle: m.WindowTitle, Status: m.Status, Timestamp: m.Timestamp}
}

func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func toSessionDTO(s *domain.Session) SessionDTO {
	byApp := s.ActiveByAppSec
	if byApp == nil {
		byApp = map[string]int64{}
	}
	return SessionDTO{
		ID:                    s.ID,
		UserID:                s.UserID.String(),
		Date:                  s.Date.Format("2006-01-02"),
		AppVersion:            s.AppVersion,
		ProjectID:             uuidString(s.ProjectID),
		ActiveSec:             s.ActiveSec,
		EffectiveSec:          s.EffectiveSec,
		IdleSec:               s.IdleSec,
		OvertimeSec:           s.OvertimeSec,
		RecordedSec:           s.RecordedSec,
		ActivityLevel:         s.ActivityLevel,
		WindowStart:           s.WindowStart,
		WindowEnd:             s.WindowEnd,
		AppSessionCount:       s.AppSessionCount,
		AppSessionDurationSec: s.AppSessionDurationSec,
		ActiveByAppSec:        byApp,
		TotalDurationSec:      s.TotalDurationSec,
		VerificationStatus:    string(s.VerificationStatus),
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func toAppUsageDTO(a *domain.AppUsage) AppUsageDTO {
	return AppUsageDTO{ID: a.ID, AppName: a.AppName, Seconds: a.Seconds, Minutes: a.Minutes, ChunkID: a.ChunkID}
}

func toTaskUsageDTO(t *domain.TaskUsage) TaskUsageDTO {
	return TaskUsageDTO{
		ID:                   t.ID,
		TaskID:               uuidString(t.TaskID),
		ProjectID:            uuidString(t.ProjectID),
		EffectiveSec:         t.EffectiveSec,
		OvertimeSec:          t.OvertimeSec,
		RecordedSec:          t.RecordedSec,
		RemainingTaskTimeSec: t.RemainingSec,
		TotalTaskTimeSec:     t.TotalTaskSec,
		TotalWorkedTimeSec:   t.TotalWorkedSec,
		Minutes:              t.Minutes,
		ChunkID:              t.ChunkID,
	}
}

func toScreenshotDTO(s *domain.Screenshot) ScreenshotDTO {
	return ScreenshotDTO{ID: s.ID, URL: s.URL, WindowTitle: s.WindowTitle, Timestamp: s.TakenAt}
}

func toHeadshotDTO(h *domain.Headshot) HeadshotDTO {
	return HeadshotDTO{
		ID:                 h.ID,
		URL:                h.URL,
		Status:             h.Status,
		VerificationStatus: string(h.VerificationStatus),
		Confidence:         h.Confidence,
		VerifiedBy:         h.VerifiedBy,
		VerifiedAt:         h.VerifiedAt,
		Timestamp:          h.TakenAt,
	}
}
