package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	pagination "treko/internal/domain"
	"treko/internal/usecase/tracking"
	pkgerrors "treko/pkg/errors"
)

func setupTrackingTest(t *testing.T) (*gin.Engine, *MockTrackingUsecase) {
	gin.SetMode(gin.TestMode)
	mockUsecase := new(MockTrackingUsecase)
	h := NewTrackingHandler(mockUsecase, zaptest.NewLogger(t))

	r := gin.New()
	r.Use(withActor(testActor))
	r.POST("/api/payload", h.Ingest)
	sessions := r.Group("/api/tracking-sessions/:id")
	sessions.GET("/today", h.Today)
	sessions.GET("/history", h.History)
	sessions.GET("/apps", h.Apps)
	sessions.GET("/screenshots", h.Screenshots)
	sessions.GET("/headshots", h.Headshots)
	sessions.GET("/tasks", h.Tasks)
	return r, mockUsecase
}

const samplePayload = `{
	"user_id": "8d3c4a51-3a2f-4f0c-9a83-5ef3f4f8a101",
	"app_version": "2.4.0",
	"chunk_id": "c-17",
	"stats": {"active_sec": 540, "recorded_sec": 600},
	"apps": {"active_by_app_sec": {"Code": 400, "Slack": 140}},
	"media": {
		"screenshots": ["https://shots.s3.amazonaws.com/a.png"],
		"headshots": [{"url": "https://heads.s3.amazonaws.com/h.jpg", "status": "captured"}]
	}
}`

func TestIngest(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTrackingTest(t)

		mockUsecase.On("Ingest", mock.Anything, testActor, mock.MatchedBy(func(in tracking.PayloadRequest) bool {
			return in.UserID == testActor.UserID &&
				in.Stats.RecordedSec == 600 &&
				in.Apps.ActiveByAppSec["Code"] == 400 &&
				len(in.Media.Screenshots) == 1 &&
				in.Media.Screenshots[0].URL == "https://shots.s3.amazonaws.com/a.png" &&
				in.Media.Headshots[0].Status == "captured"
		})).Return(&tracking.IngestResponse{Message: "payload processed", SessionID: 7}, nil)

		w := doJSON(r, http.MethodPost, "/api/payload", samplePayload)
		require.Equal(t, http.StatusOK, w.Code)

		var resp tracking.IngestResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(7), resp.SessionID)
		mockUsecase.AssertExpectations(t)
	})

	t.Run("Missing User", func(t *testing.T) {
		r, mockUsecase := setupTrackingTest(t)
		mockUsecase.On("Ingest", mock.Anything, testActor, mock.Anything).
			Return(nil, pkgerrors.NewValidationError("user_id", "user_id missing"))

		w := doJSON(r, http.MethodPost, "/api/payload", `{"stats": {}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "user_id missing", decodeError(t, w).Message)
	})

	t.Run("Unknown User", func(t *testing.T) {
		r, mockUsecase := setupTrackingTest(t)
		mockUsecase.On("Ingest", mock.Anything, testActor, mock.Anything).
			Return(nil, pkgerrors.NewNotFoundError("user", "user not found"))

		w := doJSON(r, http.MethodPost, "/api/payload", samplePayload)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Malformed Media", func(t *testing.T) {
		r, mockUsecase := setupTrackingTest(t)

		w := doJSON(r, http.MethodPost, "/api/payload", `{"user_id": "x", "media": {"headshots": [42]}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockUsecase.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Store Failure", func(t *testing.T) {
		r, mockUsecase := setupTrackingTest(t)
		mockUsecase.On("Ingest", mock.Anything, testActor, mock.Anything).
			Return(nil, pkgerrors.NewInternalError("failed to save payload", errors.New("deadlock detected")))

		w := doJSON(r, http.MethodPost, "/api/payload", samplePayload)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "deadlock")
	})
}

func TestSessionReads(t *testing.T) {
	userID := uuid.MustParse(testActor.UserID)

	t.Run("Today", func(t *testing.T) {
		r, mockUsecase := setupTrackingTest(t)
		mockUsecase.On("Today", mock.Anything, testActor, userID).
			Return(&tracking.SessionDTO{ID: 3, UserID: userID.String(), Date: "2025-03-04", ActivityLevel: 90}, nil)

		w := doJSON(r, http.MethodGet, "/api/tracking-sessions/"+userID.String()+"/today", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"activity_level":90`)
	})

	t.Run("Today Without Session", func(t *testing.T) {
		r, mockUsecase := setupTrackingTest(t)
		mockUsecase.On("Today", mock.Anything, testActor, userID).
			Return(nil, pkgerrors.NewNotFoundError("session", "no tracking session today"))

		w := doJSON(r, http.MethodGet, "/api/tracking-sessions/"+userID.String()+"/today", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("History", func(t *testing.T) {
		r, mockUsecase := setupTrackingTest(t)
		mockUsecase.On("History", mock.Anything, testActor, userID, int64(2), int64(7)).Return(&tracking.HistoryResponse{
			Sessions:   []tracking.SessionDTO{{ID: 1}},
			Pagination: pagination.NewPagination(8, 2, 7),
		}, nil)

		w := doJSON(r, http.MethodGet, "/api/tracking-sessions/"+userID.String()+"/history?page=2&limit=7", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		mockUsecase.AssertExpectations(t)
	})

	t.Run("User ID Must Be UUID", func(t *testing.T) {
		r, _ := setupTrackingTest(t)
		w := doJSON(r, http.MethodGet, "/api/tracking-sessions/12/today", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSessionChildren(t *testing.T) {
	tests := []struct {
		path   string
		method string
		rows   any
		key    string
	}{
		{"apps", "Apps", []tracking.AppUsageDTO{{AppName: "Code", Seconds: 90, Minutes: 1.5}}, "apps"},
		{"screenshots", "Screenshots", []tracking.ScreenshotDTO{{URL: "https://s/1.png"}}, "screenshots"},
		{"headshots", "Headshots", []tracking.HeadshotDTO{{URL: "https://h/1.jpg", VerificationStatus: "PENDING"}}, "headshots"},
		{"tasks", "Tasks", []tracking.TaskUsageDTO{{RecordedSec: 60, Minutes: 1}}, "tasks"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, mockUsecase := setupTrackingTest(t)
			mockUsecase.On(tt.method, mock.Anything, testActor, int64(11)).Return(tt.rows, nil)

			w := doJSON(r, http.MethodGet, "/api/tracking-sessions/11/"+tt.path, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var body map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.JSONEq(t, "11", string(body["session_id"]))
			assert.Contains(t, body, tt.key)
		})

		t.Run(tt.path+" not found", func(t *testing.T) {
			r, mockUsecase := setupTrackingTest(t)
			mockUsecase.On(tt.method, mock.Anything, testActor, int64(99)).
				Return(nil, pkgerrors.NewNotFoundError("session", "tracking session not found"))

			w := doJSON(r, http.MethodGet, "/api/tracking-sessions/99/"+tt.path, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
		})

		t.Run(tt.path+" bad id", func(t *testing.T) {
			r, _ := setupTrackingTest(t)
			w := doJSON(r, http.MethodGet, "/api/tracking-sessions/abc/"+tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	failing := false
	h := NewHealthHandler("treko", map[string]Check{
		"database": func(ctx context.Context) error {
			if failing {
				return errors.New("connection refused")
			}
			return nil
		},
		"redis": func(ctx context.Context) error { return nil },
	}, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)

	w := doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")

	w = doJSON(r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	failing = true
	w = doJSON(r, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), `"redis":"ok"`)

	w = doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, "liveness ignores dependencies")
}
