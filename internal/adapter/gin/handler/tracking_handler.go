package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"treko/internal/usecase/tracking"
	"treko/pkg/logger"
)

// TrackingHandler receives desktop payloads and serves tracking sessions.
//
// Routes under /api/tracking-sessions/:id take a user id for today and history
// and a session id for everything else.
type TrackingHandler struct {
	uc  tracking.Usecase
	log *zap.Logger
}

// NewTrackingHandler creates a new TrackingHandler instance
func NewTrackingHandler(uc tracking.Usecase, log *zap.Logger) *TrackingHandler {
	return &TrackingHandler{uc: uc, log: log}
}

// Ingest handles POST /api/payload
func (h *TrackingHandler) Ingest(c *gin.Context) {
	var req tracking.PayloadRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	resp, err := h.uc.Ingest(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, "Ingest", err)
		return
	}

	logger.WithContext(c.Request.Context(), h.log).Debug("payload ingested",
		zap.Int64("session_id", resp.SessionID),
		zap.String("chunk_id", req.ChunkID),
	)
	c.JSON(http.StatusOK, resp)
}

// Today handles GET /api/tracking-sessions/:id/today
func (h *TrackingHandler) Today(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.uc.Today(c.Request.Context(), actor(c), userID)
	if err != nil {
		respondError(c, h.log, "Today", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History handles GET /api/tracking-sessions/:id/history
func (h *TrackingHandler) History(c *gin.Context) {
	userID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	page, limit := pageParams(c)

	resp, err := h.uc.History(c.Request.Context(), actor(c), userID, page, limit)
	if err != nil {
		respondError(c, h.log, "History", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Apps handles GET /api/tracking-sessions/:id/apps
func (h *TrackingHandler) Apps(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	rows, err := h.uc.Apps(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, "Apps", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "apps": rows})
}

// Screenshots handles GET /api/tracking-sessions/:id/screenshots
func (h *TrackingHandler) Screenshots(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	rows, err := h.uc.Screenshots(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, "Screenshots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "screenshots": rows})
}

// Headshots handles GET /api/tracking-sessions/:id/headshots
func (h *TrackingHandler) Headshots(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	rows, err := h.uc.Headshots(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, "Headshots", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "headshots": rows})
}

// Tasks handles GET /api/tracking-sessions/:id/tasks
func (h *TrackingHandler) Tasks(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	rows, err := h.uc.Tasks(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, "Tasks", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "tasks": rows})
}
