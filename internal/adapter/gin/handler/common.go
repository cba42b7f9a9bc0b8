package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"treko/internal/adapter/gin/middleware"
	pagination "treko/internal/domain"
	"treko/pkg/auth"
	apperrors "treko/pkg/errors"
	"treko/pkg/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is returned by endpoints that have nothing else to say.
type MessageResponse struct {
	Message string `json:"message"`
}

// respondError converts usecase errors to appropriate HTTP responses
func respondError(c *gin.Context, log *zap.Logger, op string, err error) {
	status := apperrors.StatusCode(err)
	l := logger.WithContext(c.Request.Context(), log)

	msg := apperrors.PublicMessage(err)
	if status >= http.StatusInternalServerError {
		l.Error(op+" failed", zap.Error(err))
		var internal *apperrors.InternalError
		if !errors.As(err, &internal) {
			msg = "An internal error occurred"
		}
	} else {
		l.Warn(op+" rejected", zap.Int("status", status), zap.Error(err))
	}

	c.JSON(status, ErrorResponse{Error: string(apperrors.KindOf(err)), Message: msg})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: code, Message: message})
}

// bindJSON decodes the body or answers 400 itself.
func bindJSON(c *gin.Context, log *zap.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.WithContext(c.Request.Context(), log).Warn("invalid request body",
			zap.String("path", c.FullPath()), zap.Error(err))
		badRequest(c, "validation_error", "request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// actor returns the authenticated caller. Routes using it sit behind Authenticate.
func actor(c *gin.Context) auth.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "invalid_id", name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid_id", name+" must be a positive number")
		return 0, false
	}
	return id, true
}

// pageParams reads page and limit from the query string, clamping bad values.
func pageParams(c *gin.Context) (int64, int64) {
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil {
		page = 1
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	if err != nil {
		limit = pagination.DefaultPageSize
	}
	return pagination.NormalizePage(page, limit)
}
