package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"treko/internal/usecase/account"
	"treko/pkg/logger"
)

// AccountHandler handles authentication, user and organization endpoints
type AccountHandler struct {
	uc  account.Usecase
	log *zap.Logger
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(uc account.Usecase, log *zap.Logger) *AccountHandler {
	return &AccountHandler{
		uc:  uc,
		log: log,
	}
}

// Login handles POST /api/auth/login
func (h *AccountHandler) Login(c *gin.Context) {
	var req account.LoginRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	resp, err := h.uc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, "Login", err)
		return
	}

	logger.WithContext(c.Request.Context(), h.log).Info("user logged in", zap.String("user_id", resp.User.ID))
	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /api/auth/refresh
func (h *AccountHandler) Refresh(c *gin.Context) {
	var req account.RefreshRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	tokens, err := h.uc.Refresh(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, "Refresh", err)
		return
	}
	c.JSON(http.StatusOK, tokens)
}

// Signup handles POST /api/auth/signup
func (h *AccountHandler) Signup(c *gin.Context) {
	var req account.SignupRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	user, err := h.uc.Signup(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, "Signup", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// ChangePassword handles POST /api/auth/change-password
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req account.ChangePasswordRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	if err := h.uc.ChangePassword(c.Request.Context(), actor(c), req); err != nil {
		respondError(c, h.log, "ChangePassword", err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

// CreateOrganization handles POST /api/organizations
func (h *AccountHandler) CreateOrganization(c *gin.Context) {
	var req account.CreateOrganizationRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	org, err := h.uc.CreateOrganization(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, "CreateOrganization", err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

// ListOrganizations handles GET /api/organizations
func (h *AccountHandler) ListOrganizations(c *gin.Context) {
	orgs, err := h.uc.ListOrganizations(c.Request.Context(), actor(c))
	if err != nil {
		respondError(c, h.log, "ListOrganizations", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": orgs})
}

// ListUsers handles GET /api/users
func (h *AccountHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	req := account.ListUsersRequest{
		Query: c.DefaultQuery("query", ""),
		Page:  page,
		Limit: limit,
	}

	resp, err := h.uc.ListUsers(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, "ListUsers", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetUser handles GET /api/users/:id
func (h *AccountHandler) GetUser(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	user, err := h.uc.GetUser(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, "GetUser", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
