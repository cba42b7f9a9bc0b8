package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"treko/internal/usecase/project"
)

// ProjectHandler handles project and task endpoints
type ProjectHandler struct {
	uc  project.Usecase
	log *zap.Logger
}

// NewProjectHandler creates a new ProjectHandler instance
func NewProjectHandler(uc project.Usecase, log *zap.Logger) *ProjectHandler {
	return &ProjectHandler{uc: uc, log: log}
}

// CreateProject handles POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req project.CreateProjectRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	resp, err := h.uc.CreateProject(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, "CreateProject", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.uc.GetProject(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, "GetProject", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListProjects handles GET /api/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, limit := pageParams(c)
	req := project.ListProjectsRequest{
		Query:  c.DefaultQuery("query", ""),
		Status: c.DefaultQuery("status", ""),
		Page:   page,
		Limit:  limit,
	}

	resp, err := h.uc.ListProjects(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, "ListProjects", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateProject handles PATCH /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req project.UpdateProjectRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	resp, err := h.uc.UpdateProject(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, h.log, "UpdateProject", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteProject handles DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.uc.DeleteProject(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, h.log, "DeleteProject", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateTask handles POST /api/tasks
func (h *ProjectHandler) CreateTask(c *gin.Context) {
	var req project.CreateTaskRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	resp, err := h.uc.CreateTask(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, "CreateTask", err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetTask handles GET /api/tasks/:id
func (h *ProjectHandler) GetTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.uc.GetTask(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, "GetTask", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListTasks handles GET /api/tasks?project_id=...
func (h *ProjectHandler) ListTasks(c *gin.Context) {
	page, limit := pageParams(c)
	req := project.ListTasksRequest{
		ProjectID:  c.Query("project_id"),
		Status:     c.Query("status"),
		AssigneeID: c.Query("assignee_id"),
		Page:       page,
		Limit:      limit,
	}

	resp, err := h.uc.ListTasks(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, h.log, "ListTasks", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateTask handles PATCH /api/tasks/:id
func (h *ProjectHandler) UpdateTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req project.UpdateTaskRequest
	if !bindJSON(c, h.log, &req) {
		return
	}

	resp, err := h.uc.UpdateTask(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, h.log, "UpdateTask", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *ProjectHandler) DeleteTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.uc.DeleteTask(c.Request.Context(), actor(c), id); err != nil {
		respondError(c, h.log, "DeleteTask", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TimeSpent handles GET /api/tasks/:id/time-spent
func (h *ProjectHandler) TimeSpent(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.uc.TimeSpent(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, h.log, "TimeSpent", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
