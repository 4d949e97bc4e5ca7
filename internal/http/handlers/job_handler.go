package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/domain/valueobject"
	"github.com/winnipeg-connect/backend/internal/http/handlers/common"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/repository"
	"github.com/winnipeg-connect/backend/internal/service"
)

type JobHandler struct {
	jobs *service.JobService
}

func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type jobRequest struct {
	CategoryID   *uuid.UUID `json:"category_id"`
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description" binding:"required"`
	BudgetType   string     `json:"budget_type" binding:"required"`
	BudgetAmount *float64   `json:"budget_amount"`
	BudgetMin    *float64   `json:"budget_min"`
	BudgetMax    *float64   `json:"budget_max"`
	Timeline     *string    `json:"timeline"`
	Location     *string    `json:"location"`
	Priority     string     `json:"priority"`
	Requirements []struct {
		Skill string `json:"skill" binding:"required"`
		Level string `json:"level"`
	} `json:"requirements"`
}

func (r *jobRequest) requirements() []models.JobRequirement {
	out := make([]models.JobRequirement, 0, len(r.Requirements))
	for _, req := range r.Requirements {
		out = append(out, models.JobRequirement{Skill: req.Skill, Level: req.Level})
	}
	return out
}

// Create POST /jobs
func (h *JobHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.Create(c.Request.Context(), service.CreateJobInput{
		PostedBy:     userID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		BudgetType:   req.BudgetType,
		BudgetAmount: req.BudgetAmount,
		BudgetMin:    req.BudgetMin,
		BudgetMax:    req.BudgetMax,
		Timeline:     req.Timeline,
		Location:     req.Location,
		Priority:     req.Priority,
		Requirements: req.requirements(),
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// Get GET /jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// List GET /jobs
func (h *JobHandler) List(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	params := repository.JobListParams{
		Status:   c.Query("status"),
		Location: c.Query("location"),
		Search:   c.Query("search"),
		Priority: c.Query("priority"),
		Limit:    limit,
		Offset:   offset,
	}
	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := uuid.Parse(raw)
		if err != nil {
			common.RespondBadRequest(c, "category_id must be a valid UUID")
			return
		}
		params.CategoryID = &categoryID
	}

	result, err := h.jobs.List(c.Request.Context(), params)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMine GET /jobs/my
func (h *JobHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	posted, working, err := h.jobs.ListMine(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"posted": posted, "working": working})
}

// Update PUT /jobs/:id
func (h *JobHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.Update(c.Request.Context(), service.UpdateJobInput{
		JobID:        jobID,
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		BudgetAmount: req.BudgetAmount,
		BudgetMin:    req.BudgetMin,
		BudgetMax:    req.BudgetMax,
		Timeline:     req.Timeline,
		Location:     req.Location,
		Priority:     req.Priority,
		Requirements: req.requirements(),
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// Delete DELETE /jobs/:id
func (h *JobHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.jobs.Delete(c.Request.Context(), jobID, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "job deleted", nil)
}

// UpdateStatus PUT /jobs/:id/status
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "status is required")
		return
	}

	status, err := valueobject.NewJobStatus(req.Status)
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.Transition(c.Request.Context(), jobID, userID, status)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}
