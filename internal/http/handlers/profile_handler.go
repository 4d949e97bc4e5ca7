package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/http/handlers/common"
	"github.com/winnipeg-connect/backend/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetMe GET /profile
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	profile, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateMe PUT /profile
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		DisplayName string     `json:"display_name" binding:"required"`
		Bio         *string    `json:"bio"`
		HourlyRate  *float64   `json:"hourly_rate"`
		Skills      []string   `json:"skills"`
		Location    *string    `json:"location"`
		PhotoID     *uuid.UUID `json:"photo_id"`
		Phone       *string    `json:"phone"`
		Website     *string    `json:"website"`
		CompanyName *string    `json:"company_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), service.UpdateProfileInput{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		HourlyRate:  req.HourlyRate,
		Skills:      req.Skills,
		Location:    req.Location,
		PhotoID:     req.PhotoID,
		Phone:       req.Phone,
		Website:     req.Website,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetUserProfile GET /users/:id
func (h *ProfileHandler) GetUserProfile(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	profile, err := h.profiles.GetPublic(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// SearchProviders GET /providers/search
func (h *ProfileHandler) SearchProviders(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	profiles, err := h.profiles.SearchProviders(c.Request.Context(),
		c.Query("skill"), c.Query("location"), limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"providers": profiles})
}
