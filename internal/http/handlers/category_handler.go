package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winnipeg-connect/backend/internal/http/handlers/common"
	"github.com/winnipeg-connect/backend/internal/service"
)

type CategoryHandler struct {
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// Tree GET /categories
func (h *CategoryHandler) Tree(c *gin.Context) {
	tree, err := h.categories.Tree(c.Request.Context())
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": tree})
}

// GetBySlug GET /categories/:slug
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		common.RespondBadRequest(c, "slug is required")
		return
	}

	category, err := h.categories.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, category)
}

// ListChildren GET /categories/:slug/children
func (h *CategoryHandler) ListChildren(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		common.RespondBadRequest(c, "slug is required")
		return
	}

	category, err := h.categories.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	children, err := h.categories.ListChildren(c.Request.Context(), category.ID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"children": children})
}
