package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/winnipeg-connect/backend/internal/http/handlers/common"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/service"
)

type QuoteHandler struct {
	quotes *service.QuoteService
}

func NewQuoteHandler(quotes *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// Submit POST /quotes
func (h *QuoteHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		JobID             uuid.UUID  `json:"job_id" binding:"required"`
		Amount            float64    `json:"amount" binding:"required,gt=0"`
		PriceType         string     `json:"price_type" binding:"required"`
		Message           string     `json:"message"`
		EstimatedDuration *string    `json:"estimated_duration"`
		ProposedStartDate *time.Time `json:"proposed_start_date"`
		SuppliesIncluded  bool       `json:"supplies_included"`
		WarrantyTerms     *string    `json:"warranty_terms"`
		DepositRequired   bool       `json:"deposit_required"`
		Items             []struct {
			Description string  `json:"description" binding:"required"`
			Amount      float64 `json:"amount" binding:"required"`
		} `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	items := make([]models.QuoteItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.QuoteItem{Description: item.Description, Amount: item.Amount})
	}

	quote, err := h.quotes.Submit(c.Request.Context(), service.SubmitQuoteInput{
		JobID:             req.JobID,
		ProviderID:        userID,
		Amount:            req.Amount,
		PriceType:         req.PriceType,
		Message:           req.Message,
		EstimatedDuration: req.EstimatedDuration,
		ProposedStartDate: req.ProposedStartDate,
		SuppliesIncluded:  req.SuppliesIncluded,
		WarrantyTerms:     req.WarrantyTerms,
		DepositRequired:   req.DepositRequired,
		Items:             items,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quote)
}

// Get GET /quotes/:id
func (h *QuoteHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	quoteID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	quote, err := h.quotes.Get(c.Request.Context(), quoteID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// ListForJob GET /jobs/:id/quotes
func (h *QuoteHandler) ListForJob(c *gin.Context) {
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

	quotes, err := h.quotes.ListForJob(c.Request.Context(), jobID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// ListMine GET /quotes/my
func (h *QuoteHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	quotes, err := h.quotes.ListMine(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

// Accept PUT /quotes/:id/accept
func (h *QuoteHandler) Accept(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	quoteID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	quote, err := h.quotes.Get(c.Request.Context(), quoteID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	accepted, err := h.quotes.Accept(c.Request.Context(), quote.JobID, quoteID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, accepted)
}

// Reject PUT /quotes/:id/reject
func (h *QuoteHandler) Reject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	quoteID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	rejected, err := h.quotes.Reject(c.Request.Context(), quoteID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, rejected)
}

// Withdraw DELETE /quotes/:id
func (h *QuoteHandler) Withdraw(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	quoteID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	withdrawn, err := h.quotes.Withdraw(c.Request.Context(), quoteID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawn)
}
