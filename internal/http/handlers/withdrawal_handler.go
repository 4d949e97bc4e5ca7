package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/winnipeg-connect/backend/internal/http/handlers/common"
	"github.com/winnipeg-connect/backend/internal/models"
	"github.com/winnipeg-connect/backend/internal/service"
)

type WithdrawalHandler struct {
	withdrawals *service.WithdrawalService
}

func NewWithdrawalHandler(withdrawals *service.WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals}
}

// Create POST /withdrawals
func (h *WithdrawalHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req struct {
		Amount       float64 `json:"amount" binding:"required,gt=0"`
		AccountLast4 string  `json:"account_last4" binding:"required"`
		BankName     string  `json:"bank_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	withdrawal, err := h.withdrawals.Create(c.Request.Context(), userID, req.Amount, req.AccountLast4, req.BankName)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, withdrawal)
}

// Get GET /withdrawals/:id
func (h *WithdrawalHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	withdrawal, err := h.withdrawals.Get(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, withdrawal)
}

// ListMine GET /withdrawals/my
func (h *WithdrawalHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	limit, offset := common.GetPagination(c)
	withdrawals, err := h.withdrawals.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}

// Complete PUT /withdrawals/:id/complete (admin only)
func (h *WithdrawalHandler) Complete(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.withdrawals.Complete(c.Request.Context(), id); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "withdrawal completed", nil)
}

// Reject PUT /withdrawals/:id/reject (admin only)
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}

	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, "reason is required")
		return
	}

	if err := h.withdrawals.Reject(c.Request.Context(), id, req.Reason); err != nil {
		common.RespondAppError(c, err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "withdrawal rejected", nil)
}

func (h *WithdrawalHandler) requireAdmin(c *gin.Context) bool {
	role, err := common.CurrentUserRole(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return false
	}
	if role != models.RoleAdmin {
		common.RespondForbidden(c, "")
		return false
	}
	return true
}
