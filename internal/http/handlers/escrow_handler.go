package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/jobconnect-backend/internal/dto"
	"github.com/ignatzorin/jobconnect-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

// EscrowHandler отдаёт журнал escrow и принимает подтверждения дополнительных оплат.
type EscrowHandler struct {
	escrow *service.EscrowService
}

// NewEscrowHandler создаёт новый хэндлер.
func NewEscrowHandler(escrow *service.EscrowService) *EscrowHandler {
	return &EscrowHandler{escrow: escrow}
}

// ListForJob обрабатывает GET /jobs/:id/escrow.
func (h *EscrowHandler) ListForJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}
	jobID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор заказа")
		return
	}

	txns, summary, err := h.escrow.ListForJob(c.Request.Context(), jobID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.EscrowListResponse{Transactions: txns, Summary: summary})
}

// ConfirmAddOn обрабатывает POST /admin/escrow/:txnId/confirm (колбэк шлюза через админку).
func (h *EscrowHandler) ConfirmAddOn(c *gin.Context) {
	txnID, err := common.ParseUUIDParam(c, "txnId")
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор транзакции")
		return
	}
	var req dto.ConfirmAddOnRequest
	if !bind(c, &req) {
		return
	}

	txn, err := h.escrow.ConfirmAddOn(c.Request.Context(), txnID, req.GatewayOrderID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// FailAddOn обрабатывает POST /admin/escrow/:txnId/fail.
func (h *EscrowHandler) FailAddOn(c *gin.Context) {
	txnID, err := common.ParseUUIDParam(c, "txnId")
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор транзакции")
		return
	}

	txn, err := h.escrow.FailAddOn(c.Request.Context(), txnID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}
