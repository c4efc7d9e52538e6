package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/jobconnect-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

// InstallerHandler отдаёт репутацию установщиков.
type InstallerHandler struct {
	reputation *service.ReputationService
}

// NewInstallerHandler создаёт новый хэндлер.
func NewInstallerHandler(reputation *service.ReputationService) *InstallerHandler {
	return &InstallerHandler{reputation: reputation}
}

// GetProfile обрабатывает GET /installers/:id/reputation.
func (h *InstallerHandler) GetProfile(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор установщика")
		return
	}

	profile, err := h.reputation.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Verify обрабатывает POST /admin/installers/:id/verify.
func (h *InstallerHandler) Verify(c *gin.Context) {
	userID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, "неверный идентификатор установщика")
		return
	}

	profile, err := h.reputation.VerifyInstaller(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, http.StatusOK, "установщик проверен", profile)
}
