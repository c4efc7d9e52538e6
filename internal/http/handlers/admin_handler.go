package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/dto"
	"github.com/ignatzorin/jobconnect-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

// SweepQueue ставит проверку в очередь фонового воркера.
type SweepQueue interface {
	Enqueue(sweep string) (string, error)
}

// AdminHandler - действия поддержки: споры, помощь, настройки платформы и ручной запуск проверок.
type AdminHandler struct {
	jobs     *service.JobService
	settings *service.SettingsProvider
	sweeps   SweepQueue
}

// NewAdminHandler создаёт новый хэндлер.
func NewAdminHandler(jobs *service.JobService, settings *service.SettingsProvider, sweeps SweepQueue) *AdminHandler {
	return &AdminHandler{jobs: jobs, settings: settings, sweeps: sweeps}
}

// ResolveDispute обрабатывает POST /admin/jobs/:id/dispute/resolve.
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	var req dto.ResolveDisputeRequest
	if !bind(c, &req) {
		return
	}
	jobs := &JobHandler{jobs: h.jobs}
	jobs.run(c, func(ctx context.Context, jobID, adminID uuid.UUID) (*models.Job, error) {
		return h.jobs.ResolveDispute(ctx, jobID, adminID, req.Resolution, req.Rating)
	})
}

// ResolveAssistance обрабатывает POST /admin/jobs/:id/assistance/resolve.
func (h *AdminHandler) ResolveAssistance(c *gin.Context) {
	jobs := &JobHandler{jobs: h.jobs}
	jobs.run(c, h.jobs.ResolveAssistance)
}

// GetSettings обрабатывает GET /admin/settings.
func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Current(c.Request.Context()))
}

// UpdateSettings обрабатывает PUT /admin/settings.
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req models.PlatformSettings
	if !bind(c, &req) {
		return
	}

	saved, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// RunSweep обрабатывает POST /admin/sweeps/:name: ставит проверку в очередь вне расписания.
func (h *AdminHandler) RunSweep(c *gin.Context) {
	name := c.Param("name")
	if !knownSweep(name) {
		common.RespondBadRequest(c, "неизвестная проверка: "+name)
		return
	}

	taskID, err := h.sweeps.Enqueue(name)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.SweepEnqueuedResponse{Sweep: name, TaskID: taskID})
}

func knownSweep(name string) bool {
	for _, s := range service.SweepNames {
		if s == name {
			return true
		}
	}
	return false
}
