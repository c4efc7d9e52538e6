package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/jobconnect-backend/internal/dto"
	"github.com/ignatzorin/jobconnect-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/trigger"
)

// EventHandler принимает изменения заказа, записанные в обход сервиса
// (миграции данных, ручные правки поддержки), и прогоняет их через обработчики.
type EventHandler struct {
	ingestor *trigger.Ingestor
}

// NewEventHandler создаёт новый хэндлер.
func NewEventHandler(ingestor *trigger.Ingestor) *EventHandler {
	return &EventHandler{ingestor: ingestor}
}

// IngestJobChange обрабатывает POST /events/jobs.
func (h *EventHandler) IngestJobChange(c *gin.Context) {
	var req dto.JobEventRequest
	if !bind(c, &req) {
		return
	}
	if err := req.After.Validate(); err != nil {
		common.RespondBadRequest(c, "некорректный снимок заказа после изменения")
		return
	}
	if req.Before != nil {
		if err := req.Before.Validate(); err != nil {
			common.RespondBadRequest(c, "некорректный снимок заказа до изменения")
			return
		}
		if req.Before.ID != req.After.ID {
			common.RespondBadRequest(c, "снимки относятся к разным заказам")
			return
		}
		if req.Before.Status != req.After.Status && !req.Before.Status.CanTransitionTo(req.After.Status) {
			common.RespondBadRequest(c, "недопустимый переход статуса заказа")
			return
		}
	}

	processed := h.ingestor.Ingest(c.Request.Context(), req.EventID, models.JobChange{
		Before: req.Before,
		After:  req.After,
		Actor:  req.ActorID,
	})
	c.JSON(http.StatusAccepted, dto.EventAcceptedResponse{EventID: req.EventID, Duplicate: !processed})
}
