package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/dto"
	"github.com/ignatzorin/jobconnect-backend/internal/http/handlers/common"
	"github.com/ignatzorin/jobconnect-backend/internal/http/middleware"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

// JobHandler обслуживает маршруты жизненного цикла заказа.
type JobHandler struct {
	jobs *service.JobService
}

// NewJobHandler создаёт новый хэндлер.
func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

type jobAction func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error)

// run разбирает пользователя и :id, выполняет действие и отвечает заказом.
func (h *JobHandler) run(c *gin.Context, action jobAction) {
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

	job, err := action(c.Request.Context(), jobID, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// bind читает тело запроса. При ошибке ответ уже отправлен.
func bind(c *gin.Context, req interface{}) bool {
	if err := common.BindAndValidate(c, req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return false
	}
	return true
}

// CreateJob обрабатывает POST /jobs.
func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}
	var req dto.CreateJobRequest
	if !bind(c, &req) {
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), userID, req.Title, req.BiddingDeadline)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// GetJob обрабатывает GET /jobs/:id. Заказ видят только его участники и администратор.
func (h *JobHandler) GetJob(c *gin.Context) {
	role := c.GetString(middleware.ContextRoleKey)
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		job, err := h.jobs.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if role != models.RoleAdmin && !job.IsParticipant(userID) && !job.HasBidFrom(userID) &&
			job.Status != valueobject.JobStatusOpenForBidding {
			return nil, apperror.ErrNotParticipant
		}
		return job, nil
	})
}

// AddBid обрабатывает POST /jobs/:id/bids.
func (h *JobHandler) AddBid(c *gin.Context) {
	var req dto.AddBidRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return h.jobs.AddBid(ctx, jobID, userID, service.BidInput{
			Amount:         req.Amount,
			CoverLetter:    req.CoverLetter,
			WarrantyMonths: req.WarrantyMonths,
			DurationDays:   req.DurationDays,
		})
	})
}

// AddMessage обрабатывает POST /jobs/:id/messages.
func (h *JobHandler) AddMessage(c *gin.Context) {
	var req dto.PrivateMessageRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return h.jobs.AddPrivateMessage(ctx, jobID, userID, req.Content)
	})
}

// Award обрабатывает POST /jobs/:id/award.
func (h *JobHandler) Award(c *gin.Context) {
	var req dto.AwardRequest
	if !bind(c, &req) {
		return
	}
	strategy, err := valueobject.NewAwardStrategy(req.Strategy)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return h.jobs.Award(ctx, jobID, userID, service.AwardInput{
			InstallerIDs: req.InstallerIDs,
			Strategy:     strategy,
		})
	})
}

// AcceptOffer обрабатывает POST /jobs/:id/offer/accept.
func (h *JobHandler) AcceptOffer(c *gin.Context) { h.run(c, h.jobs.AcceptOffer) }

// DeclineOffer обрабатывает POST /jobs/:id/offer/decline.
func (h *JobHandler) DeclineOffer(c *gin.Context) { h.run(c, h.jobs.DeclineOffer) }

// CloseBidding обрабатывает POST /jobs/:id/bidding/close.
func (h *JobHandler) CloseBidding(c *gin.Context) { h.run(c, h.jobs.CloseBidding) }

// ReopenBidding обрабатывает POST /jobs/:id/bidding/reopen.
func (h *JobHandler) ReopenBidding(c *gin.Context) {
	var req dto.ReopenBiddingRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return h.jobs.ReopenBidding(ctx, jobID, userID, req.BiddingDeadline)
	})
}

// Fund обрабатывает POST /jobs/:id/fund. Код начала работ возвращается только здесь.
func (h *JobHandler) Fund(c *gin.Context) {
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
	var req dto.FundRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.jobs.Fund(c.Request.Context(), jobID, userID, req.GatewayOrderID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FundResponse{Job: res.Job, Transaction: res.Transaction, StartOTP: res.StartOTP})
}

// AddFunds обрабатывает POST /jobs/:id/funds.
func (h *JobHandler) AddFunds(c *gin.Context) {
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
	var req dto.AddFundsRequest
	if !bind(c, &req) {
		return
	}

	txn, err := h.jobs.AddFunds(c.Request.Context(), jobID, userID, req.Amount, req.Description)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// StartWork обрабатывает POST /jobs/:id/start.
func (h *JobHandler) StartWork(c *gin.Context) {
	var req dto.StartWorkRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return h.jobs.StartWork(ctx, jobID, userID, req.OTP)
	})
}

// SubmitCompletion обрабатывает POST /jobs/:id/complete.
func (h *JobHandler) SubmitCompletion(c *gin.Context) { h.run(c, h.jobs.SubmitCompletion) }

// Approve обрабатывает POST /jobs/:id/approve.
func (h *JobHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return h.jobs.Approve(ctx, jobID, userID, req.Rating)
	})
}

// RequestRevision обрабатывает POST /jobs/:id/revision.
func (h *JobHandler) RequestRevision(c *gin.Context) {
	var req dto.RevisionRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return h.jobs.RequestRevision(ctx, jobID, userID, req.Note)
	})
}

// Cancel обрабатывает POST /jobs/:id/cancel.
func (h *JobHandler) Cancel(c *gin.Context) {
	h.withReason(c, h.jobs.Cancel)
}

// ProposeCancellation обрабатывает POST /jobs/:id/cancellation.
func (h *JobHandler) ProposeCancellation(c *gin.Context) {
	h.withReason(c, h.jobs.ProposeCancellation)
}

// AcceptCancellation обрабатывает POST /jobs/:id/cancellation/accept.
func (h *JobHandler) AcceptCancellation(c *gin.Context) { h.run(c, h.jobs.AcceptCancellation) }

// RejectCancellation обрабатывает POST /jobs/:id/cancellation/reject.
func (h *JobHandler) RejectCancellation(c *gin.Context) { h.run(c, h.jobs.RejectCancellation) }

// RaiseDispute обрабатывает POST /jobs/:id/dispute.
func (h *JobHandler) RaiseDispute(c *gin.Context) {
	h.withReason(c, h.jobs.RaiseDispute)
}

// RequestAssistance обрабатывает POST /jobs/:id/assistance.
func (h *JobHandler) RequestAssistance(c *gin.Context) {
	h.withReason(c, h.jobs.RequestAssistance)
}

// ProposeDateChange обрабатывает POST /jobs/:id/date-change.
func (h *JobHandler) ProposeDateChange(c *gin.Context) {
	var req dto.DateChangeRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return h.jobs.ProposeDateChange(ctx, jobID, userID, req.NewDate)
	})
}

// AcceptDateChange обрабатывает POST /jobs/:id/date-change/accept.
func (h *JobHandler) AcceptDateChange(c *gin.Context) { h.run(c, h.jobs.AcceptDateChange) }

// RejectDateChange обрабатывает POST /jobs/:id/date-change/reject.
func (h *JobHandler) RejectDateChange(c *gin.Context) { h.run(c, h.jobs.RejectDateChange) }

// DismissDateChange обрабатывает POST /jobs/:id/date-change/dismiss.
func (h *JobHandler) DismissDateChange(c *gin.Context) { h.run(c, h.jobs.DismissDateChange) }

func (h *JobHandler) withReason(c *gin.Context, fn func(ctx context.Context, jobID, userID uuid.UUID, reason string) (*models.Job, error)) {
	var req dto.ReasonRequest
	if !bind(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
		return fn(ctx, jobID, userID, req.Reason)
	})
}
