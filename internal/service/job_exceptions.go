package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobconnect-backend/internal/repository"
	"github.com/ignatzorin/jobconnect-backend/internal/validation"
)

// Cancel - заказчик отменяет заказ до начала работ. Удерживаемое возвращается.
func (s *JobService) Cancel(ctx context.Context, jobID, giverID uuid.UUID, reason string) (*models.Job, error) {
	return s.mutate(ctx, jobID, giverID, valueobject.EventCancel, func(tx *sqlx.Tx, job *models.Job) error {
		if job.JobGiverID != giverID {
			return apperror.ErrNotJobGiver
		}
		if err := transition(job, valueobject.EventCancel); err != nil {
			return err
		}
		if err := s.refund(ctx, tx, job); err != nil {
			return err
		}
		job.CancellationReason = optionalString(reason)
		job.SelectedInstallers = nil
		job.AcceptanceDeadline = nil
		job.BiddingDeadline = nil
		return nil
	})
}

// ProposeCancellation - одна из сторон предлагает отменить заказ в работе.
func (s *JobService) ProposeCancellation(ctx context.Context, jobID, userID uuid.UUID, reason string) (*models.Job, error) {
	return s.mutate(ctx, jobID, userID, valueobject.EventCancellationProposed, func(_ *sqlx.Tx, job *models.Job) error {
		if !job.IsParticipant(userID) {
			return apperror.ErrNotParticipant
		}
		if err := transition(job, valueobject.EventCancellationProposed); err != nil {
			return err
		}
		job.CancellationProposedBy = &userID
		job.CancellationReason = optionalString(reason)
		return nil
	})
}

// AcceptCancellation - вторая сторона соглашается, средства возвращаются заказчику.
func (s *JobService) AcceptCancellation(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
	return s.mutate(ctx, jobID, userID, valueobject.EventCancellationAccepted, func(tx *sqlx.Tx, job *models.Job) error {
		if err := checkCounterparty(job, userID); err != nil {
			return err
		}
		if err := transition(job, valueobject.EventCancellationAccepted); err != nil {
			return err
		}
		return s.refund(ctx, tx, job)
	})
}

// RejectCancellation - вторая сторона отказывается, заказ продолжается.
func (s *JobService) RejectCancellation(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
	return s.mutate(ctx, jobID, userID, valueobject.EventCancellationRejected, func(_ *sqlx.Tx, job *models.Job) error {
		if err := checkCounterparty(job, userID); err != nil {
			return err
		}
		if err := transition(job, valueobject.EventCancellationRejected); err != nil {
			return err
		}
		job.CancellationProposedBy = nil
		job.CancellationReason = nil
		return nil
	})
}

func checkCounterparty(job *models.Job, userID uuid.UUID) error {
	if !job.IsParticipant(userID) {
		return apperror.ErrNotParticipant
	}
	if job.CancellationProposedBy != nil && *job.CancellationProposedBy == userID {
		return apperror.ErrOwnProposal
	}
	return nil
}

// RaiseDispute открывает спор. До решения заказ не двигается.
func (s *JobService) RaiseDispute(ctx context.Context, jobID, userID uuid.UUID, reason string) (*models.Job, error) {
	reason, err := validation.Reason("спор", reason)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return s.mutate(ctx, jobID, userID, valueobject.EventDisputeRaised, func(tx *sqlx.Tx, job *models.Job) error {
		if !job.IsParticipant(userID) {
			return apperror.ErrNotParticipant
		}
		if err := transition(job, valueobject.EventDisputeRaised); err != nil {
			return err
		}
		dispute := &models.Dispute{
			ID:       uuid.New(),
			JobID:    job.ID,
			RaisedBy: userID,
			Reason:   reason,
			Status:   models.DisputeStatusOpen,
		}
		if err := s.disputes.Create(ctx, tx, dispute); err != nil {
			return err
		}
		job.DisputeID = &dispute.ID
		return nil
	})
}

// ResolveDispute закрывает спор решением администратора: выплата, возврат или продолжение работ.
func (s *JobService) ResolveDispute(ctx context.Context, jobID, adminID uuid.UUID, resolution string, rating *int) (*models.Job, error) {
	var event valueobject.JobEvent
	switch resolution {
	case models.DisputeResolutionRelease:
		event = valueobject.EventDisputeReleased
	case models.DisputeResolutionRefund:
		event = valueobject.EventDisputeRefunded
	case models.DisputeResolutionResume:
		event = valueobject.EventDisputeResumed
	default:
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестное решение по спору")
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}

	job, err := s.mutate(ctx, jobID, adminID, event, func(tx *sqlx.Tx, job *models.Job) error {
		if err := transition(job, event); err != nil {
			return err
		}
		if job.DisputeID == nil {
			return apperror.ErrDisputeNotFound
		}
		if err := s.disputes.Resolve(ctx, tx, *job.DisputeID, resolution, adminID); err != nil {
			return err
		}

		switch resolution {
		case models.DisputeResolutionRelease:
			return s.complete(ctx, tx, job, rating)
		case models.DisputeResolutionRefund:
			job.CancellationReason = optionalString("dispute resolved in favour of the job giver")
			return s.refund(ctx, tx, job)
		}
		return s.requireEscrow(ctx, tx, job)
	})
	if err != nil {
		return nil, err
	}
	logger.WithJob(jobID).WithField("resolution", resolution).Info("job: спор закрыт")
	return job, nil
}

// RequestAssistance - сторона просит помощи поддержки.
func (s *JobService) RequestAssistance(ctx context.Context, jobID, userID uuid.UUID, reason string) (*models.Job, error) {
	return s.mutate(ctx, jobID, userID, valueobject.EventAssistanceRequested, func(_ *sqlx.Tx, job *models.Job) error {
		if !job.IsParticipant(userID) {
			return apperror.ErrNotParticipant
		}
		if err := transition(job, valueobject.EventAssistanceRequested); err != nil {
			return err
		}
		logger.WithJob(job.ID).WithField("reason", strings.TrimSpace(reason)).Warn("job: запрошена помощь поддержки")
		return nil
	})
}

// ResolveAssistance возвращает заказ в работу после вмешательства поддержки.
func (s *JobService) ResolveAssistance(ctx context.Context, jobID, adminID uuid.UUID) (*models.Job, error) {
	return s.mutate(ctx, jobID, adminID, valueobject.EventAssistanceResolved, func(_ *sqlx.Tx, job *models.Job) error {
		return transition(job, valueobject.EventAssistanceResolved)
	})
}

// ProposeDateChange - сторона предлагает новую дату начала работ.
func (s *JobService) ProposeDateChange(ctx context.Context, jobID, userID uuid.UUID, newDate time.Time) (*models.Job, error) {
	if !newDate.After(s.now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "новая дата должна быть в будущем")
	}
	return s.mutate(ctx, jobID, userID, "", func(_ *sqlx.Tx, job *models.Job) error {
		if !job.IsParticipant(userID) {
			return apperror.ErrNotParticipant
		}
		if !dateChangeAllowed(job.Status) {
			return apperror.New(apperror.ErrCodeTransition, "перенос даты недоступен в текущем статусе заказа")
		}
		if p := job.DateChangeProposal; p != nil && p.Status == valueobject.ProposalStatusPending {
			return apperror.ErrProposalPending
		}
		job.DateChangeProposal = &models.DateChangeProposal{
			ProposedBy: userID,
			NewDate:    newDate.UTC(),
			Status:     valueobject.ProposalStatusPending,
			ProposedAt: s.now().UTC(),
		}
		return nil
	})
}

// AcceptDateChange - вторая сторона принимает перенос, дата начала меняется.
func (s *JobService) AcceptDateChange(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
	return s.answerDateChange(ctx, jobID, userID, valueobject.ProposalStatusAccepted)
}

// RejectDateChange - вторая сторона отклоняет перенос.
func (s *JobService) RejectDateChange(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
	return s.answerDateChange(ctx, jobID, userID, valueobject.ProposalStatusRejected)
}

func (s *JobService) answerDateChange(ctx context.Context, jobID, userID uuid.UUID, answer valueobject.ProposalStatus) (*models.Job, error) {
	return s.mutate(ctx, jobID, userID, "", func(_ *sqlx.Tx, job *models.Job) error {
		if !job.IsParticipant(userID) {
			return apperror.ErrNotParticipant
		}
		p := job.DateChangeProposal
		if p == nil || p.Status != valueobject.ProposalStatusPending {
			return apperror.New(apperror.ErrCodeConflict, "нет активного предложения о переносе")
		}
		if p.ProposedBy == userID {
			return apperror.ErrOwnProposal
		}
		p.Status = answer
		if answer == valueobject.ProposalStatusAccepted {
			newDate := p.NewDate
			job.JobStartDate = &newDate
		}
		return nil
	})
}

// DismissDateChange убирает рассмотренное предложение о переносе из заказа.
func (s *JobService) DismissDateChange(ctx context.Context, jobID, userID uuid.UUID) (*models.Job, error) {
	return s.mutate(ctx, jobID, userID, "", func(_ *sqlx.Tx, job *models.Job) error {
		if !job.IsParticipant(userID) {
			return apperror.ErrNotParticipant
		}
		p := job.DateChangeProposal
		if p == nil {
			return repository.ErrNoChange
		}
		if p.Status == valueobject.ProposalStatusPending {
			return apperror.ErrProposalPending
		}
		job.DateChangeProposal = nil
		return nil
	})
}

func dateChangeAllowed(status valueobject.JobStatus) bool {
	switch status {
	case valueobject.JobStatusPendingFunding, valueobject.JobStatusInProgress, valueobject.JobStatusNeedsAssistance:
		return true
	}
	return false
}

// refund возвращает заказчику всё удерживаемое и неподтверждённое по заказу.
func (s *JobService) refund(ctx context.Context, tx *sqlx.Tx, job *models.Job) error {
	refunded, err := s.escrow.RefundForJob(ctx, tx, job.ID)
	if err != nil {
		return err
	}
	if len(refunded) > 0 {
		var total int64
		for _, t := range refunded {
			total += t.Amount
		}
		logger.WithJob(job.ID).WithField("amount", total).Info("job: средства возвращены заказчику")
	}
	return nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
