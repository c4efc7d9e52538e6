package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/repository"
)

// Действия планировщика. Автор изменения - uuid.Nil, условие срока
// перепроверяется под блокировкой строки, поэтому повторный запуск ничего не меняет.

// ExpireOffer обрабатывает заказ с истёкшим сроком ответа на предложение.
// Возвращает пустой исход, если заказ уже не подходит под условие.
func (s *JobService) ExpireOffer(ctx context.Context, jobID uuid.UUID) (ResolutionOutcome, error) {
	var res Resolution
	_, err := s.mutateWith(ctx, jobID, uuid.Nil, func(_ *sqlx.Tx, job *models.Job) (valueobject.JobEvent, error) {
		if job.Status != valueobject.JobStatusAwarded ||
			job.AcceptanceDeadline == nil || !job.AcceptanceDeadline.Before(s.now()) {
			return "", repository.ErrNoChange
		}
		var err error
		res, err = ResolveExpiredOffer(job, s.now(), s.lifecycle.AwardCascadeWindow)
		if err != nil {
			return "", err
		}
		return resolutionEvent(res.Outcome), nil
	})
	if err != nil {
		return "", err
	}
	if res.Intent != nil {
		s.notifier.Notify(ctx, *res.Intent)
	}
	return res.Outcome, nil
}

// CloseExpiredBidding закрывает приём ставок по истечении срока.
// Без ставок заказ уходит в Unbid, со ставками - в BiddingClosed и ждёт выбора заказчика.
func (s *JobService) CloseExpiredBidding(ctx context.Context, jobID uuid.UUID) (valueobject.JobEvent, error) {
	var applied valueobject.JobEvent
	job, err := s.mutateWith(ctx, jobID, uuid.Nil, func(_ *sqlx.Tx, job *models.Job) (valueobject.JobEvent, error) {
		if job.Status != valueobject.JobStatusOpenForBidding ||
			job.BiddingDeadline == nil || !job.BiddingDeadline.Before(s.now()) {
			return "", repository.ErrNoChange
		}
		event := valueobject.EventCloseBidding
		if len(job.Bids) == 0 {
			event = valueobject.EventNoBids
		}
		if err := transition(job, event); err != nil {
			return event, err
		}
		job.BiddingDeadline = nil
		applied = event
		return event, nil
	})
	if err != nil {
		return "", err
	}
	if applied == valueobject.EventCloseBidding {
		s.notifier.Notify(ctx, models.NotificationIntent{
			UserID: job.JobGiverID,
			Event:  "bidding.closed",
			Title:  "Bidding Closed",
			Body:   fmt.Sprintf("Bidding on \"%s\" has closed with %d bid(s). Choose an installer to award the job.", job.Title, len(job.Bids)),
			Link:   models.JobLink(job.ID),
		})
	}
	return applied, nil
}

// AutoSettle проводит выплату по работе, которую заказчик не проверил за AutoSettleAfter.
// Возвращает false, если заказ уже не ждёт подтверждения.
func (s *JobService) AutoSettle(ctx context.Context, jobID uuid.UUID) (bool, error) {
	settled := false
	_, err := s.mutateWith(ctx, jobID, uuid.Nil, func(tx *sqlx.Tx, job *models.Job) (valueobject.JobEvent, error) {
		cutoff := s.now().Add(-s.lifecycle.AutoSettleAfter)
		if job.Status != valueobject.JobStatusPendingConfirmation ||
			job.CompletionSubmittedAt == nil || job.CompletionSubmittedAt.After(cutoff) {
			return "", repository.ErrNoChange
		}
		if err := transition(job, valueobject.EventCompletionApproved); err != nil {
			return valueobject.EventCompletionApproved, err
		}
		if err := s.complete(ctx, tx, job, nil); err != nil {
			return valueobject.EventCompletionApproved, err
		}
		settled = true
		return valueobject.EventCompletionApproved, nil
	})
	if err != nil {
		return false, err
	}
	return settled, nil
}
