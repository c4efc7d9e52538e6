package service

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

// ResolutionOutcome - чем закончилась обработка предложения.
type ResolutionOutcome string

const (
	// OutcomeCascaded - предложение ушло следующему кандидату.
	OutcomeCascaded ResolutionOutcome = "cascaded"
	// OutcomeExhausted - кандидатов не осталось, заказ вернулся в BiddingClosed.
	OutcomeExhausted ResolutionOutcome = "exhausted"
	// OutcomePending - одновременное предложение ещё ждёт ответа других кандидатов.
	OutcomePending ResolutionOutcome = "pending"
)

// Resolution - результат работы резолвера, уже применённый к заказу.
type Resolution struct {
	Outcome       ResolutionOutcome
	NextInstaller uuid.UUID
	// Intent - единственное уведомление по итогу. Для OutcomePending его нет.
	Intent *models.NotificationIntent
}

// ResolveExpiredOffer решает судьбу просроченного предложения и меняет job на месте.
// Вызывается под блокировкой строки заказа; I/O не делает.
func ResolveExpiredOffer(job *models.Job, now time.Time, window time.Duration) (Resolution, error) {
	if job.Status != valueobject.JobStatusAwarded {
		return Resolution{}, fmt.Errorf("%w: %q does not hold an offer", valueobject.ErrIllegalTransition, job.Status)
	}

	remainder := job.SelectedInstallers
	if job.AwardedInstallerID != nil {
		remainder = remainder.Without(*job.AwardedInstallerID)
	}
	return resolve(job, eligible(job, remainder), now, window)
}

// ResolveDecline снимает установщика с предложения и, если нужно, передаёт его дальше.
// Отказавшийся попадает в disqualified и больше не получит предложение по этому заказу.
func ResolveDecline(job *models.Job, installerID uuid.UUID, now time.Time, window time.Duration) (Resolution, error) {
	if job.Status != valueobject.JobStatusAwarded {
		return Resolution{}, fmt.Errorf("%w: %q does not hold an offer", valueobject.ErrIllegalTransition, job.Status)
	}

	job.Disqualify(installerID)
	remainder := eligible(job, job.SelectedInstallers.Without(installerID))

	// Отказ кандидата из очереди не трогает текущее предложение.
	if isSequential(job, job.SelectedInstallers) && job.AwardedInstallerID != nil && !job.IsAwardedTo(installerID) {
		job.SelectedInstallers = job.SelectedInstallers.Without(installerID)
		return Resolution{Outcome: OutcomePending}, nil
	}

	// Одновременное предложение остаётся в силе для остальных, пока не истёк срок.
	if !isSequential(job, remainder) && len(remainder) > 0 && !job.IsAwardedTo(installerID) &&
		job.AcceptanceDeadline != nil && job.AcceptanceDeadline.After(now) {
		job.SelectedInstallers = remainder
		return Resolution{Outcome: OutcomePending}, nil
	}
	return resolve(job, remainder, now, window)
}

func resolve(job *models.Job, remainder models.SelectedInstallers, now time.Time, window time.Duration) (Resolution, error) {
	if isSequential(job, remainder) && len(remainder) > 0 {
		next := remainder.SortedByRank()[0]
		status, err := job.Status.Next(valueobject.EventOfferCascaded)
		if err != nil {
			return Resolution{}, err
		}
		deadline := now.Add(window)
		job.Status = status
		job.AwardedInstallerID = &next.InstallerID
		job.AcceptanceDeadline = &deadline
		job.SelectedInstallers = remainder

		return Resolution{
			Outcome:       OutcomeCascaded,
			NextInstaller: next.InstallerID,
			Intent:        offerIntent(job, next.InstallerID, window),
		}, nil
	}

	status, err := job.Status.Next(valueobject.EventOffersExhausted)
	if err != nil {
		return Resolution{}, err
	}
	job.Status = status
	job.ClearOffer()

	return Resolution{
		Outcome: OutcomeExhausted,
		Intent: &models.NotificationIntent{
			UserID: job.JobGiverID,
			Event:  "award.expired",
			Title:  "Award Offer Expired",
			Body:   fmt.Sprintf("No installer accepted your offer for \"%s\". You can award the job again.", job.Title),
			Link:   models.JobLink(job.ID),
		},
	}, nil
}

// offerIntent - уведомление установщику о полученном предложении.
func offerIntent(job *models.Job, installerID uuid.UUID, window time.Duration) *models.NotificationIntent {
	return &models.NotificationIntent{
		UserID: installerID,
		Event:  "award.offered",
		Title:  "You've Been Awarded a Job!",
		Body: fmt.Sprintf("You have been offered the job: \"%s\". Please respond within %d hours.",
			job.Title, int(math.Round(window.Hours()))),
		Link: models.JobLink(job.ID),
	}
}

// isSequential: явная стратегия важнее, для старых заказов без неё смотрим на ранги.
func isSequential(job *models.Job, remainder models.SelectedInstallers) bool {
	if job.AwardStrategy != nil {
		return *job.AwardStrategy == valueobject.AwardStrategySequential
	}
	for _, c := range remainder {
		if c.Rank > 1 {
			return true
		}
	}
	return false
}

func eligible(job *models.Job, candidates models.SelectedInstallers) models.SelectedInstallers {
	out := make(models.SelectedInstallers, 0, len(candidates))
	for _, c := range candidates {
		if !job.IsDisqualified(c.InstallerID) {
			out = append(out, c)
		}
	}
	return out
}
