package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/metrics"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobconnect-backend/internal/repository"
	"github.com/ignatzorin/jobconnect-backend/internal/validation"
)

// JobRepository - хранилище заказов с транзакционным read-modify-write.
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Mutate(ctx context.Context, id uuid.UUID, fn func(tx *sqlx.Tx, job *models.Job) error) (*models.JobChange, error)
}

// EscrowWriter меняет escrow-журнал внутри транзакции заказа.
type EscrowWriter interface {
	Create(ctx context.Context, tx *sqlx.Tx, txn *models.EscrowTransaction) error
	CountActive(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) (int, error)
	ReleaseForJob(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) ([]models.EscrowTransaction, error)
	RefundForJob(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) ([]models.EscrowTransaction, error)
}

// DisputeWriter заводит и закрывает споры внутри транзакции заказа.
type DisputeWriter interface {
	Create(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error
	Resolve(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, resolution string, resolvedBy uuid.UUID) error
}

// ChangeHandler получает каждое зафиксированное изменение заказа.
type ChangeHandler interface {
	HandleChange(ctx context.Context, change models.JobChange)
}

// JobService - все действия сторон над заказом. Каждое действие проходит
// через автомат статусов внутри транзакции строки заказа, а побочные эффекты
// (уведомления, репутация) запускаются только после фиксации.
type JobService struct {
	jobs      JobRepository
	escrow    EscrowWriter
	disputes  DisputeWriter
	settings  SettingsSource
	handler   ChangeHandler
	notifier  Notifier
	lifecycle config.LifecycleConfig
	now       func() time.Time
}

func NewJobService(
	jobs JobRepository,
	escrow EscrowWriter,
	disputes DisputeWriter,
	settings SettingsSource,
	handler ChangeHandler,
	notifier Notifier,
	lifecycle config.LifecycleConfig,
) *JobService {
	return &JobService{
		jobs:      jobs,
		escrow:    escrow,
		disputes:  disputes,
		settings:  settings,
		handler:   handler,
		notifier:  notifier,
		lifecycle: lifecycle,
		now:       time.Now,
	}
}

// BidInput - ставка установщика.
type BidInput struct {
	Amount         int64
	CoverLetter    string
	WarrantyMonths *int
	DurationDays   *int
}

// AwardInput - выбор исполнителей заказчиком. Порядок InstallerIDs задаёт ранги.
type AwardInput struct {
	InstallerIDs []uuid.UUID
	Strategy     valueobject.AwardStrategy
}

// CreateJob публикует заказ в статусе «Open for Bidding».
func (s *JobService) CreateJob(ctx context.Context, giverID uuid.UUID, title string, biddingDeadline *time.Time) (*models.Job, error) {
	title, err := validation.JobTitle(title)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if biddingDeadline != nil && !biddingDeadline.After(s.now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок приёма ставок должен быть в будущем")
	}

	job := &models.Job{
		ID:              uuid.New(),
		Title:           title,
		Status:          valueobject.JobStatusOpenForBidding,
		JobGiverID:      giverID,
		BiddingDeadline: biddingDeadline,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("job service: create %w", err)
	}
	logger.WithJob(job.ID).Info("job: заказ опубликован")
	return job, nil
}

// GetJob возвращает заказ.
func (s *JobService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, mapJobError(err)
	}
	return job, nil
}

// AddBid добавляет ставку. Один установщик - одна ставка на заказ.
func (s *JobService) AddBid(ctx context.Context, jobID, installerID uuid.UUID, in BidInput) (*models.Job, error) {
	if err := validation.BidAmount(in.Amount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	coverLetter, err := validation.CoverLetter(in.CoverLetter)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return s.mutate(ctx, jobID, installerID, "", func(_ *sqlx.Tx, job *models.Job) error {
		if job.Status != valueobject.JobStatusOpenForBidding {
			return apperror.New(apperror.ErrCodeConflict, "приём ставок по заказу закрыт")
		}
		if job.JobGiverID == installerID {
			return apperror.New(apperror.ErrCodeForbidden, "нельзя делать ставку на свой заказ")
		}
		if job.HasBidFrom(installerID) {
			return apperror.New(apperror.ErrCodeConflict, "вы уже сделали ставку на этот заказ")
		}
		job.Bids = append(job.Bids, models.Bid{
			InstallerID:    installerID,
			Amount:         in.Amount,
			Timestamp:      s.now().UTC(),
			CoverLetter:    coverLetter,
			WarrantyMonths: in.WarrantyMonths,
			DurationDays:   in.DurationDays,
		})
		return nil
	})
}

// AddPrivateMessage добавляет сообщение в переписку заказчика и выбранного установщика.
func (s *JobService) AddPrivateMessage(ctx context.Context, jobID, authorID uuid.UUID, content string) (*models.Job, error) {
	content, err := validation.MessageContent(content)
	if err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	return s.mutate(ctx, jobID, authorID, "", func(_ *sqlx.Tx, job *models.Job) error {
		if !job.IsParticipant(authorID) {
			return apperror.ErrNotParticipant
		}
		job.PrivateMessages = append(job.PrivateMessages, models.PrivateMessage{
			ID:        uuid.New(),
			AuthorID:  authorID,
			Content:   content,
			Timestamp: s.now().UTC(),
		})
		return nil
	})
}

// Award выбирает исполнителей. При последовательной стратегии предложение получает первый
// в списке, при одновременной - все сразу, и заказ достаётся тому, кто примет первым.
func (s *JobService) Award(ctx context.Context, jobID, giverID uuid.UUID, in AwardInput) (*models.Job, error) {
	if len(in.InstallerIDs) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "выберите хотя бы одного установщика")
	}
	if !in.Strategy.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "некорректная стратегия выбора исполнителя")
	}

	job, err := s.mutate(ctx, jobID, giverID, valueobject.EventAward, func(_ *sqlx.Tx, job *models.Job) error {
		if job.JobGiverID != giverID {
			return apperror.ErrNotJobGiver
		}
		seen := make(map[uuid.UUID]struct{}, len(in.InstallerIDs))
		candidates := make(models.SelectedInstallers, 0, len(in.InstallerIDs))
		for i, id := range in.InstallerIDs {
			if _, dup := seen[id]; dup {
				return apperror.New(apperror.ErrCodeValidation, "установщик указан дважды")
			}
			seen[id] = struct{}{}
			if !job.HasBidFrom(id) {
				return apperror.New(apperror.ErrCodeValidation, "можно выбрать только установщика, сделавшего ставку")
			}
			if job.IsDisqualified(id) {
				return apperror.New(apperror.ErrCodeConflict, "установщик уже отказался от этого заказа")
			}
			rank := 1
			if in.Strategy == valueobject.AwardStrategySequential {
				rank = i + 1
			}
			candidates = append(candidates, models.SelectedInstaller{InstallerID: id, Rank: rank})
		}

		if err := transition(job, valueobject.EventAward); err != nil {
			return err
		}
		strategy := in.Strategy
		deadline := s.now().Add(s.lifecycle.AwardCascadeWindow)
		job.AwardStrategy = &strategy
		job.SelectedInstallers = candidates
		job.AcceptanceDeadline = &deadline
		job.AwardedInstallerID = nil
		if strategy == valueobject.AwardStrategySequential {
			first := candidates[0].InstallerID
			job.AwardedInstallerID = &first
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyAll(ctx, offerIntents(job, s.lifecycle.AwardCascadeWindow))
	return job, nil
}

func offerIntents(job *models.Job, window time.Duration) []models.NotificationIntent {
	recipients := []uuid.UUID{}
	if job.AwardedInstallerID != nil {
		recipients = append(recipients, *job.AwardedInstallerID)
	} else {
		for _, c := range job.SelectedInstallers {
			recipients = append(recipients, c.InstallerID)
		}
	}
	intents := make([]models.NotificationIntent, 0, len(recipients))
	for _, id := range recipients {
		intents = append(intents, *offerIntent(job, id, window))
	}
	return intents
}

// AcceptOffer - установщик принимает предложение. Срок оплаты отсчитывается от этого момента.
func (s *JobService) AcceptOffer(ctx context.Context, jobID, installerID uuid.UUID) (*models.Job, error) {
	return s.mutate(ctx, jobID, installerID, valueobject.EventOfferAccepted, func(_ *sqlx.Tx, job *models.Job) error {
		if job.Status == valueobject.JobStatusAwarded && job.AwardedInstallerID != nil && !job.IsAwardedTo(installerID) {
			return apperror.ErrAlreadyAwarded
		}
		if job.Status == valueobject.JobStatusAwarded &&
			(!job.SelectedInstallers.Contains(installerID) || job.IsDisqualified(installerID)) {
			return apperror.ErrOfferNotFound
		}
		if err := transition(job, valueobject.EventOfferAccepted); err != nil {
			return err
		}
		now := s.now()
		if job.AcceptanceDeadline != nil && job.AcceptanceDeadline.Before(now) {
			return apperror.New(apperror.ErrCodeConflict, "срок ответа на предложение истёк")
		}

		fundingDeadline := now.Add(s.lifecycle.FundingWindow)
		job.AwardedInstallerID = &installerID
		job.SelectedInstallers = nil
		job.AcceptanceDeadline = nil
		job.FundingDeadline = &fundingDeadline
		return nil
	})
}

// DeclineOffer - установщик отказывается. Предложение уходит следующему или заказ возвращается заказчику.
func (s *JobService) DeclineOffer(ctx context.Context, jobID, installerID uuid.UUID) (*models.Job, error) {
	var res Resolution
	job, err := s.mutateWith(ctx, jobID, installerID, func(_ *sqlx.Tx, job *models.Job) (valueobject.JobEvent, error) {
		if job.Status != valueobject.JobStatusAwarded ||
			(!job.IsAwardedTo(installerID) && !job.SelectedInstallers.Contains(installerID)) {
			return "", apperror.ErrOfferNotFound
		}
		var err error
		res, err = ResolveDecline(job, installerID, s.now(), s.lifecycle.AwardCascadeWindow)
		if err != nil {
			return "", err
		}
		return resolutionEvent(res.Outcome), nil
	})
	if err != nil {
		return nil, err
	}
	if res.Intent != nil {
		s.notifier.Notify(ctx, *res.Intent)
	}
	return job, nil
}

func resolutionEvent(outcome ResolutionOutcome) valueobject.JobEvent {
	switch outcome {
	case OutcomeCascaded:
		return valueobject.EventOfferCascaded
	case OutcomeExhausted:
		return valueobject.EventOffersExhausted
	}
	return ""
}

// CloseBidding - заказчик прекращает приём ставок.
func (s *JobService) CloseBidding(ctx context.Context, jobID, giverID uuid.UUID) (*models.Job, error) {
	return s.mutate(ctx, jobID, giverID, valueobject.EventCloseBidding, func(_ *sqlx.Tx, job *models.Job) error {
		if job.JobGiverID != giverID {
			return apperror.ErrNotJobGiver
		}
		if err := transition(job, valueobject.EventCloseBidding); err != nil {
			return err
		}
		job.BiddingDeadline = nil
		return nil
	})
}

// ReopenBidding снова открывает приём ставок для Unbid или BiddingClosed.
func (s *JobService) ReopenBidding(ctx context.Context, jobID, giverID uuid.UUID, biddingDeadline *time.Time) (*models.Job, error) {
	if biddingDeadline != nil && !biddingDeadline.After(s.now()) {
		return nil, apperror.New(apperror.ErrCodeValidation, "срок приёма ставок должен быть в будущем")
	}
	return s.mutate(ctx, jobID, giverID, valueobject.EventReopenBidding, func(_ *sqlx.Tx, job *models.Job) error {
		if job.JobGiverID != giverID {
			return apperror.ErrNotJobGiver
		}
		if err := transition(job, valueobject.EventReopenBidding); err != nil {
			return err
		}
		job.BiddingDeadline = biddingDeadline
		return nil
	})
}

// mutate выполняет fn под блокировкой заказа и передаёт зафиксированное изменение обработчику.
// event - переход, который fn применяет (для метрик); пустой, если статус не меняется.
func (s *JobService) mutate(ctx context.Context, jobID, actor uuid.UUID, event valueobject.JobEvent, fn func(tx *sqlx.Tx, job *models.Job) error) (*models.Job, error) {
	return s.mutateWith(ctx, jobID, actor, func(tx *sqlx.Tx, job *models.Job) (valueobject.JobEvent, error) {
		return event, fn(tx, job)
	})
}

func (s *JobService) mutateWith(ctx context.Context, jobID, actor uuid.UUID, fn func(tx *sqlx.Tx, job *models.Job) (valueobject.JobEvent, error)) (*models.Job, error) {
	var applied valueobject.JobEvent
	change, err := s.jobs.Mutate(ctx, jobID, func(tx *sqlx.Tx, job *models.Job) error {
		event, err := fn(tx, job)
		applied = event
		return err
	})
	if err != nil {
		if errors.Is(err, valueobject.ErrIllegalTransition) && applied != "" {
			metrics.RejectedTransitions.WithLabelValues(string(applied)).Inc()
		}
		return nil, mapJobError(err)
	}
	if change == nil {
		return s.GetJob(ctx, jobID)
	}
	if applied != "" {
		metrics.Transitions.WithLabelValues(string(applied)).Inc()
	}

	change.Actor = actor
	s.handler.HandleChange(ctx, *change)
	return change.After, nil
}

// transition сдвигает статус заказа по событию или возвращает ErrIllegalTransition.
func transition(job *models.Job, event valueobject.JobEvent) error {
	next, err := job.Status.Next(event)
	if err != nil {
		return err
	}
	job.Status = next
	return nil
}

func mapJobError(err error) error {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrJobNotFound):
		return apperror.ErrJobNotFound
	case errors.Is(err, valueobject.ErrIllegalTransition):
		return apperror.Wrap(err, apperror.ErrCodeTransition, "действие недоступно в текущем статусе заказа")
	case errors.Is(err, models.ErrMalformedJob):
		return apperror.Wrap(err, apperror.ErrCodeInternal, "данные заказа повреждены")
	case errors.Is(err, repository.ErrEscrowAlreadyFunded),
		errors.Is(err, repository.ErrEscrowWrongState),
		errors.Is(err, repository.ErrEscrowNotFound):
		return mapEscrowError(err)
	case errors.Is(err, repository.ErrDisputeNotFound):
		return apperror.ErrDisputeNotFound
	}
	return fmt.Errorf("job service: %w", err)
}
