package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobconnect-backend/internal/repository"
)

// EscrowRepository - журнал escrow-транзакций.
type EscrowRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.EscrowTransaction, error)
	Transition(ctx context.Context, id uuid.UUID, from, to string, gatewayOrderID *string) (*models.EscrowTransaction, error)
}

// JobReader читает заказ без блокировки.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// EscrowService отдаёт журнал оплат заказа и подтверждает дополнительные оплаты.
// Основная оплата, выплата и возврат проводятся JobService в транзакции заказа.
type EscrowService struct {
	repo EscrowRepository
	jobs JobReader
}

func NewEscrowService(repo EscrowRepository, jobs JobReader) *EscrowService {
	return &EscrowService{repo: repo, jobs: jobs}
}

// ListForJob возвращает транзакции заказа и сводку. Доступно только участникам.
func (s *EscrowService) ListForJob(ctx context.Context, jobID, userID uuid.UUID) ([]models.EscrowTransaction, models.EscrowSummary, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, models.EscrowSummary{}, mapJobError(err)
	}
	if !job.IsParticipant(userID) {
		return nil, models.EscrowSummary{}, apperror.ErrNotParticipant
	}

	txns, err := s.repo.ListByJob(ctx, jobID)
	if err != nil {
		return nil, models.EscrowSummary{}, err
	}
	if txns == nil {
		txns = []models.EscrowTransaction{}
	}
	return txns, models.Summarize(txns), nil
}

// ConfirmAddOn отмечает дополнительную оплату поступившей.
func (s *EscrowService) ConfirmAddOn(ctx context.Context, txnID uuid.UUID, gatewayOrderID string) (*models.EscrowTransaction, error) {
	var orderID *string
	if gatewayOrderID != "" {
		orderID = &gatewayOrderID
	}
	txn, err := s.transitionAddOn(ctx, txnID, models.EscrowStatusFunded, orderID)
	if err != nil {
		return nil, err
	}
	logger.WithJob(txn.JobID).WithField("escrow_id", txnID.String()).Info("escrow: дополнительная оплата получена")
	return txn, nil
}

// FailAddOn отмечает дополнительную оплату несостоявшейся.
func (s *EscrowService) FailAddOn(ctx context.Context, txnID uuid.UUID) (*models.EscrowTransaction, error) {
	return s.transitionAddOn(ctx, txnID, models.EscrowStatusFailed, nil)
}

func (s *EscrowService) transitionAddOn(ctx context.Context, txnID uuid.UUID, to string, gatewayOrderID *string) (*models.EscrowTransaction, error) {
	current, err := s.repo.GetByID(ctx, txnID)
	if err != nil {
		return nil, mapEscrowError(err)
	}
	if current.Kind != models.EscrowKindAddOn {
		return nil, apperror.New(apperror.ErrCodeValidation, "подтверждать можно только дополнительную оплату")
	}

	txn, err := s.repo.Transition(ctx, txnID, models.EscrowStatusInitiated, to, gatewayOrderID)
	if err != nil {
		return nil, mapEscrowError(err)
	}
	return txn, nil
}

func mapEscrowError(err error) error {
	switch {
	case errors.Is(err, repository.ErrEscrowNotFound):
		return apperror.New(apperror.ErrCodeNotFound, "транзакция не найдена")
	case errors.Is(err, repository.ErrEscrowWrongState):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "транзакция уже обработана")
	case errors.Is(err, repository.ErrEscrowAlreadyFunded):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "заказ уже оплачен")
	}
	return fmt.Errorf("escrow service: %w", err)
}
