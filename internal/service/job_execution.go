package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
)

const startOTPDigits = 6

// FundResult - итог оплаты. StartOTP показывается заказчику один раз и больше нигде не хранится открыто.
type FundResult struct {
	Job         *models.Job
	Transaction *models.EscrowTransaction
	StartOTP    string
}

// Fund фиксирует поступление основной оплаты: создаёт Funded-транзакцию с комиссиями,
// выдаёт код начала работ и переводит заказ в «In Progress».
func (s *JobService) Fund(ctx context.Context, jobID, giverID uuid.UUID, gatewayOrderID string) (*FundResult, error) {
	otp, err := generateOTP(startOTPDigits)
	if err != nil {
		return nil, fmt.Errorf("job service: otp %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("job service: otp hash %w", err)
	}
	rates := s.settings.Current(ctx).FeeRates()

	var txn *models.EscrowTransaction
	job, err := s.mutate(ctx, jobID, giverID, valueobject.EventFundsConfirmed, func(tx *sqlx.Tx, job *models.Job) error {
		if job.JobGiverID != giverID {
			return apperror.ErrNotJobGiver
		}
		if err := transition(job, valueobject.EventFundsConfirmed); err != nil {
			return err
		}
		if job.AwardedInstallerID == nil {
			return apperror.New(apperror.ErrCodeConflict, "у заказа нет исполнителя")
		}
		amount, ok := bidAmount(job, *job.AwardedInstallerID)
		if !ok {
			return apperror.New(apperror.ErrCodeValidation, "у выбранного установщика нет ставки")
		}

		now := s.now().UTC()
		txn = newEscrowTxn(job, models.EscrowKindPrimary, models.EscrowStatusFunded, rates.Split(valueobject.Money(amount)))
		txn.FundedAt = &now
		if gatewayOrderID != "" {
			txn.GatewayOrderID = &gatewayOrderID
		}
		if err := s.escrow.Create(ctx, tx, txn); err != nil {
			return err
		}

		hashStr := string(hash)
		job.StartOTPHash = &hashStr
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.WithJob(jobID).WithField("amount", txn.Amount).Info("job: основная оплата зачислена")
	return &FundResult{Job: job, Transaction: txn, StartOTP: otp}, nil
}

// AddFunds открывает дополнительную оплату по идущему заказу. Деньги удерживаются
// после подтверждения шлюзом (EscrowService.ConfirmAddOn).
func (s *JobService) AddFunds(ctx context.Context, jobID, giverID uuid.UUID, amount int64, description string) (*models.EscrowTransaction, error) {
	money, err := valueobject.NewMoney(amount)
	if err != nil {
		return nil, err
	}
	rates := s.settings.Current(ctx).FeeRates()

	var txn *models.EscrowTransaction
	_, err = s.mutate(ctx, jobID, giverID, "", func(tx *sqlx.Tx, job *models.Job) error {
		if job.JobGiverID != giverID {
			return apperror.ErrNotJobGiver
		}
		switch job.Status {
		case valueobject.JobStatusInProgress, valueobject.JobStatusPendingConfirmation, valueobject.JobStatusNeedsAssistance:
		default:
			return apperror.New(apperror.ErrCodeTransition, "дополнительная оплата возможна только по заказу в работе")
		}

		txn = newEscrowTxn(job, models.EscrowKindAddOn, models.EscrowStatusInitiated, rates.Split(money))
		if d := strings.TrimSpace(description); d != "" {
			txn.Description = &d
		}
		return s.escrow.Create(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// StartWork - установщик вводит код, полученный от заказчика на месте.
func (s *JobService) StartWork(ctx context.Context, jobID, installerID uuid.UUID, otp string) (*models.Job, error) {
	return s.mutate(ctx, jobID, installerID, valueobject.EventWorkStarted, func(tx *sqlx.Tx, job *models.Job) error {
		if !job.IsAwardedTo(installerID) {
			return apperror.ErrNotAwardedInstaller
		}
		if job.WorkStartedAt != nil {
			return apperror.New(apperror.ErrCodeConflict, "работа уже начата")
		}
		if err := transition(job, valueobject.EventWorkStarted); err != nil {
			return err
		}
		if job.StartOTPHash == nil ||
			bcrypt.CompareHashAndPassword([]byte(*job.StartOTPHash), []byte(strings.TrimSpace(otp))) != nil {
			return apperror.ErrInvalidOTP
		}
		if err := s.requireEscrow(ctx, tx, job); err != nil {
			return err
		}

		now := s.now().UTC()
		job.WorkStartedAt = &now
		job.StartOTPHash = nil
		return nil
	})
}

// SubmitCompletion - установщик сдаёт работу на проверку.
func (s *JobService) SubmitCompletion(ctx context.Context, jobID, installerID uuid.UUID) (*models.Job, error) {
	return s.mutate(ctx, jobID, installerID, valueobject.EventCompletionSubmitted, func(_ *sqlx.Tx, job *models.Job) error {
		if !job.IsAwardedTo(installerID) {
			return apperror.ErrNotAwardedInstaller
		}
		if job.Status == valueobject.JobStatusInProgress && job.WorkStartedAt == nil {
			return apperror.New(apperror.ErrCodeValidation, "сначала подтвердите начало работ кодом")
		}
		if err := transition(job, valueobject.EventCompletionSubmitted); err != nil {
			return err
		}
		now := s.now().UTC()
		job.CompletionSubmittedAt = &now
		return nil
	})
}

// Approve - заказчик принимает работу: удерживаемые средства выплачиваются, заказ завершён.
// Репутация начисляется обработчиком изменения после фиксации.
func (s *JobService) Approve(ctx context.Context, jobID, giverID uuid.UUID, rating *int) (*models.Job, error) {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}
	return s.mutate(ctx, jobID, giverID, valueobject.EventCompletionApproved, func(tx *sqlx.Tx, job *models.Job) error {
		if job.JobGiverID != giverID {
			return apperror.ErrNotJobGiver
		}
		if err := transition(job, valueobject.EventCompletionApproved); err != nil {
			return err
		}
		return s.complete(ctx, tx, job, rating)
	})
}

// complete выплачивает удерживаемое и ставит оценку. Статус уже должен быть Completed.
func (s *JobService) complete(ctx context.Context, tx *sqlx.Tx, job *models.Job, rating *int) error {
	released, err := s.escrow.ReleaseForJob(ctx, tx, job.ID)
	if err != nil {
		return err
	}
	if len(released) == 0 {
		logger.WithJob(job.ID).Warn("job: завершение без удерживаемых средств")
	}
	job.Rating = rating
	return nil
}

// RequestRevision возвращает работу установщику. Комментарий уходит в переписку заказа.
func (s *JobService) RequestRevision(ctx context.Context, jobID, giverID uuid.UUID, note string) (*models.Job, error) {
	return s.mutate(ctx, jobID, giverID, valueobject.EventRevisionRequested, func(_ *sqlx.Tx, job *models.Job) error {
		if job.JobGiverID != giverID {
			return apperror.ErrNotJobGiver
		}
		if err := transition(job, valueobject.EventRevisionRequested); err != nil {
			return err
		}
		job.CompletionSubmittedAt = nil
		if note = strings.TrimSpace(note); note != "" {
			job.PrivateMessages = append(job.PrivateMessages, models.PrivateMessage{
				ID:        uuid.New(),
				AuthorID:  giverID,
				Content:   note,
				Timestamp: s.now().UTC(),
			})
		}
		return nil
	})
}

// requireEscrow проверяет, что у заказа в оплачиваемом статусе есть хотя бы одна не-Failed транзакция.
func (s *JobService) requireEscrow(ctx context.Context, tx *sqlx.Tx, job *models.Job) error {
	if !job.Status.IsFunded() {
		return nil
	}
	active, err := s.escrow.CountActive(ctx, tx, job.ID)
	if err != nil {
		return err
	}
	if active == 0 {
		return apperror.New(apperror.ErrCodeConflict, "по заказу нет оплаты")
	}
	return nil
}

func newEscrowTxn(job *models.Job, kind, status string, split valueobject.EscrowSplit) *models.EscrowTransaction {
	return &models.EscrowTransaction{
		ID:                uuid.New(),
		JobID:             job.ID,
		Kind:              kind,
		Status:            status,
		Amount:            int64(split.Amount),
		JobGiverFee:       int64(split.JobGiverFee),
		Commission:        int64(split.Commission),
		PayoutToInstaller: int64(split.Payout),
		TotalPaidByGiver:  int64(split.TotalPaidByGiver),
		PayerID:           job.JobGiverID,
		PayeeID:           *job.AwardedInstallerID,
	}
}

// bidAmount возвращает последнюю ставку установщика.
func bidAmount(job *models.Job, installerID uuid.UUID) (int64, bool) {
	for i := len(job.Bids) - 1; i >= 0; i-- {
		if job.Bids[i].InstallerID == installerID {
			return job.Bids[i].Amount, true
		}
	}
	return 0, false
}

// generateOTP возвращает случайный цифровой код заданной длины.
func generateOTP(digits int) (string, error) {
	var b strings.Builder
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
