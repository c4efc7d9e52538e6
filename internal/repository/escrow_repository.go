package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/repository/common"
)

var (
	ErrEscrowNotFound      = errors.New("escrow transaction not found")
	ErrEscrowAlreadyFunded = errors.New("job already has funded primary escrow")
	ErrEscrowWrongState    = errors.New("escrow transaction is not in expected state")
)

// EscrowRepository ведёт журнал escrow-транзакций заказа.
// Записи не удаляются; каждая меняет статус не больше одного раза после создания.
type EscrowRepository struct {
	db *sqlx.DB
}

func NewEscrowRepository(db *sqlx.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

// Create добавляет транзакцию в рамках tx. Вторая удерживаемая основная оплата отклоняется индексом.
func (r *EscrowRepository) Create(ctx context.Context, tx *sqlx.Tx, txn *models.EscrowTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	query := `
		INSERT INTO escrow_transactions (
			id, job_id, kind, status, amount, job_giver_fee, commission,
			payout_to_installer, total_paid_by_giver, payer_id, payee_id,
			description, gateway_order_id, funded_at
		) VALUES (
			:id, :job_id, :kind, :status, :amount, :job_giver_fee, :commission,
			:payout_to_installer, :total_paid_by_giver, :payer_id, :payee_id,
			:description, :gateway_order_id, :funded_at
		)
		RETURNING created_at
	`
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("escrow repository: create prepare %w", err)
	}
	defer stmt.Close()

	if err := stmt.GetContext(ctx, &txn.CreatedAt, txn); err != nil {
		if common.IsUniqueViolation(err) {
			return ErrEscrowAlreadyFunded
		}
		return fmt.Errorf("escrow repository: create %w", err)
	}
	return nil
}

// GetByID возвращает транзакцию.
func (r *EscrowRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	return common.GetByID[models.EscrowTransaction](ctx, r.db, "escrow_transactions", id, ErrEscrowNotFound)
}

// ListByJob возвращает все транзакции заказа в порядке создания.
func (r *EscrowRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]models.EscrowTransaction, error) {
	var txns []models.EscrowTransaction
	query := `SELECT * FROM escrow_transactions WHERE job_id = $1 ORDER BY created_at, id`
	if err := r.db.SelectContext(ctx, &txns, query, jobID); err != nil {
		return nil, fmt.Errorf("escrow repository: list by job %w", err)
	}
	return txns, nil
}

// CountActive считает не-Failed транзакции заказа внутри tx.
func (r *EscrowRepository) CountActive(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM escrow_transactions WHERE job_id = $1 AND status <> $2`
	if err := tx.GetContext(ctx, &count, query, jobID, models.EscrowStatusFailed); err != nil {
		return 0, fmt.Errorf("escrow repository: count active %w", err)
	}
	return count, nil
}

// ReleaseForJob выплачивает все удерживаемые средства заказа.
func (r *EscrowRepository) ReleaseForJob(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) ([]models.EscrowTransaction, error) {
	var released []models.EscrowTransaction
	query := `
		UPDATE escrow_transactions
		SET status = $2, released_at = NOW()
		WHERE job_id = $1 AND status = $3
		RETURNING *
	`
	if err := tx.SelectContext(ctx, &released, query, jobID, models.EscrowStatusReleased, models.EscrowStatusFunded); err != nil {
		return nil, fmt.Errorf("escrow repository: release %w", err)
	}
	return released, nil
}

// RefundForJob возвращает заказчику удерживаемые и ещё не подтверждённые оплаты.
func (r *EscrowRepository) RefundForJob(ctx context.Context, tx *sqlx.Tx, jobID uuid.UUID) ([]models.EscrowTransaction, error) {
	var refunded []models.EscrowTransaction
	query := `
		UPDATE escrow_transactions
		SET status = $2, refunded_at = NOW()
		WHERE job_id = $1 AND status IN ($3, $4)
		RETURNING *
	`
	if err := tx.SelectContext(ctx, &refunded, query, jobID,
		models.EscrowStatusRefunded, models.EscrowStatusFunded, models.EscrowStatusInitiated,
	); err != nil {
		return nil, fmt.Errorf("escrow repository: refund %w", err)
	}
	return refunded, nil
}

// FailInitiatedForJobs помечает неподтверждённые оплаты отменённых заказов как Failed.
func (r *EscrowRepository) FailInitiatedForJobs(ctx context.Context, tx *sqlx.Tx, jobIDs []uuid.UUID) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE escrow_transactions
		SET status = $1, failed_at = NOW()
		WHERE job_id = ANY($2::uuid[]) AND status = $3
	`, models.EscrowStatusFailed, pq.Array(uuidStrings(jobIDs)), models.EscrowStatusInitiated)
	if err != nil {
		return 0, fmt.Errorf("escrow repository: fail initiated %w", err)
	}
	return res.RowsAffected()
}

// Transition переводит одну транзакцию из from в to под блокировкой строки.
func (r *EscrowRepository) Transition(ctx context.Context, id uuid.UUID, from, to string, gatewayOrderID *string) (*models.EscrowTransaction, error) {
	var txn models.EscrowTransaction
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &txn, `SELECT * FROM escrow_transactions WHERE id = $1 FOR UPDATE`, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrEscrowNotFound
			}
			return fmt.Errorf("escrow repository: lock %w", err)
		}
		if txn.Status != from {
			return fmt.Errorf("%w: %s is %s, want %s", ErrEscrowWrongState, id, txn.Status, from)
		}

		query := `
			UPDATE escrow_transactions SET
				status = $2,
				gateway_order_id = COALESCE($3, gateway_order_id),
				funded_at   = CASE WHEN $2 = 'Funded'   THEN NOW() ELSE funded_at END,
				released_at = CASE WHEN $2 = 'Released' THEN NOW() ELSE released_at END,
				refunded_at = CASE WHEN $2 = 'Refunded' THEN NOW() ELSE refunded_at END,
				failed_at   = CASE WHEN $2 = 'Failed'   THEN NOW() ELSE failed_at END
			WHERE id = $1
			RETURNING *
		`
		if err := tx.GetContext(ctx, &txn, query, id, to, gatewayOrderID); err != nil {
			if common.IsUniqueViolation(err) {
				return ErrEscrowAlreadyFunded
			}
			return fmt.Errorf("escrow repository: transition %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &txn, nil
}
