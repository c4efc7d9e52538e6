package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/repository/common"
)

// ReconciliationRepository - пакетные записи планировщика, затрагивающие несколько таблиц.
type ReconciliationRepository struct {
	db     *sqlx.DB
	jobs   *JobRepository
	escrow *EscrowRepository
}

func NewReconciliationRepository(db *sqlx.DB, jobs *JobRepository, escrow *EscrowRepository) *ReconciliationRepository {
	return &ReconciliationRepository{db: db, jobs: jobs, escrow: escrow}
}

// CancelUnfunded одной транзакцией отменяет неоплаченные заказы и закрывает их
// неподтверждённые оплаты. Заказы, оплаченные после выборки, не затрагиваются.
func (r *ReconciliationRepository) CancelUnfunded(ctx context.Context, ids []uuid.UUID, cutoff time.Time, reason string) ([]uuid.UUID, int64, error) {
	var (
		cancelled []uuid.UUID
		failed    int64
	)
	err := common.WithTransactionRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		cancelled, err = r.jobs.CancelUnfunded(ctx, tx, ids, cutoff, reason)
		if err != nil {
			return err
		}
		failed, err = r.escrow.FailInitiatedForJobs(ctx, tx, cancelled)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return cancelled, failed, nil
}
