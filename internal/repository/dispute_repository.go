package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/repository/common"
)

var ErrDisputeNotFound = errors.New("dispute not found")

// DisputeRepository хранит споры по заказам.
type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create открывает спор в рамках транзакции заказа.
func (r *DisputeRepository) Create(ctx context.Context, tx *sqlx.Tx, d *models.Dispute) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = models.DisputeStatusOpen
	}
	query := `
		INSERT INTO disputes (id, job_id, raised_by, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := tx.QueryRowxContext(ctx, query, d.ID, d.JobID, d.RaisedBy, d.Reason, d.Status).Scan(&d.CreatedAt); err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}
	return nil
}

// GetByID возвращает спор.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	return common.GetByID[models.Dispute](ctx, r.db, "disputes", id, ErrDisputeNotFound)
}

// Resolve закрывает спор в рамках транзакции заказа.
func (r *DisputeRepository) Resolve(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, resolution string, resolvedBy uuid.UUID) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE disputes
		SET status = $2, resolution = $3, resolved_by = $4, resolved_at = NOW()
		WHERE id = $1 AND status <> $2
	`, id, models.DisputeStatusResolved, resolution, resolvedBy)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDisputeNotFound
	}
	return nil
}

// CountOpenOlderThan считает неразрешённые споры, открытые до before.
func (r *DisputeRepository) CountOpenOlderThan(ctx context.Context, before time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM disputes WHERE status <> $1 AND created_at <= $2`
	if err := r.db.GetContext(ctx, &count, query, models.DisputeStatusResolved, before); err != nil {
		return 0, fmt.Errorf("dispute repository: count open %w", err)
	}
	return count, nil
}
