package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/repository/common"
)

// ErrJobNotFound возвращается, когда заказа нет.
var ErrJobNotFound = errors.New("job not found")

// ErrNoChange возвращает функция изменения, если менять нечего. Mutate откатывает транзакцию без ошибки.
var ErrNoChange = errors.New("no change")

// JobRepository хранит заказы и их жизненный цикл.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository создаёт репозиторий заказов.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// DB отдаёт соединение для операций, которые собирают свою транзакцию из нескольких репозиториев.
func (r *JobRepository) DB() *sqlx.DB {
	return r.db
}

// Create сохраняет новый заказ.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}

	query := `
		INSERT INTO jobs (
			id, title, status, job_giver_id, awarded_installer_id, award_strategy,
			selected_installers, disqualified_installer_ids, bids, private_messages,
			bidding_deadline, acceptance_deadline, funding_deadline, job_start_date
		) VALUES (
			:id, :title, :status, :job_giver_id, :awarded_installer_id, :award_strategy,
			:selected_installers, :disqualified_installer_ids, :bids, :private_messages,
			:bidding_deadline, :acceptance_deadline, :funding_deadline, :job_start_date
		)
		RETURNING created_at, updated_at
	`
	rows, err := r.db.NamedQueryContext(ctx, query, jobParams(job))
	if err != nil {
		return fmt.Errorf("job repository: create %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
			return fmt.Errorf("job repository: create scan %w", err)
		}
	}
	return rows.Err()
}

// GetByID возвращает заказ, проверив его форму.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return r.get(ctx, r.db, `SELECT * FROM jobs WHERE id = $1`, id)
}

// GetForUpdate читает и блокирует строку заказа до конца транзакции.
func (r *JobRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*models.Job, error) {
	return r.get(ctx, tx, `SELECT * FROM jobs WHERE id = $1 FOR UPDATE`, id)
}

func (r *JobRepository) get(ctx context.Context, q sqlx.QueryerContext, query string, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := sqlx.GetContext(ctx, q, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("job repository: get %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("job repository: %s %w", id, err)
	}
	return &job, nil
}

// Save перезаписывает изменяемые поля заказа внутри транзакции.
func (r *JobRepository) Save(ctx context.Context, tx *sqlx.Tx, job *models.Job) error {
	query := `
		UPDATE jobs SET
			status_changed_at = CASE WHEN status <> :status THEN NOW() ELSE status_changed_at END,
			status = :status,
			awarded_installer_id = :awarded_installer_id,
			award_strategy = :award_strategy,
			selected_installers = :selected_installers,
			disqualified_installer_ids = :disqualified_installer_ids,
			bids = :bids,
			private_messages = :private_messages,
			bidding_deadline = :bidding_deadline,
			acceptance_deadline = :acceptance_deadline,
			funding_deadline = :funding_deadline,
			rating = :rating,
			date_change_proposal = :date_change_proposal,
			job_start_date = :job_start_date,
			dispute_id = :dispute_id,
			start_otp_hash = :start_otp_hash,
			work_started_at = :work_started_at,
			completion_submitted_at = :completion_submitted_at,
			cancellation_reason = :cancellation_reason,
			cancellation_proposed_by = :cancellation_proposed_by,
			updated_at = NOW()
		WHERE id = :id
		RETURNING updated_at
	`
	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("job repository: save prepare %w", err)
	}
	defer stmt.Close()

	if err := stmt.GetContext(ctx, &job.UpdatedAt, jobParams(job)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrJobNotFound
		}
		return fmt.Errorf("job repository: save %w", err)
	}
	return nil
}

// Mutate блокирует заказ, применяет fn к его копии и сохраняет результат одной транзакцией.
// fn может вернуть ErrNoChange - тогда транзакция откатывается, а Mutate возвращает nil, nil.
// При deadlock/serialization failure вся операция повторяется с повторным чтением.
func (r *JobRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(tx *sqlx.Tx, job *models.Job) error) (*models.JobChange, error) {
	var change *models.JobChange
	err := common.WithTransactionRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		change = nil
		job, err := r.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		before := job.Clone()

		if err := fn(tx, job); err != nil {
			return err
		}
		if err := job.Validate(); err != nil {
			return err
		}
		if err := r.Save(ctx, tx, job); err != nil {
			return err
		}
		change = &models.JobChange{Before: before, After: job}
		return nil
	})
	if errors.Is(err, ErrNoChange) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return change, nil
}

// ListExpiredAwards возвращает заказы в Awarded с истёкшим сроком ответа.
// Страницы идут по id после after, начиная с uuid.Nil.
func (r *JobRepository) ListExpiredAwards(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT id FROM jobs
		WHERE status = $1 AND acceptance_deadline IS NOT NULL AND acceptance_deadline < $2
		  AND id > $3
		ORDER BY id
		LIMIT $4
	`
	if err := r.db.SelectContext(ctx, &ids, query, valueobject.JobStatusAwarded, now, after, limit); err != nil {
		return nil, fmt.Errorf("job repository: list expired awards %w", err)
	}
	return ids, nil
}

// ListBiddingExpired возвращает открытые заказы, у которых прошёл срок приёма ставок.
func (r *JobRepository) ListBiddingExpired(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT id FROM jobs
		WHERE status = $1 AND bidding_deadline IS NOT NULL AND bidding_deadline < $2
		  AND id > $3
		ORDER BY id
		LIMIT $4
	`
	if err := r.db.SelectContext(ctx, &ids, query, valueobject.JobStatusOpenForBidding, now, after, limit); err != nil {
		return nil, fmt.Errorf("job repository: list bidding expired %w", err)
	}
	return ids, nil
}

// ListStaleUnfunded возвращает неоплаченные заказы, у которых fundingDeadline не позже cutoff.
func (r *JobRepository) ListStaleUnfunded(ctx context.Context, cutoff time.Time) ([]models.Job, error) {
	var jobs []models.Job
	query := `
		SELECT * FROM jobs
		WHERE status = $1 AND funding_deadline IS NOT NULL AND funding_deadline <= $2
		ORDER BY funding_deadline
	`
	if err := r.db.SelectContext(ctx, &jobs, query, valueobject.JobStatusPendingFunding, cutoff); err != nil {
		return nil, fmt.Errorf("job repository: list stale unfunded %w", err)
	}
	return jobs, nil
}

// CancelUnfunded одним запросом отменяет заказы из ids, которые всё ещё подходят под условие.
// Возвращает идентификаторы реально отменённых заказов.
func (r *JobRepository) CancelUnfunded(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID, cutoff time.Time, reason string) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var cancelled []uuid.UUID
	query := `
		UPDATE jobs SET
			status = $1,
			cancellation_reason = $2,
			status_changed_at = NOW(),
			updated_at = NOW()
		WHERE id = ANY($3::uuid[])
		  AND status = $4
		  AND funding_deadline <= $5
		RETURNING id
	`
	if err := tx.SelectContext(ctx, &cancelled, query,
		valueobject.JobStatusCancelled, reason, pq.Array(uuidStrings(ids)),
		valueobject.JobStatusPendingFunding, cutoff,
	); err != nil {
		return nil, fmt.Errorf("job repository: cancel unfunded %w", err)
	}
	return cancelled, nil
}

// ListAwaitingConfirmation возвращает заказы, сданные на проверку не позже before.
func (r *JobRepository) ListAwaitingConfirmation(ctx context.Context, before time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := `
		SELECT id FROM jobs
		WHERE status = $1 AND completion_submitted_at IS NOT NULL AND completion_submitted_at <= $2
		  AND id > $3
		ORDER BY id
		LIMIT $4
	`
	if err := r.db.SelectContext(ctx, &ids, query, valueobject.JobStatusPendingConfirmation, before, after, limit); err != nil {
		return nil, fmt.Errorf("job repository: list awaiting confirmation %w", err)
	}
	return ids, nil
}

// CountStuck считает заказы, находящиеся в статусе с момента before или дольше.
func (r *JobRepository) CountStuck(ctx context.Context, status valueobject.JobStatus, before time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM jobs WHERE status = $1 AND status_changed_at <= $2`
	if err := r.db.GetContext(ctx, &count, query, status, before); err != nil {
		return 0, fmt.Errorf("job repository: count stuck %w", err)
	}
	return count, nil
}

// InstallerStats собирает статистику установщика для повышения до Pro.
func (r *JobRepository) InstallerStats(ctx context.Context, installerID uuid.UUID) (*models.InstallerStats, error) {
	var stats models.InstallerStats
	query := `
		SELECT
			COUNT(*) FILTER (WHERE j.status = $2) AS completed_jobs,
			AVG(j.rating) FILTER (WHERE j.status = $2 AND j.rating IS NOT NULL)::float8 AS average_rating,
			(
				SELECT COUNT(*) FROM disputes d
				JOIN jobs dj ON dj.id = d.job_id
				WHERE dj.awarded_installer_id = $1 AND d.status <> $3
			) AS unresolved_disputes
		FROM jobs j
		WHERE j.awarded_installer_id = $1
	`
	if err := r.db.GetContext(ctx, &stats, query, installerID, valueobject.JobStatusCompleted, models.DisputeStatusResolved); err != nil {
		return nil, fmt.Errorf("job repository: installer stats %w", err)
	}
	return &stats, nil
}

// jobParams готовит именованные параметры: JSONB и массивы должны уйти через свои Valuer.
func jobParams(job *models.Job) map[string]interface{} {
	return map[string]interface{}{
		"id":                         job.ID,
		"title":                      job.Title,
		"status":                     job.Status,
		"job_giver_id":               job.JobGiverID,
		"awarded_installer_id":       job.AwardedInstallerID,
		"award_strategy":             job.AwardStrategy,
		"selected_installers":        job.SelectedInstallers,
		"disqualified_installer_ids": job.DisqualifiedInstallerIDs,
		"bids":                       job.Bids,
		"private_messages":           job.PrivateMessages,
		"bidding_deadline":           job.BiddingDeadline,
		"acceptance_deadline":        job.AcceptanceDeadline,
		"funding_deadline":           job.FundingDeadline,
		"rating":                     job.Rating,
		"date_change_proposal":       job.DateChangeProposal,
		"job_start_date":             job.JobStartDate,
		"dispute_id":                 job.DisputeID,
		"start_otp_hash":             job.StartOTPHash,
		"work_started_at":            job.WorkStartedAt,
		"completion_submitted_at":    job.CompletionSubmittedAt,
		"cancellation_reason":        job.CancellationReason,
		"cancellation_proposed_by":   job.CancellationProposedBy,
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
