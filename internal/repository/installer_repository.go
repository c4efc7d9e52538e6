package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/repository/common"
)

var (
	ErrInstallerNotFound = errors.New("installer profile not found")
	ErrMalformedProfile  = errors.New("malformed installer profile")
	ErrAlreadyAwarded    = errors.New("reputation already awarded for job")
	ErrAlreadyVerified   = errors.New("installer already verified")
)

// foundingInstallerLock - ключ advisory-блокировки подсчёта «основателей».
const foundingInstallerLock = "founding_installers"

// InstallerRepository хранит репутацию установщиков.
type InstallerRepository struct {
	db *sqlx.DB
}

func NewInstallerRepository(db *sqlx.DB) *InstallerRepository {
	return &InstallerRepository{db: db}
}

// GetByUserID возвращает профиль установщика.
func (r *InstallerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.InstallerProfile, error) {
	var p models.InstallerProfile
	if err := r.db.GetContext(ctx, &p, `SELECT * FROM installer_profiles WHERE user_id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstallerNotFound
		}
		return nil, fmt.Errorf("installer repository: get %w", err)
	}
	return &p, nil
}

// Create заводит пустой профиль (используется при регистрации и в тестах).
func (r *InstallerRepository) Create(ctx context.Context, p *models.InstallerProfile) error {
	query := `
		INSERT INTO installer_profiles (user_id, points, tier, reviews, reputation_history)
		VALUES (:user_id, :points, :tier, :reviews, :reputation_history)
		RETURNING updated_at
	`
	rows, err := r.db.NamedQueryContext(ctx, query, p)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("installer repository: create %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&p.UpdatedAt); err != nil {
			return fmt.Errorf("installer repository: create scan %w", err)
		}
	}
	return rows.Err()
}

// AwardReputation начисляет очки за заказ одной транзакцией:
// блокирует профиль, записывает начисление в журнал (повтор по тому же заказу ничего не меняет),
// применяет apply к профилю и сохраняет его.
// Возвращает ErrAlreadyAwarded, если за этот заказ очки уже начислены.
func (r *InstallerRepository) AwardReputation(
	ctx context.Context,
	award models.ReputationAward,
	apply func(p *models.InstallerProfile) error,
) (*models.InstallerProfile, error) {
	var profile models.InstallerProfile
	err := common.WithTransactionRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &profile,
			`SELECT * FROM installer_profiles WHERE user_id = $1 FOR UPDATE`, award.InstallerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInstallerNotFound
			}
			return fmt.Errorf("installer repository: lock profile %w", err)
		}
		if !profile.Valid() {
			return fmt.Errorf("%w: %s", ErrMalformedProfile, award.InstallerID)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO reputation_awards (job_id, installer_id, points, rating)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (job_id) DO NOTHING
		`, award.JobID, award.InstallerID, award.Points, award.Rating)
		if err != nil {
			return fmt.Errorf("installer repository: record award %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadyAwarded
		}

		if err := apply(&profile); err != nil {
			return err
		}

		if _, err := tx.NamedExecContext(ctx, `
			UPDATE installer_profiles SET
				points = :points,
				tier = :tier,
				reviews = :reviews,
				reputation_history = :reputation_history,
				updated_at = NOW()
			WHERE user_id = :user_id
		`, &profile); err != nil {
			return fmt.Errorf("installer repository: save reputation %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// MarkPro ставит отметку Pro, если её ещё не было. Возвращает true, если отметка поставлена сейчас.
func (r *InstallerRepository) MarkPro(ctx context.Context, userID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE installer_profiles SET is_pro = TRUE, updated_at = NOW() WHERE user_id = $1 AND NOT is_pro`, userID)
	if err != nil {
		return false, fmt.Errorf("installer repository: mark pro %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("installer repository: mark pro rows %w", err)
	}
	return n > 0, nil
}

// MarkVerified отмечает профиль проверенным и, пока «основателей» меньше limit,
// выдаёт значок «основатель». Подсчёт и запись сериализуются advisory-блокировкой.
func (r *InstallerRepository) MarkVerified(ctx context.Context, userID uuid.UUID, limit int) (*models.InstallerProfile, error) {
	var profile models.InstallerProfile
	err := common.WithTransactionRetry(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, foundingInstallerLock); err != nil {
			return fmt.Errorf("installer repository: advisory lock %w", err)
		}
		if err := tx.GetContext(ctx, &profile,
			`SELECT * FROM installer_profiles WHERE user_id = $1 FOR UPDATE`, userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInstallerNotFound
			}
			return fmt.Errorf("installer repository: lock profile %w", err)
		}
		if profile.Verified {
			return ErrAlreadyVerified
		}

		var founding int
		if err := tx.GetContext(ctx, &founding, `SELECT COUNT(*) FROM installer_profiles WHERE is_founding_installer`); err != nil {
			return fmt.Errorf("installer repository: count founding %w", err)
		}

		return tx.GetContext(ctx, &profile, `
			UPDATE installer_profiles SET
				verified = TRUE,
				verified_at = NOW(),
				is_founding_installer = $2,
				updated_at = NOW()
			WHERE user_id = $1
			RETURNING *
		`, userID, founding < limit)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
