package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

// platformSettingsID - единственная строка настроек платформы.
const platformSettingsID = "platform"

// SettingsRepository читает настройки платформы.
type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get возвращает сохранённые настройки. Отсутствующие поля остаются нулевыми,
// подстановку значений по умолчанию делает вызывающий.
func (r *SettingsRepository) Get(ctx context.Context) (*models.PlatformSettings, error) {
	var rec models.SettingsRecord
	err := r.db.GetContext(ctx, &rec, `SELECT data, updated_at FROM platform_settings WHERE id = $1`, platformSettingsID)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.PlatformSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings repository: get %w", err)
	}

	var s models.PlatformSettings
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &s); err != nil {
			return nil, fmt.Errorf("settings repository: decode %w", err)
		}
	}
	return &s, nil
}

// Put сохраняет настройки целиком.
func (r *SettingsRepository) Put(ctx context.Context, s models.PlatformSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings repository: encode %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO platform_settings (id, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, platformSettingsID, data)
	if err != nil {
		return fmt.Errorf("settings repository: put %w", err)
	}
	return nil
}
