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
)

// ErrUserNotFound возвращается, когда пользователь не найден.
var ErrUserNotFound = errors.New("user not found")

// UserRepository читает пользователей и их push-токены.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID возвращает пользователя.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}
	return &user, nil
}

// GetPushTokens возвращает зарегистрированные push-токены пользователя.
func (r *UserRepository) GetPushTokens(ctx context.Context, id uuid.UUID) ([]string, error) {
	var tokens pq.StringArray
	if err := r.db.GetContext(ctx, &tokens, `SELECT push_tokens FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get push tokens %w", err)
	}
	return tokens, nil
}

// RemovePushTokens удаляет токены, которые шлюз признал недействительными.
func (r *UserRepository) RemovePushTokens(ctx context.Context, id uuid.UUID, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET push_tokens = ARRAY(SELECT t FROM unnest(push_tokens) AS t WHERE NOT (t = ANY($2)))
		WHERE id = $1
	`, id, pq.Array(tokens))
	if err != nil {
		return fmt.Errorf("user repository: remove push tokens %w", err)
	}
	return nil
}
