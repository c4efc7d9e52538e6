package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Роли пользователей.
const (
	RoleJobGiver  = "job_giver"
	RoleInstaller = "installer"
	RoleAdmin     = "admin"
)

// User - учётная запись. Создаётся вне этого сервиса, здесь только читается.
type User struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Email      string         `db:"email" json:"email"`
	Role       string         `db:"role" json:"role"`
	PushTokens pq.StringArray `db:"push_tokens" json:"-"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}
