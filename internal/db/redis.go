package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
)

// NewRedis создаёт клиента Redis и проверяет соединение.
// Клиент возвращается и при неудачной проверке: go-redis переподключится сам.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return client, fmt.Errorf("redis: не удалось подключиться к %s: %w", cfg.Addr, err)
	}
	return client, nil
}
