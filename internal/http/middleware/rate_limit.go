package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/ignatzorin/jobconnect-backend/internal/logger"
)

const rateLimitPrefix = "jobconnect:ratelimit"

// RateLimitMiddleware ограничивает число запросов с одного IP.
// При client == nil счётчики живут в памяти процесса.
// По умолчанию: 10 запросов в минуту.
func RateLimitMiddleware(client *redis.Client, limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 10
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	rate := limiter.Rate{Period: period, Limit: limit}
	instance := limiter.New(newLimiterStore(client), rate)

	return func(c *gin.Context) {
		context, err := instance.Get(c, c.ClientIP())
		if err != nil {
			// Лимитер недоступен: пропускаем запрос.
			logger.Log.WithError(err).Warn("rate limit: счётчик недоступен")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", context.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", context.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", context.Reset))

		if context.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "слишком много запросов, попробуйте позже",
			})
			return
		}

		c.Next()
	}
}

func newLimiterStore(client *redis.Client) limiter.Store {
	if client == nil {
		return memory.NewStore()
	}
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
	if err != nil {
		logger.Log.WithError(err).Warn("rate limit: redis-хранилище недоступно, считаем в памяти")
		return memory.NewStore()
	}
	return store
}
