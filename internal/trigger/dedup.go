package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/metrics"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

const dedupKeyPrefix = "jobconnect:event:"

// Deduplicator отбрасывает повторные доставки внешних событий по их идентификатору.
type Deduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduplicator(client *redis.Client, ttl time.Duration) *Deduplicator {
	return &Deduplicator{client: client, ttl: ttl}
}

// FirstDelivery возвращает true, если событие с таким идентификатором видим впервые за ttl.
func (d *Deduplicator) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKeyPrefix+eventID, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: setnx %w", err)
	}
	if !ok {
		metrics.DuplicateEvents.Inc()
	}
	return ok, nil
}

// ChangeHandler - получатель изменений заказа.
type ChangeHandler interface {
	HandleChange(ctx context.Context, change models.JobChange)
}

// Ingestor принимает изменения заказа, пришедшие извне с доставкой «хотя бы один раз».
type Ingestor struct {
	dedup   *Deduplicator
	handler ChangeHandler
}

func NewIngestor(dedup *Deduplicator, handler ChangeHandler) *Ingestor {
	return &Ingestor{dedup: dedup, handler: handler}
}

// Ingest обрабатывает событие, если оно не повтор. Недоступный Redis не блокирует обработку.
func (i *Ingestor) Ingest(ctx context.Context, eventID string, change models.JobChange) bool {
	first, err := i.dedup.FirstDelivery(ctx, eventID)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", eventID).Warn("trigger: дедупликация недоступна, событие обрабатывается")
		first = true
	}
	if !first {
		logger.Log.WithField("event_id", eventID).Debug("trigger: повторная доставка пропущена")
		return false
	}
	i.handler.HandleChange(ctx, change)
	return true
}
