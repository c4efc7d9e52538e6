package models

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
)

// JobChange - зафиксированная пара снимков заказа до и после одной записи.
// Before равен nil, если заказ был создан этой записью.
type JobChange struct {
	Before *Job
	After  *Job
	// Actor - кто вызвал изменение. uuid.Nil для планировщика и внешних событий без автора.
	Actor uuid.UUID
}

// StatusChanged сообщает, что запись сменила статус.
func (c JobChange) StatusChanged() bool {
	return c.Before == nil || c.Before.Status != c.After.Status
}

// Became сообщает, что именно эта запись перевела заказ в status.
func (c JobChange) Became(status valueobject.JobStatus) bool {
	return c.After != nil && c.After.Status == status && c.StatusChanged()
}
