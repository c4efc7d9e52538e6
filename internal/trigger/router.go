package trigger

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
)

// UserReader отдаёт имена для текстов уведомлений.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// JobReader перечитывает заказ из хранилища.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

// ReputationAwarder начисляет репутацию за завершённый заказ.
type ReputationAwarder interface {
	AwardForJob(ctx context.Context, job *models.Job) ([]models.NotificationIntent, error)
}

// Notifier рассылает уведомления.
type Notifier interface {
	NotifyAll(ctx context.Context, intents []models.NotificationIntent)
}

// Router выполняет эффекты зафиксированного изменения заказа.
// Ошибки эффектов логируются и не возвращаются: запись заказа уже зафиксирована.
type Router struct {
	jobs       JobReader
	users      UserReader
	reputation ReputationAwarder
	notifier   Notifier
}

func NewRouter(jobs JobReader, users UserReader, reputation ReputationAwarder, notifier Notifier) *Router {
	return &Router{jobs: jobs, users: users, reputation: reputation, notifier: notifier}
}

// HandleChange вычисляет эффекты и выполняет их.
func (r *Router) HandleChange(ctx context.Context, change models.JobChange) {
	if change.After == nil {
		return
	}
	effects := Evaluate(change, r.names(ctx))
	intents := effects.Notifications

	if effects.AwardReputation {
		intents = append(intents, r.awardReputation(ctx, change.After.ID)...)
	}

	if len(intents) > 0 {
		r.notifier.NotifyAll(ctx, intents)
	}
}

// awardReputation начисляет очки по сохранённому заказу, а не по присланному снимку.
func (r *Router) awardReputation(ctx context.Context, jobID uuid.UUID) []models.NotificationIntent {
	log := logger.WithJob(jobID)
	job, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		log.WithError(err).Error("trigger: не удалось перечитать заказ для начисления репутации")
		return nil
	}
	if job.Status != valueobject.JobStatusCompleted {
		log.WithField("status", job.Status).Warn("trigger: заказ в хранилище не завершён, репутация не начисляется")
		return nil
	}
	intents, err := r.reputation.AwardForJob(ctx, job)
	if err != nil {
		log.WithError(err).Error("trigger: не удалось начислить репутацию")
	}
	return intents
}

// names кэширует имена на время обработки одного изменения.
func (r *Router) names(ctx context.Context) NameFunc {
	cache := make(map[uuid.UUID]string)
	return func(id uuid.UUID) string {
		if name, ok := cache[id]; ok {
			return name
		}
		name := ""
		user, err := r.users.GetByID(ctx, id)
		if err != nil {
			logger.Log.WithError(err).WithField("user_id", id.String()).Debug("trigger: имя пользователя недоступно")
		} else {
			name = user.Name
		}
		cache[id] = name
		return name
	}
}
