package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/metrics"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/push"
)

// DefaultNotificationLink - куда ведёт уведомление без явной ссылки.
const DefaultNotificationLink = "/dashboard"

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// PushTokenStore отдаёт и чистит push-токены пользователей.
type PushTokenStore interface {
	GetPushTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	RemovePushTokens(ctx context.Context, userID uuid.UUID, tokens []string) error
}

// PushSender - шлюз push-уведомлений.
type PushSender interface {
	SendMulticast(ctx context.Context, msg push.Message) (*push.Response, error)
}

// RealtimeBroadcaster доставляет событие в открытые WebSocket-соединения пользователя.
type RealtimeBroadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{})
}

// NotificationService - диспетчер уведомлений. Работает по принципу best-effort:
// ни один метод отправки не возвращает ошибку вызывающему, всё логируется.
type NotificationService struct {
	repo     NotificationRepository
	tokens   PushTokenStore
	sender   PushSender
	realtime RealtimeBroadcaster
}

// NewNotificationService создаёт новый сервис уведомлений.
func NewNotificationService(repo NotificationRepository, tokens PushTokenStore, sender PushSender) *NotificationService {
	return &NotificationService{repo: repo, tokens: tokens, sender: sender}
}

// SetRealtime подключает WebSocket hub после его создания.
func (s *NotificationService) SetRealtime(b RealtimeBroadcaster) {
	s.realtime = b
}

// Notify сохраняет уведомление во входящих, отправляет его в WebSocket и push.
func (s *NotificationService) Notify(ctx context.Context, intent models.NotificationIntent) {
	if intent.UserID == uuid.Nil {
		logger.Log.WithField("event", intent.Event).Debug("notify: получатель не указан, пропускаем")
		return
	}
	if intent.Link == "" {
		intent.Link = DefaultNotificationLink
	}
	log := logger.Log.WithFields(logrus.Fields{"user_id": intent.UserID.String(), "event": intent.Event})

	payload := intent.Payload()
	s.saveInbox(ctx, log, intent.UserID, payload)
	if s.realtime != nil {
		s.realtime.BroadcastToUser(intent.UserID, "notification", payload)
	}

	tokens, err := s.tokens.GetPushTokens(ctx, intent.UserID)
	if err != nil {
		metrics.Notifications.WithLabelValues("lookup_failed").Inc()
		log.WithError(err).Warn("notify: не удалось получить push-токены")
		return
	}
	if len(tokens) == 0 {
		metrics.Notifications.WithLabelValues("no_tokens").Inc()
		log.Debug("notify: у пользователя нет push-токенов")
		return
	}

	resp, err := s.sender.SendMulticast(ctx, push.Message{
		Tokens:   tokens,
		Title:    intent.Title,
		Body:     intent.Body,
		DeepLink: intent.Link,
	})
	if err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		log.WithError(err).Warn("notify: push не отправлен")
		return
	}

	for _, failed := range resp.Failed() {
		log.WithFields(logrus.Fields{"token": tokenSuffix(failed.Token), "reason": failed.Error}).
			Info("notify: доставка на устройство не удалась")
	}
	if stale := resp.Unregistered(); len(stale) > 0 {
		if err := s.tokens.RemovePushTokens(ctx, intent.UserID, stale); err != nil {
			log.WithError(err).Warn("notify: не удалось удалить устаревшие токены")
		}
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
}

// NotifyAll отправляет уведомления по порядку. Сбой одного не мешает остальным.
func (s *NotificationService) NotifyAll(ctx context.Context, intents []models.NotificationIntent) {
	for _, intent := range intents {
		s.Notify(ctx, intent)
	}
}

func (s *NotificationService) saveInbox(ctx context.Context, log *logrus.Entry, userID uuid.UUID, payload models.NotificationPayload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("notify: marshal payload")
		return
	}
	if err := s.repo.Create(ctx, &models.Notification{UserID: userID, Payload: raw}); err != nil {
		log.WithError(err).Warn("notify: не удалось сохранить во входящие")
	}
}

// ListNotifications возвращает входящие пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление пользователя прочитанным.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, id, userID); err != nil {
		return fmt.Errorf("notification service: %w", err)
	}
	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// tokenSuffix оставляет в логах только хвост токена.
func tokenSuffix(token string) string {
	if len(token) <= 6 {
		return token
	}
	return "…" + token[len(token)-6:]
}
