// Package app собирает сервисы заказов из репозиториев. Используется сервером и jobctl.
package app

import (
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/push"
	"github.com/ignatzorin/jobconnect-backend/internal/repository"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
	"github.com/ignatzorin/jobconnect-backend/internal/trigger"
)

// Services - готовый к работе набор сервисов.
type Services struct {
	Settings       *service.SettingsProvider
	Notifications  *service.NotificationService
	Reputation     *service.ReputationService
	Changes        *trigger.Router
	Jobs           *service.JobService
	Escrow         *service.EscrowService
	Reconciliation *service.ReconciliationService
}

// NewServices связывает репозитории и сервисы. Настройки платформы не загружаются:
// до первого Load действуют значения по умолчанию.
func NewServices(cfg *config.Config, dbConn *sqlx.DB) *Services {
	jobRepo := repository.NewJobRepository(dbConn)
	escrowRepo := repository.NewEscrowRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	installerRepo := repository.NewInstallerRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	settingsRepo := repository.NewSettingsRepository(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	reconciliationRepo := repository.NewReconciliationRepository(dbConn, jobRepo, escrowRepo)

	settings := service.NewSettingsProvider(settingsRepo, cfg.SettingsTTL)
	notifications := service.NewNotificationService(
		notificationRepo, userRepo, push.NewClient(cfg.Push.GatewayURL, cfg.Push.Token, cfg.Push.Timeout),
	)
	reputation := service.NewReputationService(installerRepo, jobRepo, settings, notifications)
	changes := trigger.NewRouter(jobRepo, userRepo, reputation, notifications)
	jobs := service.NewJobService(jobRepo, escrowRepo, disputeRepo, settings, changes, notifications, cfg.Lifecycle)

	return &Services{
		Settings:       settings,
		Notifications:  notifications,
		Reputation:     reputation,
		Changes:        changes,
		Jobs:           jobs,
		Escrow:         service.NewEscrowService(escrowRepo, jobRepo),
		Reconciliation: service.NewReconciliationService(
			jobs, jobRepo, reconciliationRepo, disputeRepo, notifications, cfg.Lifecycle,
		),
	}
}
