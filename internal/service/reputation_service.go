package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/metrics"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
	"github.com/ignatzorin/jobconnect-backend/internal/repository"
)

// Условия повышения до Pro Installer.
const (
	proMinCompletedJobs = 5
	proMinAverageRating = 4.5
)

// InstallerRepository - хранилище профилей установщиков.
type InstallerRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.InstallerProfile, error)
	AwardReputation(ctx context.Context, award models.ReputationAward, apply func(p *models.InstallerProfile) error) (*models.InstallerProfile, error)
	MarkPro(ctx context.Context, userID uuid.UUID) (bool, error)
	MarkVerified(ctx context.Context, userID uuid.UUID, limit int) (*models.InstallerProfile, error)
}

// InstallerStatsReader считает статистику установщика по заказам.
type InstallerStatsReader interface {
	InstallerStats(ctx context.Context, installerID uuid.UUID) (*models.InstallerStats, error)
}

// SettingsSource отдаёт актуальные настройки платформы.
type SettingsSource interface {
	Current(ctx context.Context) models.PlatformSettings
}

// Notifier - получатель уведомлений после фиксации изменений.
type Notifier interface {
	Notify(ctx context.Context, intent models.NotificationIntent)
	NotifyAll(ctx context.Context, intents []models.NotificationIntent)
}

// ReputationService - движок репутации и уровней установщиков.
type ReputationService struct {
	installers InstallerRepository
	stats      InstallerStatsReader
	settings   SettingsSource
	notifier   Notifier
	now        func() time.Time
}

func NewReputationService(installers InstallerRepository, stats InstallerStatsReader, settings SettingsSource, notifier Notifier) *ReputationService {
	return &ReputationService{
		installers: installers,
		stats:      stats,
		settings:   settings,
		notifier:   notifier,
		now:        time.Now,
	}
}

// ApplyReputation добавляет delta к очкам, пересчитывает уровень,
// обновляет запись месяца в истории и увеличивает число отзывов на один.
func ApplyReputation(p *models.InstallerProfile, delta int, thresholds valueobject.TierThresholds, month string) {
	p.Points += delta
	p.Tier = thresholds.TierFor(p.Points)
	p.ReputationHistory = p.ReputationHistory.Upsert(month, p.Points)
	p.Reviews++
}

// AwardForJob начисляет очки за завершённый заказ и возвращает уведомления для отправки.
// Повторная доставка по тому же заказу ничего не меняет и не считается ошибкой.
func (s *ReputationService) AwardForJob(ctx context.Context, job *models.Job) ([]models.NotificationIntent, error) {
	if job.Status != valueobject.JobStatusCompleted || job.AwardedInstallerID == nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "репутация начисляется только за завершённый заказ с исполнителем")
	}
	installerID := *job.AwardedInstallerID
	log := logger.WithJob(job.ID).WithField("installer_id", installerID.String())

	settings := s.settings.Current(ctx)
	points := settings.PointsFor(job.Rating)
	thresholds := settings.Thresholds()
	month := s.now().UTC().Format(models.ReputationMonthLayout)

	award := models.ReputationAward{
		JobID:       job.ID,
		InstallerID: installerID,
		Points:      points,
		Rating:      job.Rating,
	}
	profile, err := s.installers.AwardReputation(ctx, award, func(p *models.InstallerProfile) error {
		ApplyReputation(p, points, thresholds, month)
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrAlreadyAwarded):
		metrics.ReputationAwards.WithLabelValues("duplicate").Inc()
		log.Info("reputation: очки за заказ уже начислены, повтор пропущен")
		return nil, nil
	case err != nil:
		metrics.ReputationAwards.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("reputation service: award %w", err)
	}
	metrics.ReputationAwards.WithLabelValues("awarded").Inc()
	log.WithFields(logrus.Fields{"points": points, "total": profile.Points, "tier": profile.Tier}).
		Info("reputation: очки начислены")

	intents := []models.NotificationIntent{{
		UserID: installerID,
		Event:  "reputation.updated",
		Title:  "Reputation Updated!",
		Body:   fmt.Sprintf("You earned %d points for completing the job: \"%s\"", points, job.Title),
		Link:   "/dashboard/profile",
	}}

	promoted, err := s.promoteIfEligible(ctx, profile)
	if err != nil {
		// Повышение вторично: начисление уже зафиксировано.
		log.WithError(err).Warn("reputation: проверка на Pro не удалась")
	}
	if promoted {
		intents = append(intents, models.NotificationIntent{
			UserID: installerID,
			Event:  "installer.pro",
			Title:  "Congratulations! You're a Pro Installer!",
			Body:   "You have been promoted to a Pro Installer for your excellent performance.",
			Link:   "/dashboard/profile",
		})
	}
	return intents, nil
}

func (s *ReputationService) promoteIfEligible(ctx context.Context, profile *models.InstallerProfile) (bool, error) {
	if profile.IsPro {
		return false, nil
	}
	stats, err := s.stats.InstallerStats(ctx, profile.UserID)
	if err != nil {
		return false, err
	}
	if !QualifiesForPro(stats) {
		return false, nil
	}
	return s.installers.MarkPro(ctx, profile.UserID)
}

// QualifiesForPro - не меньше пяти завершённых заказов, средняя оценка от 4.5 и ни одного открытого спора.
func QualifiesForPro(stats *models.InstallerStats) bool {
	if stats == nil || stats.AverageRating == nil {
		return false
	}
	return stats.CompletedJobs >= proMinCompletedJobs &&
		*stats.AverageRating >= proMinAverageRating &&
		stats.UnresolvedDisputes == 0
}

// VerifyInstaller отмечает установщика проверенным. Первые FoundingInstallerLimit
// проверенных получают значок основателя и уведомление.
func (s *ReputationService) VerifyInstaller(ctx context.Context, userID uuid.UUID) (*models.InstallerProfile, error) {
	limit := s.settings.Current(ctx).FoundingInstallerLimit
	profile, err := s.installers.MarkVerified(ctx, userID, limit)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInstallerNotFound):
			return nil, apperror.ErrInstallerNotFound
		case errors.Is(err, repository.ErrAlreadyVerified):
			return nil, apperror.New(apperror.ErrCodeConflict, "установщик уже проверен")
		}
		return nil, fmt.Errorf("reputation service: verify %w", err)
	}

	if profile.IsFoundingInstaller {
		s.notifier.Notify(ctx, models.NotificationIntent{
			UserID: userID,
			Event:  "installer.founding",
			Title:  "Congratulations, You're a Founding Installer!",
			Body: fmt.Sprintf("You are one of the first %d installers to be verified on our platform. Enjoy your exclusive badge!",
				limit),
			Link: "/dashboard/profile",
		})
	}
	return profile, nil
}

// GetProfile возвращает репутацию установщика.
func (s *ReputationService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.InstallerProfile, error) {
	profile, err := s.installers.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrInstallerNotFound) {
			return nil, apperror.ErrInstallerNotFound
		}
		return nil, err
	}
	return profile, nil
}
