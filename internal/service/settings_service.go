package service

import (
	"context"
	"sync"
	"time"

	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
)

// SettingsRepository читает сохранённые настройки платформы.
type SettingsRepository interface {
	Get(ctx context.Context) (*models.PlatformSettings, error)
	Put(ctx context.Context, s models.PlatformSettings) error
}

// SettingsProvider держит настройки платформы в памяти и перечитывает их раз в ttl.
// Если хранилище недоступно, отдаёт последнюю удачную версию, а до первой - значения по умолчанию.
type SettingsProvider struct {
	repo SettingsRepository
	ttl  time.Duration
	now  func() time.Time

	mu        sync.RWMutex
	current   models.PlatformSettings
	expiresAt time.Time
}

// NewSettingsProvider создаёт провайдер с настройками по умолчанию.
func NewSettingsProvider(repo SettingsRepository, ttl time.Duration) *SettingsProvider {
	return &SettingsProvider{
		repo:    repo,
		ttl:     ttl,
		now:     time.Now,
		current: models.DefaultPlatformSettings(),
	}
}

// Load читает настройки сразу, без учёта ttl. Вызывается при старте процесса.
func (p *SettingsProvider) Load(ctx context.Context) error {
	stored, err := p.repo.Get(ctx)
	if err != nil {
		return err
	}
	settings := stored.WithDefaults()

	p.mu.Lock()
	p.current = settings
	p.expiresAt = p.now().Add(p.ttl)
	p.mu.Unlock()
	return nil
}

// Current возвращает действующие настройки, при необходимости обновив их.
func (p *SettingsProvider) Current(ctx context.Context) models.PlatformSettings {
	p.mu.RLock()
	settings, fresh := p.current, p.now().Before(p.expiresAt)
	p.mu.RUnlock()
	if fresh {
		return settings
	}

	if err := p.Load(ctx); err != nil {
		logger.Log.WithError(err).Warn("settings: не удалось обновить настройки платформы, используем прежние")
		p.mu.Lock()
		// Не долбим БД на каждом вызове, пока она лежит.
		p.expiresAt = p.now().Add(p.ttl)
		p.mu.Unlock()
		return settings
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Update сохраняет новые настройки и сразу делает их действующими.
func (p *SettingsProvider) Update(ctx context.Context, settings models.PlatformSettings) (models.PlatformSettings, error) {
	settings = settings.WithDefaults()
	if err := validateSettings(settings); err != nil {
		return models.PlatformSettings{}, err
	}
	if err := p.repo.Put(ctx, settings); err != nil {
		return models.PlatformSettings{}, err
	}

	p.mu.Lock()
	p.current = settings
	p.expiresAt = p.now().Add(p.ttl)
	p.mu.Unlock()
	logger.Log.Info("settings: настройки платформы обновлены")
	return settings, nil
}

func validateSettings(s models.PlatformSettings) error {
	if !(s.SilverTierPoints < s.GoldTierPoints && s.GoldTierPoints < s.PlatinumTierPoints) {
		return apperror.New(apperror.ErrCodeValidation, "пороги уровней должны возрастать: Silver < Gold < Platinum")
	}
	if s.JobGiverFeeRate < 0 || s.JobGiverFeeRate >= 100 || s.InstallerCommission < 0 || s.InstallerCommission >= 100 {
		return apperror.New(apperror.ErrCodeValidation, "комиссии должны быть в диапазоне от 0 до 100%")
	}
	if s.FoundingInstallerLimit < 0 {
		return apperror.New(apperror.ErrCodeValidation, "лимит основателей не может быть отрицательным")
	}
	return nil
}
