package models

import (
	"time"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
)

// PlatformSettings - настраиваемые администратором параметры платформы.
// Поля без значения в БД берутся из DefaultPlatformSettings.
type PlatformSettings struct {
	PointsForJobCompletion int     `json:"pointsForJobCompletion"`
	PointsFor5StarRating   int     `json:"pointsFor5StarRating"`
	PointsFor4StarRating   int     `json:"pointsFor4StarRating"`
	PenaltyFor1StarRating  int     `json:"penaltyFor1StarRating"`
	SilverTierPoints       int     `json:"silverTierPoints"`
	GoldTierPoints         int     `json:"goldTierPoints"`
	PlatinumTierPoints     int     `json:"platinumTierPoints"`
	JobGiverFeeRate        float64 `json:"jobGiverFeeRate"`
	InstallerCommission    float64 `json:"installerCommissionRate"`
	FoundingInstallerLimit int     `json:"foundingInstallerLimit"`
}

// DefaultPlatformSettings - значения на случай отсутствия записи настроек.
func DefaultPlatformSettings() PlatformSettings {
	return PlatformSettings{
		PointsForJobCompletion: 50,
		PointsFor5StarRating:   20,
		PointsFor4StarRating:   10,
		PenaltyFor1StarRating:  -25,
		SilverTierPoints:       500,
		GoldTierPoints:         1000,
		PlatinumTierPoints:     2000,
		JobGiverFeeRate:        2.5,
		InstallerCommission:    5,
		FoundingInstallerLimit: 100,
	}
}

// WithDefaults подставляет значения по умолчанию вместо нулевых.
// Ноль в таблице очков неотличим от «не задано», как и в исходных настройках платформы.
func (s PlatformSettings) WithDefaults() PlatformSettings {
	d := DefaultPlatformSettings()
	if s.PointsForJobCompletion == 0 {
		s.PointsForJobCompletion = d.PointsForJobCompletion
	}
	if s.PointsFor5StarRating == 0 {
		s.PointsFor5StarRating = d.PointsFor5StarRating
	}
	if s.PointsFor4StarRating == 0 {
		s.PointsFor4StarRating = d.PointsFor4StarRating
	}
	if s.PenaltyFor1StarRating == 0 {
		s.PenaltyFor1StarRating = d.PenaltyFor1StarRating
	}
	if s.SilverTierPoints == 0 {
		s.SilverTierPoints = d.SilverTierPoints
	}
	if s.GoldTierPoints == 0 {
		s.GoldTierPoints = d.GoldTierPoints
	}
	if s.PlatinumTierPoints == 0 {
		s.PlatinumTierPoints = d.PlatinumTierPoints
	}
	if s.JobGiverFeeRate == 0 {
		s.JobGiverFeeRate = d.JobGiverFeeRate
	}
	if s.InstallerCommission == 0 {
		s.InstallerCommission = d.InstallerCommission
	}
	if s.FoundingInstallerLimit == 0 {
		s.FoundingInstallerLimit = d.FoundingInstallerLimit
	}
	return s
}

// Thresholds возвращает пороги уровней.
func (s PlatformSettings) Thresholds() valueobject.TierThresholds {
	return valueobject.TierThresholds{
		Silver:   s.SilverTierPoints,
		Gold:     s.GoldTierPoints,
		Platinum: s.PlatinumTierPoints,
	}
}

// FeeRates возвращает проценты комиссий.
func (s PlatformSettings) FeeRates() valueobject.FeeRates {
	return valueobject.FeeRates{
		JobGiverFeePercent: s.JobGiverFeeRate,
		CommissionPercent:  s.InstallerCommission,
	}
}

// RatingBonus - бонус или штраф за оценку. 2 и 3 звезды дают ноль, как и отсутствие оценки.
func (s PlatformSettings) RatingBonus(rating *int) int {
	if rating == nil {
		return 0
	}
	switch *rating {
	case 5:
		return s.PointsFor5StarRating
	case 4:
		return s.PointsFor4StarRating
	case 1:
		return s.PenaltyFor1StarRating
	default:
		return 0
	}
}

// PointsFor - сколько очков даёт завершение заказа с такой оценкой.
func (s PlatformSettings) PointsFor(rating *int) int {
	return s.PointsForJobCompletion + s.RatingBonus(rating)
}

// SettingsRecord - строка platform_settings.
type SettingsRecord struct {
	Data      []byte    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}
