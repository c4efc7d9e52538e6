package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
)

// MaxReputationHistory - сколько последних месяцев храним в истории репутации.
const MaxReputationHistory = 12

// ReputationMonthLayout - формат ключа месяца в истории, например "March 2025".
const ReputationMonthLayout = "January 2006"

// ReputationEntry - итог очков на конец (или текущий момент) месяца.
type ReputationEntry struct {
	Month  string `json:"month"`
	Points int    `json:"points"`
}

// ReputationHistory упорядочена от старых месяцев к новым.
type ReputationHistory []ReputationEntry

func (h ReputationHistory) Value() (driver.Value, error) { return jsonArrayValue(h, len(h) == 0) }
func (h *ReputationHistory) Scan(src interface{}) error  { return scanJSON(src, h) }

// Upsert записывает итог месяца: заменяет существующую запись или добавляет новую,
// затем обрезает историю до MaxReputationHistory последних записей.
func (h ReputationHistory) Upsert(month string, points int) ReputationHistory {
	out := make(ReputationHistory, 0, len(h)+1)
	replaced := false
	for _, e := range h {
		if e.Month == month {
			if replaced {
				continue
			}
			e.Points = points
			replaced = true
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, ReputationEntry{Month: month, Points: points})
	}
	if len(out) > MaxReputationHistory {
		out = out[len(out)-MaxReputationHistory:]
	}
	return out
}

// InstallerProfile - репутация установщика. Меняется только движком репутации.
type InstallerProfile struct {
	UserID              uuid.UUID         `db:"user_id" json:"userId"`
	Points              int               `db:"points" json:"points"`
	Tier                valueobject.Tier  `db:"tier" json:"tier"`
	Reviews             int               `db:"reviews" json:"reviews"`
	ReputationHistory   ReputationHistory `db:"reputation_history" json:"reputationHistory"`
	Verified            bool              `db:"verified" json:"verified"`
	VerifiedAt          *time.Time        `db:"verified_at" json:"verifiedAt,omitempty"`
	IsFoundingInstaller bool              `db:"is_founding_installer" json:"isFoundingInstaller"`
	IsPro               bool              `db:"is_pro" json:"isPro"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updatedAt"`
}

// Valid проверяет то, без чего начислять очки нельзя.
func (p *InstallerProfile) Valid() bool {
	if p.UserID == uuid.Nil || !p.Tier.IsValid() || p.Reviews < 0 {
		return false
	}
	seen := make(map[string]struct{}, len(p.ReputationHistory))
	for _, e := range p.ReputationHistory {
		if _, dup := seen[e.Month]; dup || e.Month == "" {
			return false
		}
		seen[e.Month] = struct{}{}
	}
	return true
}

// InstallerStats - сводка по завершённым заказам для повышения до Pro.
type InstallerStats struct {
	CompletedJobs      int      `db:"completed_jobs"`
	AverageRating      *float64 `db:"average_rating"`
	UnresolvedDisputes int      `db:"unresolved_disputes"`
}

// ReputationAward - запись журнала начислений за один заказ.
type ReputationAward struct {
	JobID       uuid.UUID `db:"job_id" json:"jobId"`
	InstallerID uuid.UUID `db:"installer_id" json:"installerId"`
	Points      int       `db:"points" json:"points"`
	Rating      *int      `db:"rating" json:"rating,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}
