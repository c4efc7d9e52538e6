package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/metrics"
	"github.com/ignatzorin/jobconnect-backend/internal/models"
	"github.com/ignatzorin/jobconnect-backend/internal/pkg/apperror"
)

// Имена периодических проверок. Они же - метки метрик и аргументы jobctl sweep.
const (
	SweepAwardExpiry   = "award_expiry"
	SweepUnfunded      = "unfunded"
	SweepHealthMonitor = "health_monitor"
	SweepAutoSettle    = "auto_settle"
)

// SweepNames - все проверки в порядке регистрации.
var SweepNames = []string{SweepAwardExpiry, SweepUnfunded, SweepHealthMonitor, SweepAutoSettle}

const sweepBatchSize = 100

// Пороги монитора зависших заказов.
const (
	stuckConfirmationAfter = 72 * time.Hour
	stuckDisputeAfter      = 7 * 24 * time.Hour
	stuckFundingAfter      = 7 * 24 * time.Hour
)

// UnfundedCancellationReason записывается в заказ, отменённый планировщиком.
const UnfundedCancellationReason = "not funded within 48 hours of acceptance"

// JobLifecycle - действия над одним заказом, которые запускает планировщик.
type JobLifecycle interface {
	ExpireOffer(ctx context.Context, jobID uuid.UUID) (ResolutionOutcome, error)
	CloseExpiredBidding(ctx context.Context, jobID uuid.UUID) (valueobject.JobEvent, error)
	AutoSettle(ctx context.Context, jobID uuid.UUID) (bool, error)
}

// SweepSource - выборки кандидатов для проверок.
type SweepSource interface {
	ListExpiredAwards(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error)
	ListBiddingExpired(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error)
	ListStaleUnfunded(ctx context.Context, cutoff time.Time) ([]models.Job, error)
	ListAwaitingConfirmation(ctx context.Context, before time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error)
	CountStuck(ctx context.Context, status valueobject.JobStatus, before time.Time) (int, error)
}

// UnfundedCanceller отменяет пачку неоплаченных заказов одной транзакцией.
type UnfundedCanceller interface {
	CancelUnfunded(ctx context.Context, ids []uuid.UUID, cutoff time.Time, reason string) ([]uuid.UUID, int64, error)
}

// DisputeMonitor считает давно открытые споры.
type DisputeMonitor interface {
	CountOpenOlderThan(ctx context.Context, before time.Time) (int, error)
}

// SweepReport - итог одного запуска проверки.
type SweepReport struct {
	Sweep   string `json:"sweep"`
	Scanned int    `json:"scanned"`
	Changed int    `json:"changed"`
	Failed  int    `json:"failed"`
}

// ReconciliationService - периодические проверки сроков и зависших заказов.
// Каждая проверка идемпотентна: условие перепроверяется в транзакции записи.
type ReconciliationService struct {
	lifecycle JobLifecycle
	source    SweepSource
	canceller UnfundedCanceller
	disputes  DisputeMonitor
	notifier  Notifier
	cfg       config.LifecycleConfig
	now       func() time.Time
}

func NewReconciliationService(
	lifecycle JobLifecycle,
	source SweepSource,
	canceller UnfundedCanceller,
	disputes DisputeMonitor,
	notifier Notifier,
	cfg config.LifecycleConfig,
) *ReconciliationService {
	return &ReconciliationService{
		lifecycle: lifecycle,
		source:    source,
		canceller: canceller,
		disputes:  disputes,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run запускает проверку по имени.
func (s *ReconciliationService) Run(ctx context.Context, sweep string) (*SweepReport, error) {
	switch sweep {
	case SweepAwardExpiry:
		return s.SweepExpiredAwards(ctx)
	case SweepUnfunded:
		return s.SweepUnfunded(ctx)
	case SweepHealthMonitor:
		return s.MonitorHealth(ctx)
	case SweepAutoSettle:
		return s.SweepAutoSettle(ctx)
	}
	return nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неизвестная проверка %q", sweep))
}

// SweepExpiredAwards обрабатывает просроченные предложения и истёкший приём ставок.
// Заказы обрабатываются по одному, ошибка по одному заказу не останавливает остальные.
func (s *ReconciliationService) SweepExpiredAwards(ctx context.Context) (*SweepReport, error) {
	timer := prometheus.NewTimer(metrics.SweepDuration.WithLabelValues(SweepAwardExpiry))
	defer timer.ObserveDuration()

	log := logger.WithSweep(SweepAwardExpiry)
	report := &SweepReport{Sweep: SweepAwardExpiry}
	now := s.now()

	err := eachPage(ctx, func(after uuid.UUID) ([]uuid.UUID, error) {
		return s.source.ListExpiredAwards(ctx, now, after, sweepBatchSize)
	}, func(id uuid.UUID) {
		report.Scanned++
		outcome, err := s.lifecycle.ExpireOffer(ctx, id)
		if err != nil {
			report.Failed++
			log.WithError(err).WithField("job_id", id.String()).Error("sweep: не удалось обработать просроченное предложение")
			return
		}
		if outcome != "" {
			report.Changed++
			metrics.SweepJobs.WithLabelValues(SweepAwardExpiry, string(outcome)).Inc()
		}
	})
	if err != nil {
		return s.fail(report, err)
	}

	err = eachPage(ctx, func(after uuid.UUID) ([]uuid.UUID, error) {
		return s.source.ListBiddingExpired(ctx, now, after, sweepBatchSize)
	}, func(id uuid.UUID) {
		report.Scanned++
		event, err := s.lifecycle.CloseExpiredBidding(ctx, id)
		if err != nil {
			report.Failed++
			log.WithError(err).WithField("job_id", id.String()).Error("sweep: не удалось закрыть приём ставок")
			return
		}
		if event != "" {
			report.Changed++
			metrics.SweepJobs.WithLabelValues(SweepAwardExpiry, string(event)).Inc()
		}
	})
	if err != nil {
		return s.fail(report, err)
	}

	return s.done(report), nil
}

// SweepUnfunded отменяет заказы, не оплаченные спустя FundingGrace после fundingDeadline,
// и уведомляет обе стороны после фиксации.
func (s *ReconciliationService) SweepUnfunded(ctx context.Context) (*SweepReport, error) {
	timer := prometheus.NewTimer(metrics.SweepDuration.WithLabelValues(SweepUnfunded))
	defer timer.ObserveDuration()

	report := &SweepReport{Sweep: SweepUnfunded}
	cutoff := s.now().Add(-s.cfg.FundingGrace)

	stale, err := s.source.ListStaleUnfunded(ctx, cutoff)
	if err != nil {
		return s.fail(report, err)
	}
	report.Scanned = len(stale)
	if len(stale) == 0 {
		return s.done(report), nil
	}

	ids := make([]uuid.UUID, 0, len(stale))
	for _, job := range stale {
		ids = append(ids, job.ID)
	}
	cancelled, failedTxns, err := s.canceller.CancelUnfunded(ctx, ids, cutoff, UnfundedCancellationReason)
	if err != nil {
		return s.fail(report, err)
	}
	report.Changed = len(cancelled)
	metrics.SweepJobs.WithLabelValues(SweepUnfunded, "cancelled").Add(float64(len(cancelled)))

	done := make(map[uuid.UUID]struct{}, len(cancelled))
	for _, id := range cancelled {
		done[id] = struct{}{}
	}
	var intents []models.NotificationIntent
	for i := range stale {
		if _, ok := done[stale[i].ID]; ok {
			intents = append(intents, unfundedIntents(&stale[i])...)
		}
	}
	s.notifier.NotifyAll(ctx, intents)

	logger.WithSweep(SweepUnfunded).WithFields(logrus.Fields{
		"cancelled":      len(cancelled),
		"failed_escrows": failedTxns,
	}).Info("sweep: неоплаченные заказы отменены")
	return s.done(report), nil
}

func unfundedIntents(job *models.Job) []models.NotificationIntent {
	intents := []models.NotificationIntent{{
		UserID: job.JobGiverID,
		Event:  "job.cancelled",
		Title:  "Job Cancelled",
		Body:   fmt.Sprintf("Your job \"%s\" was automatically cancelled because it was not funded within 48 hours of acceptance.", job.Title),
		Link:   models.JobLink(job.ID),
	}}
	if job.AwardedInstallerID != nil {
		intents = append(intents, models.NotificationIntent{
			UserID: *job.AwardedInstallerID,
			Event:  "job.cancelled",
			Title:  "Job Cancelled",
			Body:   fmt.Sprintf("Job \"%s\" was cancelled as the Job Giver did not complete payment. You are now free to bid on other jobs.", job.Title),
			Link:   "/dashboard",
		})
	}
	return intents
}

// SweepAutoSettle проводит выплату по работам, которые заказчик не проверил вовремя.
func (s *ReconciliationService) SweepAutoSettle(ctx context.Context) (*SweepReport, error) {
	timer := prometheus.NewTimer(metrics.SweepDuration.WithLabelValues(SweepAutoSettle))
	defer timer.ObserveDuration()

	log := logger.WithSweep(SweepAutoSettle)
	report := &SweepReport{Sweep: SweepAutoSettle}

	before := s.now().Add(-s.cfg.AutoSettleAfter)
	err := eachPage(ctx, func(after uuid.UUID) ([]uuid.UUID, error) {
		return s.source.ListAwaitingConfirmation(ctx, before, after, sweepBatchSize)
	}, func(id uuid.UUID) {
		report.Scanned++
		settled, err := s.lifecycle.AutoSettle(ctx, id)
		if err != nil {
			report.Failed++
			log.WithError(err).WithField("job_id", id.String()).Error("sweep: не удалось провести автоматическую выплату")
			return
		}
		if settled {
			report.Changed++
			metrics.SweepJobs.WithLabelValues(SweepAutoSettle, "settled").Inc()
		}
	})
	if err != nil {
		return s.fail(report, err)
	}
	return s.done(report), nil
}

// eachPage проходит все страницы выборки по возрастанию id.
// Заказ, на котором обработка упала, не мешает дойти до следующих.
func eachPage(ctx context.Context, list func(after uuid.UUID) ([]uuid.UUID, error), fn func(id uuid.UUID)) error {
	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := list(after)
		if err != nil {
			return err
		}
		for _, id := range page {
			fn(id)
		}
		if len(page) < sweepBatchSize {
			return nil
		}
		after = page[len(page)-1]
	}
}

// MonitorHealth ничего не меняет: считает зависшие заказы, обновляет метрики и пишет предупреждения.
func (s *ReconciliationService) MonitorHealth(ctx context.Context) (*SweepReport, error) {
	timer := prometheus.NewTimer(metrics.SweepDuration.WithLabelValues(SweepHealthMonitor))
	defer timer.ObserveDuration()

	log := logger.WithSweep(SweepHealthMonitor)
	report := &SweepReport{Sweep: SweepHealthMonitor}
	now := s.now()

	checks := []struct {
		name  string
		count func() (int, error)
	}{
		{"pending_confirmation", func() (int, error) {
			return s.source.CountStuck(ctx, valueobject.JobStatusPendingConfirmation, now.Add(-stuckConfirmationAfter))
		}},
		{"pending_funding", func() (int, error) {
			return s.source.CountStuck(ctx, valueobject.JobStatusPendingFunding, now.Add(-stuckFundingAfter))
		}},
		{"open_disputes", func() (int, error) {
			return s.disputes.CountOpenOlderThan(ctx, now.Add(-stuckDisputeAfter))
		}},
	}

	for _, check := range checks {
		n, err := check.count()
		if err != nil {
			report.Failed++
			log.WithError(err).WithField("check", check.name).Error("sweep: проверка не выполнена")
			continue
		}
		report.Scanned += n
		metrics.StuckJobs.WithLabelValues(check.name).Set(float64(n))
		if n > 0 {
			log.WithFields(logrus.Fields{"check": check.name, "count": n}).Warn("sweep: найдены зависшие заказы")
		}
	}
	return s.done(report), nil
}

func (s *ReconciliationService) done(report *SweepReport) *SweepReport {
	outcome := "ok"
	if report.Failed > 0 {
		outcome = "partial"
	}
	metrics.SweepRuns.WithLabelValues(report.Sweep, outcome).Inc()
	logger.WithSweep(report.Sweep).WithFields(logrus.Fields{
		"scanned": report.Scanned,
		"changed": report.Changed,
		"failed":  report.Failed,
	}).Info("sweep: проверка завершена")
	return report
}

func (s *ReconciliationService) fail(report *SweepReport, err error) (*SweepReport, error) {
	metrics.SweepRuns.WithLabelValues(report.Sweep, "error").Inc()
	return report, fmt.Errorf("reconciliation service: %s %w", report.Sweep, err)
}
