package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/jobconnect-backend/internal/domain/valueobject"
)

var (
	once sync.Once

	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobconnect_job_transitions_total",
		Help: "Applied job status transitions by event",
	}, []string{"event"})
	RejectedTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobconnect_job_transitions_rejected_total",
		Help: "Transitions rejected by the state machine",
	}, []string{"event"})
	SweepRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobconnect_sweep_runs_total",
		Help: "Reconciliation sweep executions by outcome",
	}, []string{"sweep", "outcome"})
	SweepJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobconnect_sweep_jobs_total",
		Help: "Jobs touched by reconciliation sweeps",
	}, []string{"sweep", "action"})
	SweepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobconnect_sweep_duration_seconds",
		Help:    "Wall time of one sweep",
		Buckets: prometheus.DefBuckets,
	}, []string{"sweep"})
	StuckJobs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobconnect_stuck_jobs",
		Help: "Jobs flagged by the health monitor",
	}, []string{"check"})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobconnect_notifications_total",
		Help: "Notification dispatch outcomes",
	}, []string{"outcome"})
	ReputationAwards = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobconnect_reputation_awards_total",
		Help: "Reputation award attempts by outcome",
	}, []string{"outcome"})
	DuplicateEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobconnect_duplicate_events_total",
		Help: "Redelivered change events dropped by deduplication",
	})
)

// Register регистрирует коллекторы в глобальном реестре один раз за процесс.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			Transitions,
			RejectedTransitions,
			SweepRuns,
			SweepJobs,
			SweepDuration,
			StuckJobs,
			Notifications,
			ReputationAwards,
			DuplicateEvents,
		)
		// Серии по всем событиям автомата видны с нуля, до первого перехода.
		for _, e := range valueobject.Events() {
			Transitions.WithLabelValues(string(e))
			RejectedTransitions.WithLabelValues(string(e))
		}
	})
}

// Handler отдаёт /metrics.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
