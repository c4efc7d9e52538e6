package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
)

const (
	taskPrefix = "sweep:"
	// QueueSweeps - очередь периодических проверок.
	QueueSweeps = "sweeps"

	// uniqueFor не даёт поставить проверку повторно, пока предыдущая не обработана.
	uniqueFor   = 30 * time.Minute
	taskTimeout = 20 * time.Minute
)

// TaskType - тип задачи asynq для проверки.
func TaskType(sweep string) string {
	return taskPrefix + sweep
}

// Runner выполняет проверку по имени.
type Runner interface {
	Run(ctx context.Context, sweep string) (*service.SweepReport, error)
}

// Entry - одна проверка в расписании.
type Entry struct {
	Spec  string
	Sweep string
}

// Entries строит расписание из конфигурации. Пустая строка отключает проверку.
func Entries(cfg config.SchedulerConfig) []Entry {
	all := []Entry{
		{Spec: cfg.AwardSweepSpec, Sweep: service.SweepAwardExpiry},
		{Spec: cfg.UnfundedSweepSpec, Sweep: service.SweepUnfunded},
		{Spec: cfg.MonitorSweepSpec, Sweep: service.SweepHealthMonitor},
		{Spec: cfg.AutoSettleSweepSpec, Sweep: service.SweepAutoSettle},
	}
	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if strings.TrimSpace(e.Spec) != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

// NewTask - задача проверки с защитой от наложения запусков.
func NewTask(sweep string) *asynq.Task {
	return asynq.NewTask(TaskType(sweep), nil,
		asynq.Queue(QueueSweeps),
		asynq.Unique(uniqueFor),
		asynq.Timeout(taskTimeout),
		asynq.MaxRetry(0),
	)
}

// Handler обрабатывает задачи проверок.
type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// ProcessTask запускает проверку, указанную в типе задачи.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	sweep := strings.TrimPrefix(t.Type(), taskPrefix)
	report, err := h.runner.Run(ctx, sweep)
	if err != nil {
		return fmt.Errorf("scheduler: %s %w", sweep, err)
	}
	logger.WithSweep(sweep).WithField("changed", report.Changed).Debug("scheduler: задача выполнена")
	return nil
}

// NewServeMux регистрирует обработчик для всех известных проверок.
func NewServeMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	for _, sweep := range service.SweepNames {
		mux.HandleFunc(TaskType(sweep), h.ProcessTask)
	}
	return mux
}
