package scheduler

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
)

// RedisOpt переводит конфигурацию Redis в параметры asynq.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Worker - планировщик asynq, ставящий проверки по расписанию, и сервер, их выполняющий.
type Worker struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
	entries   []Entry
}

func NewWorker(redis config.RedisConfig, cfg config.SchedulerConfig, runner Runner) *Worker {
	opt := RedisOpt(redis)
	return &Worker{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{
			Logger:   logger.Log,
			Location: time.UTC,
		}),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues:      map[string]int{QueueSweeps: 1},
			Logger:      logger.Log,
		}),
		mux:     NewServeMux(NewHandler(runner)),
		entries: Entries(cfg),
	}
}

// Start регистрирует расписание и запускает планировщик и сервер в фоне.
func (w *Worker) Start() error {
	for _, e := range w.entries {
		id, err := w.scheduler.Register(e.Spec, NewTask(e.Sweep))
		if err != nil {
			return fmt.Errorf("scheduler: register %s %w", e.Sweep, err)
		}
		logger.WithSweep(e.Sweep).WithFields(logrus.Fields{"spec": e.Spec, "entry": id}).Info("scheduler: проверка зарегистрирована")
	}
	if err := w.scheduler.Start(); err != nil {
		return fmt.Errorf("scheduler: start scheduler %w", err)
	}
	if err := w.server.Start(w.mux); err != nil {
		w.scheduler.Shutdown()
		return fmt.Errorf("scheduler: start server %w", err)
	}
	return nil
}

// Shutdown останавливает приём новых задач и ждёт выполняющиеся.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

// Enqueue ставит проверку в очередь вне расписания.
func Enqueue(client *asynq.Client, sweep string) (*asynq.TaskInfo, error) {
	info, err := client.Enqueue(NewTask(sweep))
	if err != nil {
		return nil, fmt.Errorf("scheduler: enqueue %s %w", sweep, err)
	}
	return info, nil
}

// Queue ставит проверки в очередь по требованию администратора.
type Queue struct {
	client *asynq.Client
}

func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue возвращает идентификатор задачи asynq.
func (q *Queue) Enqueue(sweep string) (string, error) {
	info, err := Enqueue(q.client, sweep)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}
