package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/jobconnect-backend/internal/app"
	"github.com/ignatzorin/jobconnect-backend/internal/config"
	"github.com/ignatzorin/jobconnect-backend/internal/db"
	"github.com/ignatzorin/jobconnect-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/jobconnect-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/jobconnect-backend/internal/http/router"
	"github.com/ignatzorin/jobconnect-backend/internal/logger"
	"github.com/ignatzorin/jobconnect-backend/internal/metrics"
	"github.com/ignatzorin/jobconnect-backend/internal/scheduler"
	"github.com/ignatzorin/jobconnect-backend/internal/service"
	"github.com/ignatzorin/jobconnect-backend/internal/trigger"
	"github.com/ignatzorin/jobconnect-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.Env == "production")
	metrics.Register()

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPool)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	applied, err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath)
	if err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}
	for _, name := range applied {
		logger.Log.WithField("migration", name).Info("main: миграция применена")
	}

	redisClient, err := db.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// Без Redis не работают дедупликация событий и очередь проверок.
		logger.Log.WithError(err).Warn("main: Redis недоступен")
	}
	defer redisClient.Close()

	services := app.NewServices(cfg, dbConn)
	if err := services.Settings.Load(ctx); err != nil {
		logger.Log.WithError(err).Warn("main: настройки платформы не загружены, используем значения по умолчанию")
	}

	background := goroutine.NewRecoveryHandler(logger.Log)

	// Вебсокеты.
	hub := ws.NewHub()
	background.Go(ctx, "ws-hub", hub.Run)
	services.Notifications.SetRealtime(hub)

	// Фоновые проверки.
	worker := scheduler.NewWorker(cfg.Redis, cfg.Scheduler, services.Reconciliation)
	if err := worker.Start(); err != nil {
		logger.Log.WithError(err).Error("main: планировщик не запущен, проверки можно вызвать через jobctl")
	} else {
		defer worker.Shutdown()
	}
	queueClient := asynq.NewClient(scheduler.RedisOpt(cfg.Redis))
	defer queueClient.Close()

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	ingestor := trigger.NewIngestor(trigger.NewDeduplicator(redisClient, cfg.EventDedupTTL), services.Changes)

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		redisClient,
		tokenManager,
		httpHandlers.NewJobHandler(services.Jobs),
		httpHandlers.NewEscrowHandler(services.Escrow),
		httpHandlers.NewInstallerHandler(services.Reputation),
		httpHandlers.NewNotificationHandler(services.Notifications),
		httpHandlers.NewEventHandler(ingestor),
		httpHandlers.NewAdminHandler(services.Jobs, services.Settings, scheduler.NewQueue(queueClient)),
		httpHandlers.NewHealthHandler(dbConn, redisClient),
		httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	background.Go(ctx, "http-shutdown", func(ctx context.Context) {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Log.WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
