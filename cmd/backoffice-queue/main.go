// Backoffice Queue — сервис очередей бэк-офиса.
//
// Внутри:
//   - Worker — сканирует очередь задач скачивания, возвращает зависшие
//     задачи и передаёт созревшие pipeline-сервису
//   - Notifier — батч-доставка уведомлений с отдельным error-циклом
//   - Scheduler — cron-запуск обновления расписания занятий
//   - HTTP API — управление задачами, записями и уведомлениями
//
// Экземпляры масштабируются горизонтально: захват задач атомарен
// на уровне БД.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lectorium/backoffice/internal/api"
	"github.com/lectorium/backoffice/internal/config"
	"github.com/lectorium/backoffice/internal/mq"
	"github.com/lectorium/backoffice/internal/queue"
	"github.com/lectorium/backoffice/internal/repo"
	"github.com/lectorium/backoffice/internal/scheduler"
	"github.com/lectorium/backoffice/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// .env удобен при локальной разработке; в проде переменные
	// приходят из окружения.
	_ = godotenv.Load()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting backoffice-queue")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Создаём репозитории
	taskRepo := repo.NewTaskRepo(pool)
	notificationRepo := repo.NewNotificationRepo(pool)
	recordingRepo := repo.NewRecordingRepo(pool)

	// RabbitMQ. Без него сервис работает в polling-only режиме:
	// задачи уходят в pipeline напрямую по HTTP.
	var publisher *mq.Publisher
	var mqConn *mq.Connection
	if cfg.RabbitMQURL != "" {
		mqConn, err = mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}

			publisher = mq.NewPublisher(mqConn, logger)
		}
	}

	// Передача задач: HTTP fire-and-forget, поверх него RabbitMQ
	// когда брокер доступен.
	var dispatcher queue.Dispatcher
	httpDispatcher := queue.NewHTTPDispatcher(cfg.PipelineURL, 0, logger)
	dispatcher = httpDispatcher
	if publisher != nil {
		dispatcher = queue.NewMQDispatcher(publisher, mqConn, httpDispatcher, logger)
	}

	// Воркер очереди скачиваний
	worker := queue.New(queue.Config{
		Tasks:        taskRepo,
		Dispatcher:   dispatcher,
		ScanInterval: cfg.Queue.ScanInterval(),
		StaleAfter:   cfg.Queue.StaleAfter(),
		BatchSize:    cfg.Queue.BatchSize,
		Logger:       logger,
	})
	if err := worker.Start(ctx); err != nil {
		logger.Error("failed to start queue worker", "error", err)
		os.Exit(1)
	}

	// Доставка уведомлений. Подтверждённые батчи публикуем в RabbitMQ
	// для аудита.
	var onDelivered func(ctx context.Context, gameIDs []int64)
	if publisher != nil {
		onDelivered = func(ctx context.Context, gameIDs []int64) {
			if err := publisher.PublishNotificationsDelivered(ctx, gameIDs); err != nil {
				logger.Warn("failed to publish delivered batch", "error", err)
			}
		}
	}
	notifier := queue.NewNotifier(queue.NotifierConfig{
		Store:         notificationRepo,
		Endpoint:      cfg.Notify.Endpoint,
		ScanInterval:  cfg.Notify.ScanInterval(),
		ErrorInterval: cfg.Notify.ErrorInterval(),
		OnDelivered:   onDelivered,
		Logger:        logger,
	})
	if err := notifier.Start(ctx); err != nil {
		logger.Error("failed to start notifier", "error", err)
		os.Exit(1)
	}

	// Cron-обновление расписания занятий
	sched, err := scheduler.New(scheduler.Config{
		Endpoint:  cfg.Refresh.Endpoint,
		CronExprs: cfg.Refresh.CronExprs,
		Timezone:  cfg.Refresh.Timezone,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("invalid refresh schedule", "error", err)
		os.Exit(1)
	}
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// API handler: управление задачами, записями и уведомлениями.
	// Pipeline здесь не поднимаем — скачиванием занимается
	// backoffice-pipeline.
	handler := api.NewHandler(api.Config{
		Tasks:         taskRepo,
		Recordings:    recordingRepo,
		Notifications: notificationRepo,
		Sweeper:       notifier,
		RunContext:    ctx,
		Logger:        logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("QUEUE_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	sched.Stop()
	notifier.Stop()
	worker.Stop()
	logger.Info("backoffice-queue stopped")
}
