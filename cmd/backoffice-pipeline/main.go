// Backoffice Pipeline — конвейер скачивания записей.
//
// Для каждой задачи:
//   - опрашивает статус встречи до завершения
//   - обходит прошедшие экземпляры и ждёт готовности записей
//   - сохраняет метаданные артефактов и скачивает файлы
//
// Задачи приходят по HTTP (POST /api/v1/downloads) и, при доступном
// RabbitMQ, из очереди downloads.due.
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
	"github.com/lectorium/backoffice/internal/pipeline"
	"github.com/lectorium/backoffice/internal/repo"
	"github.com/lectorium/backoffice/internal/telemetry"
	"github.com/lectorium/backoffice/internal/zoom"
)

var startTime = time.Now()

func main() {
	_ = godotenv.Load()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting backoffice-pipeline")

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
	recordingRepo := repo.NewRecordingRepo(pool)
	accountRepo := repo.NewAccountRepo(pool)

	// Клиент Zoom с OAuth refresh поверх хранилища аккаунтов
	tokens := zoom.NewTokenSource(accountRepo, cfg.Zoom.TokenURL, nil)
	zoomClient := zoom.NewClient(cfg.Zoom.BaseURL, tokens, cfg.Zoom.RequestTimeout())

	// Собираем конвейер
	clock := pipeline.NewClock()
	backoff := make([]time.Duration, 0, len(cfg.Poller.OngoingBackoffSec))
	for _, sec := range cfg.Poller.OngoingBackoffSec {
		backoff = append(backoff, time.Duration(sec)*time.Second)
	}
	poller := pipeline.NewPoller(pipeline.PollerConfig{
		API:            zoomClient,
		Clock:          clock,
		NotFoundLimit:  cfg.Poller.NotFoundLimit,
		OngoingLimit:   cfg.Poller.OngoingLimit,
		OngoingBackoff: backoff,
		FailureWait:    time.Duration(cfg.Poller.FailureWaitSec) * time.Second,
		Logger:         logger,
	})
	fetcher := pipeline.NewFetcher(pipeline.FetcherConfig{
		API:         zoomClient,
		Recordings:  recordingRepo,
		Tasks:       taskRepo,
		Clock:       clock,
		RetryLimit:  cfg.Fetcher.RetryLimit,
		RetryWait:   cfg.Fetcher.RetryWait(),
		DownloadDir: cfg.Fetcher.DownloadDir,
		Logger:      logger,
	})
	pipe := pipeline.New(poller, fetcher, logger)

	// RabbitMQ: при доступном брокере потребляем downloads.due.
	// Без брокера задачи приходят только по HTTP.
	if cfg.RabbitMQURL != "" {
		mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running in HTTP-only mode", "error", err)
		} else {
			defer mqConn.Close()
			logger.Info("RabbitMQ connected")

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}

			consumer := mq.NewConsumer(mqConn, logger, mq.ConsumerConfig{
				Queue:   string(mq.QueueDownloadsDue),
				Handler: pipeline.NewDueHandler(ctx, pipe, logger),
			})
			go func() {
				if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
					logger.Error("consumer stopped", "error", err)
				}
			}()
			defer consumer.Stop()
		}
	}

	// API handler: приём задач на скачивание плюс чтение статуса
	// задач и trim-операции — управляющая поверхность доступна
	// на обоих сервисах.
	handler := api.NewHandler(api.Config{
		Tasks:      taskRepo,
		Recordings: recordingRepo,
		Pipeline:   pipe,
		RunContext: ctx,
		Logger:     logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	addr := ":8003"
	if v := os.Getenv("PIPELINE_PORT"); v != "" {
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

	logger.Info("backoffice-pipeline stopped")
}
