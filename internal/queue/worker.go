package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
	"github.com/lectorium/backoffice/internal/telemetry"
)

// Значения по умолчанию.
const (
	defaultScanInterval = 2 * time.Minute
	defaultStaleAfter   = 20 * time.Minute
	defaultBatchSize    = 100
)

// TaskStore — срез хранилища задач, нужный воркеру очереди.
type TaskStore interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.DownloadTask, error)
	ReclaimStale(ctx context.Context, now time.Time, staleAfter time.Duration) (int64, error)
}

// Worker сканирует очередь задач скачивания.
//
// Каждый цикл:
//  1. Возвращает в pending задачи, зависшие в in_progress дольше окна
//     staleness (умерший конвейер, рестарт сервиса).
//  2. Атомарно захватывает созревшие pending-задачи.
//  3. Передаёт каждую конвейеру. Ошибка передачи не трогает задачу:
//     она останется in_progress и вернётся в очередь по staleness.
//
// Экземпляры масштабируются горизонтально: захват атомарен на уровне БД.
type Worker struct {
	tasks      TaskStore
	dispatcher Dispatcher

	scanInterval time.Duration
	staleAfter   time.Duration
	batchSize    int
	now          func() time.Time

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Worker.
type Config struct {
	Tasks      TaskStore
	Dispatcher Dispatcher

	// ScanInterval — период сканирования очереди (default: 2m).
	ScanInterval time.Duration
	// StaleAfter — окно staleness для возврата зависших задач (default: 20m).
	StaleAfter time.Duration
	// BatchSize — максимум задач за один захват (default: 100).
	BatchSize int

	// Now — источник времени (для тестов).
	Now func() time.Time

	Logger *slog.Logger
}

// New создаёт Worker.
func New(cfg Config) *Worker {
	w := &Worker{
		tasks:        cfg.Tasks,
		dispatcher:   cfg.Dispatcher,
		scanInterval: cfg.ScanInterval,
		staleAfter:   cfg.StaleAfter,
		batchSize:    cfg.BatchSize,
		now:          cfg.Now,
		logger:       cfg.Logger,
	}
	if w.scanInterval <= 0 {
		w.scanInterval = defaultScanInterval
	}
	if w.staleAfter <= 0 {
		w.staleAfter = defaultStaleAfter
	}
	if w.batchSize <= 0 {
		w.batchSize = defaultBatchSize
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w
}

// Start запускает цикл сканирования.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting queue worker",
		"scan_interval", w.scanInterval,
		"stale_after", w.staleAfter,
		"batch_size", w.batchSize,
	)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.scanLoop(ctx)
	}()

	return nil
}

// Stop останавливает воркер и дожидается завершения цикла.
func (w *Worker) Stop() {
	w.logger.Info("stopping queue worker...")
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	w.wg.Wait()
	w.logger.Info("queue worker stopped")
}

func (w *Worker) scanLoop(ctx context.Context) {
	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()

	// Первый скан сразу: подхватываем задачи, созревшие пока сервис
	// был выключен.
	w.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// scan выполняет один цикл: reclaim зависших, захват и передача созревших.
func (w *Worker) scan(ctx context.Context) {
	now := w.now()

	reclaimed, err := w.tasks.ReclaimStale(ctx, now, w.staleAfter)
	if err != nil {
		w.logger.Error("failed to reclaim stale tasks", "error", err)
	} else if reclaimed > 0 {
		telemetry.TasksReclaimed.Add(float64(reclaimed))
		w.logger.Warn("reclaimed stale tasks", "count", reclaimed)
	}

	tasks, err := w.tasks.ClaimDue(ctx, now, w.batchSize)
	if err != nil {
		w.logger.Error("failed to claim due tasks", "error", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	w.logger.Info("claimed due tasks", "count", len(tasks))

	for i := range tasks {
		task := &tasks[i]
		telemetry.TasksClaimed.Inc()

		log := telemetry.WithTaskID(
			telemetry.WithMeeting(w.logger, task.Email, task.MeetingID),
			task.ID.String(),
		)
		if err := w.dispatcher.Dispatch(ctx, task); err != nil {
			// Задача остаётся in_progress: её вернёт reclaim.
			telemetry.DispatchErrors.Inc()
			log.Error("failed to dispatch task", "error", err)
			continue
		}
		log.Info("task dispatched")
	}
}
