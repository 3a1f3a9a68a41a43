package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
	"github.com/lectorium/backoffice/internal/telemetry"
)

// Значения по умолчанию для циклов уведомлений.
const (
	defaultNotifyInterval = 2 * time.Minute
	defaultErrorInterval  = 4 * time.Minute
)

// NotificationStore — срез хранилища уведомлений.
type NotificationStore interface {
	ClaimPending(ctx context.Context, now time.Time) ([]domain.NotificationTask, error)
	ListError(ctx context.Context) ([]domain.NotificationTask, error)
	MarkError(ctx context.Context, gameIDs []int64, now time.Time) error
	Delete(ctx context.Context, gameIDs []int64) error
}

// notifyRequest — тело батч-запроса к потребителю уведомлений.
type notifyRequest struct {
	GameIDs []int64 `json:"game_ids"`
}

// Notifier доставляет уведомления батчами.
//
// Основной цикл атомарно захватывает все pending-уведомления и отправляет
// их одним запросом: успех удаляет батч, неуспех помечает его error
// целиком. Error-цикл работает реже и повторяет недоставленные батчи.
type Notifier struct {
	store    NotificationStore
	endpoint string
	client   *http.Client

	scanInterval  time.Duration
	errorInterval time.Duration
	now           func() time.Time

	// onDelivered вызывается после подтверждённой доставки батча
	// (публикация события, аудит). Ошибки хука не влияют на доставку.
	onDelivered func(ctx context.Context, gameIDs []int64)

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NotifierConfig — конфигурация Notifier.
type NotifierConfig struct {
	Store    NotificationStore
	Endpoint string
	Client   *http.Client

	// ScanInterval — период основного цикла (default: 2m).
	ScanInterval time.Duration
	// ErrorInterval — период повторной отправки error-батчей (default: 4m).
	ErrorInterval time.Duration

	// OnDelivered — хук после подтверждённой доставки.
	OnDelivered func(ctx context.Context, gameIDs []int64)

	// Now — источник времени (для тестов).
	Now func() time.Time

	Logger *slog.Logger
}

// NewNotifier создаёт Notifier.
func NewNotifier(cfg NotifierConfig) *Notifier {
	n := &Notifier{
		store:         cfg.Store,
		endpoint:      cfg.Endpoint,
		client:        cfg.Client,
		scanInterval:  cfg.ScanInterval,
		errorInterval: cfg.ErrorInterval,
		onDelivered:   cfg.OnDelivered,
		now:           cfg.Now,
		logger:        cfg.Logger,
	}
	if n.client == nil {
		n.client = &http.Client{Timeout: 30 * time.Second}
	}
	if n.scanInterval <= 0 {
		n.scanInterval = defaultNotifyInterval
	}
	if n.errorInterval <= 0 {
		n.errorInterval = defaultErrorInterval
	}
	if n.now == nil {
		n.now = time.Now
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	return n
}

// Start запускает основной и error-циклы.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancelFunc = cancel

	n.logger.Info("starting notifier",
		"scan_interval", n.scanInterval,
		"error_interval", n.errorInterval,
	)

	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		n.loop(ctx, n.scanInterval, n.sweepPending)
	}()
	go func() {
		defer n.wg.Done()
		n.loop(ctx, n.errorInterval, n.sweepErrors)
	}()

	return nil
}

// Stop останавливает циклы и дожидается их завершения.
func (n *Notifier) Stop() {
	n.logger.Info("stopping notifier...")
	if n.cancelFunc != nil {
		n.cancelFunc()
	}
	n.wg.Wait()
	n.logger.Info("notifier stopped")
}

// SweepNow выполняет один внеочередной проход по pending- и
// error-уведомлениям, не дожидаясь тиков циклов.
func (n *Notifier) SweepNow(ctx context.Context) {
	n.sweepPending(ctx)
	n.sweepErrors(ctx)
}

func (n *Notifier) loop(ctx context.Context, interval time.Duration, sweep func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

// sweepPending захватывает и отправляет очередной батч pending-уведомлений.
func (n *Notifier) sweepPending(ctx context.Context) {
	batch, err := n.store.ClaimPending(ctx, n.now())
	if err != nil {
		n.logger.Error("failed to claim pending notifications", "error", err)
		return
	}
	if len(batch) == 0 {
		return
	}

	ids := gameIDs(batch)
	if err := n.deliver(ctx, ids); err != nil {
		telemetry.NotificationBatches.WithLabelValues("error").Inc()
		n.logger.Error("notification batch failed",
			"count", len(ids), "error", err)
		if err := n.store.MarkError(ctx, ids, n.now()); err != nil {
			n.logger.Error("failed to mark notifications as error", "error", err)
		}
		return
	}
	n.confirm(ctx, ids)
}

// sweepErrors повторяет недоставленные батчи.
func (n *Notifier) sweepErrors(ctx context.Context) {
	batch, err := n.store.ListError(ctx)
	if err != nil {
		n.logger.Error("failed to list error notifications", "error", err)
		return
	}
	if len(batch) == 0 {
		return
	}

	ids := gameIDs(batch)
	n.logger.Info("retrying error notifications", "count", len(ids))

	if err := n.deliver(ctx, ids); err != nil {
		telemetry.NotificationBatches.WithLabelValues("error").Inc()
		n.logger.Error("notification retry failed",
			"count", len(ids), "error", err)
		if err := n.store.MarkError(ctx, ids, n.now()); err != nil {
			n.logger.Error("failed to refresh error notifications", "error", err)
		}
		return
	}
	n.confirm(ctx, ids)
}

// confirm удаляет доставленный батч и вызывает хук.
func (n *Notifier) confirm(ctx context.Context, ids []int64) {
	if err := n.store.Delete(ctx, ids); err != nil {
		// Батч доставлен, но не удалён: error-цикл отправит его
		// повторно. Потребитель обязан быть идемпотентным.
		n.logger.Error("failed to delete delivered notifications", "error", err)
		return
	}
	telemetry.NotificationBatches.WithLabelValues("ok").Inc()
	telemetry.NotificationsDelivered.Add(float64(len(ids)))
	n.logger.Info("notification batch delivered", "count", len(ids))

	if n.onDelivered != nil {
		n.onDelivered(ctx, ids)
	}
}

// deliver отправляет батч одним запросом. Любой не-2xx код — неуспех
// всего батча.
func (n *Notifier) deliver(ctx context.Context, ids []int64) error {
	body, err := json.Marshal(notifyRequest{GameIDs: ids})
	if err != nil {
		return fmt.Errorf("marshal notification batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification batch: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func gameIDs(batch []domain.NotificationTask) []int64 {
	ids := make([]int64, len(batch))
	for i, n := range batch {
		ids[i] = n.GameID
	}
	return ids
}
