package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lectorium/backoffice/internal/domain"
	"github.com/lectorium/backoffice/internal/mq"
)

// Dispatcher передаёт захваченную задачу конвейеру.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *domain.DownloadTask) error
}

// downloadRequest — тело POST-запроса к сервису конвейера.
type downloadRequest struct {
	TaskID    uuid.UUID `json:"task_id"`
	Email     string    `json:"email"`
	MeetingID string    `json:"meeting_id"`
}

// HTTPDispatcher отправляет задачу конвейеру HTTP-запросом.
// Ответ ждём только для кода статуса: конвейер обрабатывает задачу
// в фоне и подтверждений не присылает.
type HTTPDispatcher struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPDispatcher создаёт диспетчер с коротким таймаутом: запрос
// только запускает конвейер, долгих ответов не бывает.
func NewHTTPDispatcher(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPDispatcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, task *domain.DownloadTask) error {
	body, err := json.Marshal(downloadRequest{
		TaskID:    task.ID,
		Email:     task.Email,
		MeetingID: task.MeetingID,
	})
	if err != nil {
		return fmt.Errorf("marshal dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/api/v1/downloads", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch task %s: %w", task.ID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dispatch task %s: pipeline returned %d", task.ID, resp.StatusCode)
	}
	return nil
}

// MQDispatcher публикует задачу в RabbitMQ, а при недоступной шине
// откатывается на HTTP. Семантика доставки не меняется: подтверждения
// нет в обоих путях, страховка — окно staleness очереди.
type MQDispatcher struct {
	publisher *mq.Publisher
	conn      *mq.Connection
	fallback  Dispatcher
	logger    *slog.Logger
}

// NewMQDispatcher создаёт диспетчер с fallback.
func NewMQDispatcher(publisher *mq.Publisher, conn *mq.Connection, fallback Dispatcher, logger *slog.Logger) *MQDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQDispatcher{publisher: publisher, conn: conn, fallback: fallback, logger: logger}
}

func (d *MQDispatcher) Dispatch(ctx context.Context, task *domain.DownloadTask) error {
	if d.conn != nil && d.conn.IsConnected() {
		err := d.publisher.PublishDownloadDue(ctx, mq.DownloadDuePayload{
			TaskID:    task.ID,
			Email:     task.Email,
			MeetingID: task.MeetingID,
		})
		if err == nil {
			return nil
		}
		d.logger.Warn("publish failed, falling back to http",
			slog.String("task_id", task.ID.String()), slog.Any("error", err))
	}
	return d.fallback.Dispatch(ctx, task)
}
