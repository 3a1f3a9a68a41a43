package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lectorium/backoffice/internal/domain"
)

// TaskStore — операции очереди задач, доступные через API.
type TaskStore interface {
	Enqueue(ctx context.Context, task *domain.DownloadTask) error
	GetByMeetingID(ctx context.Context, meetingID string) (*domain.DownloadTask, error)
	List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.DownloadTask, error)
	Delete(ctx context.Context, meetingID string) error
}

// RecordingStore — операции над записями и trim-метаданными.
type RecordingStore interface {
	ListByMeeting(ctx context.Context, meetingID string) ([]domain.Recording, error)
	GetByRecordingID(ctx context.Context, meetingUUID, recordingID string) (*domain.Recording, error)
	BeginTrim(ctx context.Context, meetingUUID, recordingID string) error
	FinishTrim(ctx context.Context, meetingUUID, recordingID, trimmedPath string) error
	AbortTrim(ctx context.Context, meetingUUID, recordingID string) error
	CancelTrim(ctx context.Context, meetingUUID, recordingID string) error
}

// NotificationStore — операции очереди уведомлений.
type NotificationStore interface {
	Create(ctx context.Context, n *domain.NotificationTask) error
	List(ctx context.Context) ([]domain.NotificationTask, error)
}

// NotificationSweeper запускает внеочередной проход доставки уведомлений.
type NotificationSweeper interface {
	SweepNow(ctx context.Context)
}

// PipelineRunner ведёт одну встречу до терминального исхода.
type PipelineRunner interface {
	Run(ctx context.Context, email, meetingID string) error
}

// Handler — главный обработчик API с зависимостями. Любая зависимость
// может быть nil: соответствующие маршруты тогда не регистрируются.
type Handler struct {
	tasks         TaskStore
	recordings    RecordingStore
	notifications NotificationStore
	sweeper       NotificationSweeper
	pipeline      PipelineRunner

	// runCtx — базовый контекст фоновых конвейеров: они переживают
	// HTTP-запрос и гаснут только при остановке сервиса.
	runCtx context.Context
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Tasks         TaskStore
	Recordings    RecordingStore
	Notifications NotificationStore
	Sweeper       NotificationSweeper
	Pipeline      PipelineRunner
	RunContext    context.Context
	Logger        *slog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		tasks:         cfg.Tasks,
		recordings:    cfg.Recordings,
		notifications: cfg.Notifications,
		sweeper:       cfg.Sweeper,
		pipeline:      cfg.Pipeline,
		runCtx:        cfg.RunContext,
		logger:        cfg.Logger,
	}
	if h.runCtx == nil {
		h.runCtx = context.Background()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// newTask собирает доменную задачу из запроса на постановку в очередь.
func newTask(email, meetingID string, executeTime time.Time, now time.Time) *domain.DownloadTask {
	if executeTime.IsZero() {
		executeTime = now
	}
	return &domain.DownloadTask{
		ID:          uuid.New(),
		Email:       email,
		MeetingID:   meetingID,
		ExecuteTime: executeTime,
		Status:      domain.TaskStatusPending,
		CreatedAt:   now,
	}
}
