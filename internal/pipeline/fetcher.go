package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
	"github.com/lectorium/backoffice/internal/repo"
	"github.com/lectorium/backoffice/internal/telemetry"
	"github.com/lectorium/backoffice/internal/zoom"
)

// RecordingsAPI — срез клиента Zoom, нужный сборщику записей.
type RecordingsAPI interface {
	ListPastInstances(ctx context.Context, email, meetingID string) ([]string, error)
	GetRecordings(ctx context.Context, email, meetingUUID string) (*zoom.RecordingsResult, error)
	HeadAvailable(ctx context.Context, rawURL string) bool
	DownloadFile(ctx context.Context, email, downloadURL string, w io.Writer) error
}

// RecordingStore — хранилище метаданных экземпляров и артефактов.
type RecordingStore interface {
	UpsertInstance(ctx context.Context, inst *domain.MeetingInstance) error
	AddRecording(ctx context.Context, rec *domain.Recording) error
	GetByRecordingID(ctx context.Context, meetingUUID, recordingID string) (*domain.Recording, error)
	MarkDownloaded(ctx context.Context, meetingUUID, recordingID, fileName, filePath string) error
}

// TaskStore — срез хранилища задач: сборщику нужен только терминальный
// переход.
type TaskStore interface {
	Finish(ctx context.Context, meetingID string, status domain.TaskStatus, now time.Time) error
}

// FetcherConfig — зависимости и пороги сборщика записей.
type FetcherConfig struct {
	API        RecordingsAPI
	Recordings RecordingStore
	Tasks      TaskStore
	Clock      Clock
	// RetryLimit — сколько проходов по экземплярам делаем, ожидая
	// готовности записей у провайдера.
	RetryLimit int
	// RetryWait — пауза между проходами.
	RetryWait time.Duration
	// DownloadDir — каталог для скачанных файлов.
	DownloadDir string
	Logger      *slog.Logger
}

// Fetcher обходит экземпляры встречи, сохраняет обнаруженные артефакты
// и скачивает их.
type Fetcher struct {
	api         RecordingsAPI
	recordings  RecordingStore
	tasks       TaskStore
	clock       Clock
	retryLimit  int
	retryWait   time.Duration
	downloadDir string
	logger      *slog.Logger
}

// NewFetcher создаёт сборщик; нулевые пороги заменяются значениями
// по умолчанию.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	f := &Fetcher{
		api:         cfg.API,
		recordings:  cfg.Recordings,
		tasks:       cfg.Tasks,
		clock:       cfg.Clock,
		retryLimit:  cfg.RetryLimit,
		retryWait:   cfg.RetryWait,
		downloadDir: cfg.DownloadDir,
		logger:      cfg.Logger,
	}
	if f.clock == nil {
		f.clock = NewClock()
	}
	if f.retryLimit <= 0 {
		f.retryLimit = 20
	}
	if f.retryWait <= 0 {
		f.retryWait = 10 * time.Second
	}
	if f.downloadDir == "" {
		f.downloadDir = "downloads"
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// CollectAll обрабатывает все экземпляры встречи до терминального исхода.
//
// Каждый проход перечитывает список экземпляров и опрашивает те, что ещё
// не success: экземпляры с недоступными записями остаются в retry-наборе
// до следующего прохода. Удаление встречи у провайдера терминально для
// всей задачи (deleted_in_zoom). Если за RetryLimit проходов записи так
// и не стали доступны, возвращается ErrFetchExhausted, а задача остаётся
// нетерминальной.
func (f *Fetcher) CollectAll(ctx context.Context, email, meetingID string) error {
	log := telemetry.WithMeeting(f.logger, email, meetingID)

	for attempt := 1; attempt <= f.retryLimit; attempt++ {
		uuids, err := f.api.ListPastInstances(ctx, email, meetingID)
		if err != nil {
			log.Warn("past instances unavailable",
				slog.Int("attempt", attempt), slog.Any("error", err))
			if err := f.clock.Sleep(ctx, f.retryWait); err != nil {
				return err
			}
			continue
		}
		if len(uuids) == 0 {
			log.Warn("meeting has no past instances", slog.Int("attempt", attempt))
			if err := f.clock.Sleep(ctx, f.retryWait); err != nil {
				return err
			}
			continue
		}

		pending := 0
		for _, uuid := range uuids {
			status, err := f.fetchInstance(ctx, email, meetingID, uuid)
			if err != nil {
				return err
			}
			switch status {
			case domain.InstanceStatusDeleted:
				// Удаление терминально для всей задачи: остальные
				// экземпляры не опрашиваем.
				return f.finishTask(ctx, meetingID, domain.TaskStatusDeletedInZoom, log)
			case domain.InstanceStatusProcessing:
				pending++
			}
		}

		if pending == 0 {
			return f.finishTask(ctx, meetingID, domain.TaskStatusDone, log)
		}
		log.Info("recordings still processing",
			slog.Int("attempt", attempt), slog.Int("pending", pending))
		if err := f.clock.Sleep(ctx, f.retryWait); err != nil {
			return err
		}
	}

	log.Error("recordings never became available", slog.Int("attempts", f.retryLimit))
	return ErrFetchExhausted
}

// fetchInstance опрашивает recordings-эндпоинт одного экземпляра,
// сохраняет его статус и при полной доступности артефактов скачивает их.
func (f *Fetcher) fetchInstance(ctx context.Context, email, meetingID, uuid string) (domain.InstanceStatus, error) {
	log := telemetry.WithUUID(telemetry.WithMeeting(f.logger, email, meetingID), uuid)

	result, err := f.api.GetRecordings(ctx, email, uuid)
	switch {
	case errors.Is(err, zoom.ErrRecordingDeleted):
		if err := f.saveInstance(ctx, meetingID, uuid, domain.InstanceStatusDeleted, ""); err != nil {
			return "", err
		}
		log.Warn("meeting deleted by provider")
		return domain.InstanceStatusDeleted, nil

	case errors.Is(err, zoom.ErrRecordingNotReady):
		if err := f.saveInstance(ctx, meetingID, uuid, domain.InstanceStatusProcessing, ""); err != nil {
			return "", err
		}
		return domain.InstanceStatusProcessing, nil

	case err != nil:
		// Сетевые и прочие временные ошибки ретраибельны наравне
		// с неготовыми записями.
		log.Warn("recordings endpoint unavailable", slog.Any("error", err))
		return domain.InstanceStatusProcessing, nil
	}

	for _, file := range result.Files {
		if file.DownloadURL == "" || !f.api.HeadAvailable(ctx, file.DownloadURL) {
			log.Info("artifact not yet available", slog.String("recording_id", file.ID))
			if err := f.saveInstance(ctx, meetingID, uuid, domain.InstanceStatusProcessing, result.Topic); err != nil {
				return "", err
			}
			return domain.InstanceStatusProcessing, nil
		}
	}

	if err := f.saveInstance(ctx, meetingID, uuid, domain.InstanceStatusSuccess, result.Topic); err != nil {
		return "", err
	}
	for _, file := range result.Files {
		if err := f.persistRecording(ctx, meetingID, uuid, file); err != nil {
			return "", err
		}
	}
	for _, file := range result.Files {
		if err := f.download(ctx, email, uuid, file, log); err != nil {
			return "", err
		}
	}
	return domain.InstanceStatusSuccess, nil
}

func (f *Fetcher) saveInstance(ctx context.Context, meetingID, uuid string, status domain.InstanceStatus, topic string) error {
	if topic == "" {
		topic = "Unknown Topic"
	}
	return f.recordings.UpsertInstance(ctx, &domain.MeetingInstance{
		MeetingID: meetingID,
		UUID:      uuid,
		Status:    status,
		Topic:     topic,
	})
}

func (f *Fetcher) persistRecording(ctx context.Context, meetingID, uuid string, file zoom.RecordingFile) error {
	rec := &domain.Recording{
		RecordingID:    file.ID,
		MeetingID:      meetingID,
		MeetingUUID:    uuid,
		RecordingType:  file.RecordingType,
		FileSize:       file.FileSize,
		StartTime:      file.RecordingStart,
		EndTime:        file.RecordingEnd,
		DownloadStatus: domain.DownloadStatusNotDownloaded,
	}
	if err := f.recordings.AddRecording(ctx, rec); err != nil {
		return fmt.Errorf("persist recording %s: %w", file.ID, err)
	}
	return nil
}

// download скачивает один артефакт. Идемпотентно по recording_id:
// уже скачанный артефакт не скачивается повторно и не порождает
// второй файл.
func (f *Fetcher) download(ctx context.Context, email, uuid string, file zoom.RecordingFile, log *slog.Logger) error {
	rec := domain.Recording{RecordingType: file.RecordingType}
	if !rec.IsDownloadable() {
		log.Info("artifact type is not downloadable",
			slog.String("recording_id", file.ID),
			slog.String("recording_type", file.RecordingType))
		return nil
	}

	stored, err := f.recordings.GetByRecordingID(ctx, uuid, file.ID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	if stored != nil && stored.DownloadStatus == domain.DownloadStatusDownloaded {
		log.Info("artifact already downloaded", slog.String("recording_id", file.ID))
		return nil
	}

	name := fmt.Sprintf("recording_%s.%s", file.ID, fileExtension(file))
	path := filepath.Join(f.downloadDir, name)
	if err := f.writeFile(ctx, email, file.DownloadURL, path); err != nil {
		return fmt.Errorf("download %s: %w", file.ID, err)
	}

	if err := f.recordings.MarkDownloaded(ctx, uuid, file.ID, name, path); err != nil {
		// Конкурентный конвейер успел скачать тот же артефакт:
		// файл уже учтён, наша копия лишняя.
		if errors.Is(err, repo.ErrConflict) {
			_ = os.Remove(path)
			return nil
		}
		return err
	}
	telemetry.RecordingsDownloaded.WithLabelValues(file.RecordingType).Inc()
	log.Info("artifact downloaded",
		slog.String("recording_id", file.ID), slog.String("path", path))
	return nil
}

func (f *Fetcher) writeFile(ctx context.Context, email, url, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.api.DownloadFile(ctx, email, url, out); err != nil {
		out.Close()
		_ = os.Remove(path)
		return err
	}
	return out.Close()
}

// finishTask переводит задачу в терминальный статус. Конфликт CAS означает,
// что задачу уже завершил конкурентный конвейер, это не ошибка.
func (f *Fetcher) finishTask(ctx context.Context, meetingID string, status domain.TaskStatus, log *slog.Logger) error {
	err := f.tasks.Finish(ctx, meetingID, status, f.clock.Now())
	if errors.Is(err, repo.ErrConflict) || errors.Is(err, repo.ErrNotFound) {
		log.Info("task already finished", slog.String("status", string(status)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	telemetry.TasksFinished.WithLabelValues(string(status)).Inc()
	log.Info("task finished", slog.String("status", string(status)))
	return nil
}

func fileExtension(file zoom.RecordingFile) string {
	if ext := strings.ToLower(strings.TrimPrefix(file.FileExtension, ".")); ext != "" {
		return ext
	}
	switch file.RecordingType {
	case domain.RecordingTypeAudio:
		return "m4a"
	case domain.RecordingTypeChat:
		return "txt"
	default:
		return "mp4"
	}
}
