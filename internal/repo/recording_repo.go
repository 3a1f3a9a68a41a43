package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lectorium/backoffice/internal/domain"
)

// RecordingRepo — репозиторий экземпляров встреч и их артефактов.
type RecordingRepo struct {
	pool *pgxpool.Pool
}

// NewRecordingRepo создаёт новый RecordingRepo.
func NewRecordingRepo(pool *pgxpool.Pool) *RecordingRepo {
	return &RecordingRepo{pool: pool}
}

// UpsertInstance сохраняет статус и topic экземпляра встречи.
// Экземпляры без артефактов тоже получают запись (status-only record).
func (r *RecordingRepo) UpsertInstance(ctx context.Context, inst *domain.MeetingInstance) error {
	query := `
		INSERT INTO meeting_instances (meeting_id, uuid, status, topic)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uuid) DO UPDATE SET status = $3, topic = $4
	`
	if _, err := r.pool.Exec(ctx, query, inst.MeetingID, inst.UUID, inst.Status, inst.Topic); err != nil {
		return fmt.Errorf("upsert meeting instance: %w", err)
	}
	return nil
}

// AddRecording сохраняет обнаруженный артефакт.
// Идемпотентно: артефакт с тем же recording_id для того же uuid
// пропускается без ошибки.
func (r *RecordingRepo) AddRecording(ctx context.Context, rec *domain.Recording) error {
	query := `
		INSERT INTO recordings (recording_id, meeting_id, meeting_uuid, recording_type,
		                        file_size, start_time, end_time, download_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (meeting_uuid, recording_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		rec.RecordingID,
		rec.MeetingID,
		rec.MeetingUUID,
		rec.RecordingType,
		rec.FileSize,
		rec.StartTime,
		rec.EndTime,
		rec.DownloadStatus,
	)
	if err != nil {
		return fmt.Errorf("insert recording: %w", err)
	}
	return nil
}

// MarkDownloaded фиксирует скачивание артефакта.
// CAS от not_downloaded: повторное скачивание не перезапишет метаданные.
func (r *RecordingRepo) MarkDownloaded(ctx context.Context, meetingUUID, recordingID, fileName, filePath string) error {
	query := `
		UPDATE recordings
		SET download_status = 'downloaded', file_name = $3, file_path = $4
		WHERE meeting_uuid = $1 AND recording_id = $2 AND download_status = 'not_downloaded'
	`
	result, err := r.pool.Exec(ctx, query, meetingUUID, recordingID, fileName, filePath)
	if err != nil {
		return fmt.Errorf("mark downloaded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// GetByRecordingID возвращает артефакт.
func (r *RecordingRepo) GetByRecordingID(ctx context.Context, meetingUUID, recordingID string) (*domain.Recording, error) {
	query := `
		SELECT recording_id, meeting_id, meeting_uuid, recording_type, file_name, file_path,
		       file_size, start_time, end_time, download_status, trim, trimming_in_progress
		FROM recordings
		WHERE meeting_uuid = $1 AND recording_id = $2
	`
	return scanRecording(r.pool.QueryRow(ctx, query, meetingUUID, recordingID))
}

// ListByMeeting возвращает артефакты всех экземпляров встречи.
func (r *RecordingRepo) ListByMeeting(ctx context.Context, meetingID string) ([]domain.Recording, error) {
	query := `
		SELECT recording_id, meeting_id, meeting_uuid, recording_type, file_name, file_path,
		       file_size, start_time, end_time, download_status, trim, trimming_in_progress
		FROM recordings
		WHERE meeting_id = $1
		ORDER BY start_time ASC
	`
	rows, err := r.pool.Query(ctx, query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var recs []domain.Recording
	for rows.Next() {
		rec, err := scanRecordingFromRows(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// BeginTrim атомарно выставляет guard против конкурентной обрезки.
// Тот же compare-and-set, что и захват задачи: из двух конкурентных
// запросов пройдёт ровно один, второй получит ErrTrimInProgress.
func (r *RecordingRepo) BeginTrim(ctx context.Context, meetingUUID, recordingID string) error {
	query := `
		UPDATE recordings
		SET trimming_in_progress = true
		WHERE meeting_uuid = $1 AND recording_id = $2 AND trimming_in_progress = false
	`
	result, err := r.pool.Exec(ctx, query, meetingUUID, recordingID)
	if err != nil {
		return fmt.Errorf("begin trim: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Ноль строк: либо guard уже стоит, либо артефакта нет.
	if _, err := r.GetByRecordingID(ctx, meetingUUID, recordingID); err != nil {
		return err
	}
	return ErrTrimInProgress
}

// FinishTrim фиксирует результат обрезки: создаёт производный
// "_trimmed" артефакт, выставляет trim=true и снимает guard.
func (r *RecordingRepo) FinishTrim(ctx context.Context, meetingUUID, recordingID, trimmedPath string) error {
	rec, err := r.GetByRecordingID(ctx, meetingUUID, recordingID)
	if err != nil {
		return err
	}

	insert := `
		INSERT INTO recordings (recording_id, meeting_id, meeting_uuid, recording_type,
		                        file_size, start_time, end_time, download_status, file_path, file_name)
		VALUES ($1, $2, $3, $4, 0, $5, $6, 'downloaded', $7, $8)
		ON CONFLICT (meeting_uuid, recording_id)
		DO UPDATE SET file_path = $7, file_name = $8
	`
	trimmedID := rec.TrimmedID()
	_, err = r.pool.Exec(ctx, insert,
		trimmedID,
		rec.MeetingID,
		rec.MeetingUUID,
		rec.RecordingType,
		rec.StartTime,
		rec.EndTime,
		trimmedPath,
		fmt.Sprintf("recording_%s.mp4", trimmedID),
	)
	if err != nil {
		return fmt.Errorf("insert trimmed recording: %w", err)
	}

	update := `
		UPDATE recordings
		SET trim = true, trimming_in_progress = false
		WHERE meeting_uuid = $1 AND recording_id = $2
	`
	if _, err := r.pool.Exec(ctx, update, meetingUUID, recordingID); err != nil {
		return fmt.Errorf("finish trim: %w", err)
	}
	return nil
}

// AbortTrim снимает guard без результата. Вызывается на каждом
// выходе с ошибкой, иначе артефакт останется заблокированным.
func (r *RecordingRepo) AbortTrim(ctx context.Context, meetingUUID, recordingID string) error {
	query := `
		UPDATE recordings
		SET trimming_in_progress = false
		WHERE meeting_uuid = $1 AND recording_id = $2
	`
	if _, err := r.pool.Exec(ctx, query, meetingUUID, recordingID); err != nil {
		return fmt.Errorf("abort trim: %w", err)
	}
	return nil
}

// CancelTrim убирает trim-метки и производный артефакт.
// Во время идущей обрезки отмена отклоняется.
func (r *RecordingRepo) CancelTrim(ctx context.Context, meetingUUID, recordingID string) error {
	rec, err := r.GetByRecordingID(ctx, meetingUUID, recordingID)
	if err != nil {
		return err
	}
	if rec.TrimmingInProgress {
		return ErrTrimInProgress
	}

	query := `
		UPDATE recordings
		SET trim = false
		WHERE meeting_uuid = $1 AND recording_id = $2
	`
	if _, err := r.pool.Exec(ctx, query, meetingUUID, recordingID); err != nil {
		return fmt.Errorf("cancel trim: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`DELETE FROM recordings WHERE meeting_uuid = $1 AND recording_id = $2`,
		meetingUUID, rec.TrimmedID(),
	)
	if err != nil {
		return fmt.Errorf("delete trimmed recording: %w", err)
	}
	return nil
}

// --- Helpers ---

func scanRecording(row pgx.Row) (*domain.Recording, error) {
	var rec domain.Recording
	var fileName, filePath *string

	err := row.Scan(
		&rec.RecordingID,
		&rec.MeetingID,
		&rec.MeetingUUID,
		&rec.RecordingType,
		&fileName,
		&filePath,
		&rec.FileSize,
		&rec.StartTime,
		&rec.EndTime,
		&rec.DownloadStatus,
		&rec.Trim,
		&rec.TrimmingInProgress,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan recording: %w", err)
	}

	if fileName != nil {
		rec.FileName = *fileName
	}
	if filePath != nil {
		rec.FilePath = *filePath
	}
	return &rec, nil
}

func scanRecordingFromRows(rows pgx.Rows) (*domain.Recording, error) {
	var rec domain.Recording
	var fileName, filePath *string

	err := rows.Scan(
		&rec.RecordingID,
		&rec.MeetingID,
		&rec.MeetingUUID,
		&rec.RecordingType,
		&fileName,
		&filePath,
		&rec.FileSize,
		&rec.StartTime,
		&rec.EndTime,
		&rec.DownloadStatus,
		&rec.Trim,
		&rec.TrimmingInProgress,
	)
	if err != nil {
		return nil, fmt.Errorf("scan recording: %w", err)
	}

	if fileName != nil {
		rec.FileName = *fileName
	}
	if filePath != nil {
		rec.FilePath = *filePath
	}
	return &rec, nil
}
