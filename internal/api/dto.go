package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/lectorium/backoffice/internal/domain"
)

// StartDownloadRequest — запрос на запуск конвейера для захваченной задачи.
type StartDownloadRequest struct {
	TaskID    uuid.UUID `json:"task_id"`
	Email     string    `json:"email"`
	MeetingID string    `json:"meeting_id"`
}

// CreateTaskRequest — запрос на постановку задачи скачивания в очередь.
type CreateTaskRequest struct {
	Email     string    `json:"email"`
	MeetingID string    `json:"meeting_id"`
	// ExecuteTime — раньше этого времени задача не будет захвачена.
	// Пустое значение означает "сразу".
	ExecuteTime time.Time `json:"execute_time,omitzero"`
}

// TaskResponse — задача скачивания в ответах API.
type TaskResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	MeetingID   string     `json:"meeting_id"`
	ExecuteTime time.Time  `json:"execute_time"`
	Status      string     `json:"status"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TaskFromDomain конвертирует доменную задачу в DTO.
func TaskFromDomain(t domain.DownloadTask) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Email:       t.Email,
		MeetingID:   t.MeetingID,
		ExecuteTime: t.ExecuteTime,
		Status:      string(t.Status),
		LastUpdated: t.LastUpdated,
		CreatedAt:   t.CreatedAt,
	}
}

// RecordingResponse — артефакт в ответах API.
type RecordingResponse struct {
	RecordingID        string    `json:"recording_id"`
	MeetingID          string    `json:"meeting_id"`
	MeetingUUID        string    `json:"meeting_uuid"`
	RecordingType      string    `json:"recording_type"`
	FileName           string    `json:"file_name,omitempty"`
	FilePath           string    `json:"file_path,omitempty"`
	FileSize           int64     `json:"file_size"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time,omitzero"`
	DownloadStatus     string    `json:"download_status"`
	Trim               bool      `json:"trim"`
	TrimmingInProgress bool      `json:"trimming_in_progress"`
}

// RecordingFromDomain конвертирует доменный артефакт в DTO.
func RecordingFromDomain(r domain.Recording) RecordingResponse {
	return RecordingResponse{
		RecordingID:        r.RecordingID,
		MeetingID:          r.MeetingID,
		MeetingUUID:        r.MeetingUUID,
		RecordingType:      r.RecordingType,
		FileName:           r.FileName,
		FilePath:           r.FilePath,
		FileSize:           r.FileSize,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		DownloadStatus:     string(r.DownloadStatus),
		Trim:               r.Trim,
		TrimmingInProgress: r.TrimmingInProgress,
	}
}

// TrimRequest — запрос trim-операции. UUID встречи передаётся в теле,
// а не в пути: он может содержать слэши.
type TrimRequest struct {
	MeetingUUID string `json:"meeting_uuid"`
	RecordingID string `json:"recording_id"`
}

// CompleteTrimRequest — запрос на фиксацию готового обрезанного артефакта.
type CompleteTrimRequest struct {
	MeetingUUID string `json:"meeting_uuid"`
	RecordingID string `json:"recording_id"`
	TrimmedPath string `json:"trimmed_path"`
}

// CreateNotificationRequest — запрос на постановку уведомления в очередь.
type CreateNotificationRequest struct {
	GameID int64 `json:"game_id"`
}

// NotificationResponse — уведомление в ответах API.
type NotificationResponse struct {
	GameID      int64      `json:"game_id"`
	Status      string     `json:"status"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NotificationFromDomain конвертирует доменное уведомление в DTO.
func NotificationFromDomain(n domain.NotificationTask) NotificationResponse {
	return NotificationResponse{
		GameID:      n.GameID,
		Status:      string(n.Status),
		LastUpdated: n.LastUpdated,
		CreatedAt:   n.CreatedAt,
	}
}
