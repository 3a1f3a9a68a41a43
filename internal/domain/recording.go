package domain

import "time"

// DownloadStatus — статус скачивания артефакта.
type DownloadStatus string

const (
	// DownloadStatusNotDownloaded — артефакт обнаружен, но ещё не скачан.
	DownloadStatusNotDownloaded DownloadStatus = "not_downloaded"

	// DownloadStatusDownloaded — артефакт сохранён в хранилище.
	DownloadStatusDownloaded DownloadStatus = "downloaded"
)

// Известные типы артефактов. Записи других типов сохраняются,
// но не скачиваются.
const (
	RecordingTypeScreen = "shared_screen_with_speaker_view"
	RecordingTypeAudio  = "audio_only"
	RecordingTypeChat   = "chat_file"
)

// Recording — один скачиваемый артефакт экземпляра встречи.
//
// Запись создаётся при обнаружении через recordings-эндпоинт и после
// download_status=downloaded неизменна, кроме trim-метаданных.
// Производный "_trimmed" артефакт хранится отдельной записью с
// RecordingID = "<исходный>_trimmed".
type Recording struct {
	// RecordingID — идентификатор артефакта (уникален в рамках хранилища).
	RecordingID string `json:"recording_id"`

	// MeetingID — стабильный идентификатор родительской встречи.
	MeetingID string `json:"meeting_id"`

	// MeetingUUID — экземпляр встречи, которому принадлежит артефакт.
	MeetingUUID string `json:"meeting_uuid"`

	// RecordingType — тип артефакта (экран, аудио, чат).
	RecordingType string `json:"recording_type"`

	// FileName — имя файла в хранилище (после скачивания).
	FileName string `json:"file_name,omitempty"`

	// FilePath — путь к файлу в хранилище (после скачивания).
	FilePath string `json:"file_path,omitempty"`

	// FileSize — размер в байтах по данным провайдера.
	FileSize int64 `json:"file_size"`

	// StartTime/EndTime — границы записи по данным провайдера.
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`

	// DownloadStatus — статус скачивания.
	DownloadStatus DownloadStatus `json:"download_status"`

	// Trim — у артефакта есть производная обрезанная версия.
	Trim bool `json:"trim,omitempty"`

	// TrimmingInProgress — guard против конкурентной обрезки.
	// Выставляется и снимается только атомарным compare-and-set.
	TrimmingInProgress bool `json:"trimming_in_progress,omitempty"`
}

// IsDownloadable возвращает true для типов артефактов, которые скачиваются.
func (r *Recording) IsDownloadable() bool {
	switch r.RecordingType {
	case RecordingTypeScreen, RecordingTypeAudio, RecordingTypeChat:
		return true
	default:
		return false
	}
}

// TrimmedID возвращает идентификатор производного обрезанного артефакта.
func (r *Recording) TrimmedID() string {
	return r.RecordingID + "_trimmed"
}
