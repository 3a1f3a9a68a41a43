package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus — статус отложенной задачи на скачивание.
//
// Жизненный цикл:
//
//	pending → in_progress → done
//	                      ↘ deleted_in_zoom
//	        ↖ (staleness reclaim)
type TaskStatus string

const (
	// TaskStatusPending — задача ожидает своего execute_time.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusInProgress — задача захвачена воркером.
	TaskStatusInProgress TaskStatus = "in_progress"

	// TaskStatusDone — записи скачаны, задача завершена.
	TaskStatusDone TaskStatus = "done"

	// TaskStatusDeletedInZoom — встреча удалена на стороне провайдера.
	TaskStatusDeletedInZoom TaskStatus = "deleted_in_zoom"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusDone, TaskStatusDeletedInZoom:
		return true
	default:
		return false
	}
}

// DownloadTask — отложенная задача на скачивание записей встречи.
//
// Создаётся при создании встречи: execute_time = время окончания.
// Очередь забирает задачу, когда execute_time наступило, и отправляет
// её в pipeline-сервис. Финальный статус пишет сам pipeline.
type DownloadTask struct {
	// ID — уникальный идентификатор задачи.
	ID uuid.UUID `json:"id"`

	// Email — аккаунт провайдера, от имени которого создана встреча.
	Email string `json:"email"`

	// MeetingID — стабильный идентификатор встречи.
	MeetingID string `json:"meeting_id"`

	// ExecuteTime — момент, начиная с которого задачу можно выполнять.
	ExecuteTime time.Time `json:"execute_time"`

	// Status — текущий статус задачи.
	Status TaskStatus `json:"status"`

	// LastUpdated — время последнего перехода статуса.
	// Nil у pending-задачи, которую ещё никто не брал (или после reclaim).
	LastUpdated *time.Time `json:"last_updated,omitempty"`

	// CreatedAt — время постановки в очередь.
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished возвращает true, если задача завершена.
func (t *DownloadTask) IsFinished() bool {
	return t.Status.IsTerminal()
}

// StaleSince возвращает true, если задача висит in_progress дольше окна.
// Это эвристика восстановления после упавшего воркера, а не доказательство
// эксклюзивного владения.
func (t *DownloadTask) StaleSince(now time.Time, staleAfter time.Duration) bool {
	if t.Status != TaskStatusInProgress || t.LastUpdated == nil {
		return false
	}
	return now.Sub(*t.LastUpdated) >= staleAfter
}
