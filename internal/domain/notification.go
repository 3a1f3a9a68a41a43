package domain

import "time"

// NotificationStatus — статус задачи-уведомления.
//
// Жизненный цикл:
//
//	pending → in_progress → (удаление записи при доставке)
//	                      ↘ error → (повторная отправка отдельным циклом)
type NotificationStatus string

const (
	// NotificationStatusPending — уведомление ожидает отправки.
	NotificationStatusPending NotificationStatus = "pending"

	// NotificationStatusInProgress — уведомление включено в отправляемый батч.
	NotificationStatusInProgress NotificationStatus = "in_progress"

	// NotificationStatusError — батч не доставлен, запись ждёт error-sweep.
	NotificationStatusError NotificationStatus = "error"
)

// NotificationTask — отложенное уведомление об игре.
//
// Создаётся при ингестии расписания. Сама запись в очереди и есть
// уведомление: при подтверждённой доставке запись удаляется, повторная
// отправка не нужна.
type NotificationTask struct {
	// GameID — идентификатор игры из расписания.
	GameID int64 `json:"game_id"`

	// Status — текущий статус.
	Status NotificationStatus `json:"status"`

	// LastUpdated — время последнего перехода статуса.
	LastUpdated *time.Time `json:"last_updated,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}
