package domain

import "time"

// MeetingStatus — живой статус встречи у провайдера.
type MeetingStatus string

const (
	// MeetingStatusStarted — встреча идёт.
	MeetingStatusStarted MeetingStatus = "started"

	// MeetingStatusWaiting — встреча создана, но не начата.
	MeetingStatusWaiting MeetingStatus = "waiting"

	// MeetingStatusEnded — встреча завершена.
	MeetingStatusEnded MeetingStatus = "ended"

	// MeetingStatusUnknown — провайдер вернул нераспознанный статус.
	MeetingStatusUnknown MeetingStatus = "unknown"
)

// MeetingInfo — результат опроса статуса встречи.
// Не персистится: живёт только внутри цикла опроса.
type MeetingInfo struct {
	ID        string        `json:"id"`
	UUID      string        `json:"uuid"`
	Status    MeetingStatus `json:"status"`
	StartTime time.Time     `json:"start_time,omitempty"`
	EndTime   time.Time     `json:"end_time,omitempty"`
}

// InstanceStatus — итог обработки одного исторического экземпляра встречи.
type InstanceStatus string

const (
	// InstanceStatusSuccess — все артефакты экземпляра доступны и сохранены.
	InstanceStatusSuccess InstanceStatus = "success"

	// InstanceStatusProcessing — записи ещё готовятся у провайдера.
	InstanceStatusProcessing InstanceStatus = "processing"

	// InstanceStatusDeleted — встреча удалена у провайдера.
	InstanceStatusDeleted InstanceStatus = "deleted"
)

// MeetingInstance — один исторический экземпляр встречи.
//
// У повторяющейся (или пересозданной) встречи один meeting_id и несколько
// uuid-экземпляров. Запись появляется в хранилище только после первого
// обращения к recordings-эндпоинту.
type MeetingInstance struct {
	// MeetingID — стабильный идентификатор родительской встречи.
	MeetingID string `json:"meeting_id"`

	// UUID — идентификатор конкретного экземпляра.
	UUID string `json:"uuid"`

	// Status — итог последней обработки экземпляра.
	Status InstanceStatus `json:"status"`

	// Topic — название встречи.
	Topic string `json:"topic"`
}
