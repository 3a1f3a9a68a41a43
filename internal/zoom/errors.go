package zoom

import "errors"

// Ошибки провайдера встреч.
var (
	// ErrAuthRefreshFailed — refresh токена не удался; локальные
	// учётные данные не тронуты.
	ErrAuthRefreshFailed = errors.New("auth refresh failed")

	// ErrMeetingUnavailable — статус встречи получить не удалось.
	ErrMeetingUnavailable = errors.New("meeting status unavailable")

	// ErrMeetingsUnavailable — список экземпляров встречи недоступен.
	ErrMeetingsUnavailable = errors.New("past meetings unavailable")

	// ErrRecordingDeleted — встреча удалена у провайдера (терминально).
	ErrRecordingDeleted = errors.New("recording deleted by provider")

	// ErrRecordingNotReady — записи ещё готовятся (можно повторить).
	ErrRecordingNotReady = errors.New("recording not ready")
)
