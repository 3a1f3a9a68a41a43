package api

import (
	"net/http"
)

// RegisterRoutes регистрирует маршруты API. Маршруты зависимостей,
// которые не сконфигурированы, пропускаются.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Конвейер
	if h.pipeline != nil {
		mux.Handle("POST /api/v1/downloads", chain(http.HandlerFunc(h.StartDownload)))
	}

	// Очередь задач скачивания
	if h.tasks != nil {
		mux.Handle("POST /api/v1/tasks", chain(http.HandlerFunc(h.CreateTask)))
		mux.Handle("GET /api/v1/tasks", chain(http.HandlerFunc(h.ListTasks)))
		mux.Handle("GET /api/v1/tasks/{meeting_id}", chain(http.HandlerFunc(h.GetTask)))
		mux.Handle("DELETE /api/v1/tasks/{meeting_id}", chain(http.HandlerFunc(h.DeleteTask)))
	}

	// Записи и trim
	if h.recordings != nil {
		mux.Handle("GET /api/v1/recordings", chain(http.HandlerFunc(h.ListRecordings)))
		mux.Handle("POST /api/v1/trims", chain(http.HandlerFunc(h.BeginTrim)))
		mux.Handle("POST /api/v1/trims/complete", chain(http.HandlerFunc(h.CompleteTrim)))
		mux.Handle("POST /api/v1/trims/abort", chain(http.HandlerFunc(h.AbortTrim)))
		mux.Handle("POST /api/v1/trims/cancel", chain(http.HandlerFunc(h.CancelTrim)))
	}

	// Уведомления
	if h.notifications != nil {
		mux.Handle("POST /api/v1/notifications", chain(http.HandlerFunc(h.CreateNotification)))
		mux.Handle("GET /api/v1/notifications", chain(http.HandlerFunc(h.ListNotifications)))
	}
	if h.sweeper != nil {
		mux.Handle("POST /api/v1/notifications/sweep", chain(http.HandlerFunc(h.SweepNotifications)))
	}
}
