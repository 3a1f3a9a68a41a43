package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
)

// CreateNotification ставит уведомление в очередь доставки.
// POST /api/v1/notifications
//
// Повторная постановка того же game_id — no-op: очередь идемпотентна.
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.GameID <= 0 {
		BadRequest(w, "game_id is required")
		return
	}

	n := &domain.NotificationTask{
		GameID:    req.GameID,
		Status:    domain.NotificationStatusPending,
		CreatedAt: time.Now(),
	}
	if err := h.notifications.Create(r.Context(), n); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("notification enqueued", "game_id", n.GameID)
	Created(w, NotificationFromDomain(*n))
}

// ListNotifications возвращает очередь уведомлений.
// GET /api/v1/notifications
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notifications.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		result[i] = NotificationFromDomain(n)
	}
	List(w, result, len(result))
}

// SweepNotifications запускает внеочередной проход доставки,
// не дожидаясь тика цикла.
// POST /api/v1/notifications/sweep
func (h *Handler) SweepNotifications(w http.ResponseWriter, r *http.Request) {
	h.sweeper.SweepNow(r.Context())
	h.logger.Info("notification sweep triggered")
	NoContent(w)
}
