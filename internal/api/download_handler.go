package api

import (
	"encoding/json"
	"net/http"

	"github.com/lectorium/backoffice/internal/telemetry"
)

// StartDownload принимает захваченную задачу и запускает для неё конвейер.
// POST /api/v1/downloads
//
// Ответ 202 отправляется сразу: конвейер работает в фоне и может длиться
// часами. Подтверждения воркеру очереди нет — если конвейер умрёт,
// задача вернётся в очередь по окну staleness.
func (h *Handler) StartDownload(w http.ResponseWriter, r *http.Request) {
	var req StartDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.MeetingID == "" {
		BadRequest(w, "email and meeting_id are required")
		return
	}

	log := telemetry.WithMeeting(h.logger, req.Email, req.MeetingID)
	log.Info("download accepted", "task_id", req.TaskID)

	go func() {
		if err := h.pipeline.Run(h.runCtx, req.Email, req.MeetingID); err != nil {
			log.Error("pipeline failed", "task_id", req.TaskID, "error", err)
		}
	}()

	Accepted(w, map[string]string{"meeting_id": req.MeetingID})
}
