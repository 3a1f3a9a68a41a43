package api

import (
	"encoding/json"
	"net/http"
)

// ListRecordings возвращает артефакты встречи.
// GET /api/v1/recordings?meeting_id=...
func (h *Handler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	meetingID := r.URL.Query().Get("meeting_id")
	if meetingID == "" {
		BadRequest(w, "meeting_id is required")
		return
	}

	recordings, err := h.recordings.ListByMeeting(r.Context(), meetingID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RecordingResponse, len(recordings))
	for i, rec := range recordings {
		result[i] = RecordingFromDomain(rec)
	}
	List(w, result, len(result))
}

// BeginTrim захватывает артефакт под обрезку.
// POST /api/v1/trims
//
// Захват атомарен: из двух конкурентных запросов ровно один получает 200,
// второй — 409 без каких-либо изменений в хранилище.
func (h *Handler) BeginTrim(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.MeetingUUID == "" || req.RecordingID == "" {
		BadRequest(w, "meeting_uuid and recording_id are required")
		return
	}

	if err := h.recordings.BeginTrim(r.Context(), req.MeetingUUID, req.RecordingID); HandleRepoError(w, h.logger, err, "recording not found") {
		return
	}

	h.logger.Info("trim started",
		"meeting_uuid", req.MeetingUUID,
		"recording_id", req.RecordingID,
	)
	rec, err := h.recordings.GetByRecordingID(r.Context(), req.MeetingUUID, req.RecordingID)
	if HandleRepoError(w, h.logger, err, "recording not found") {
		return
	}
	Success(w, RecordingFromDomain(*rec))
}

// CompleteTrim фиксирует готовый обрезанный артефакт: создаёт производную
// запись "<recording_id>_trimmed" и снимает guard.
// POST /api/v1/trims/complete
func (h *Handler) CompleteTrim(w http.ResponseWriter, r *http.Request) {
	var req CompleteTrimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.MeetingUUID == "" || req.RecordingID == "" || req.TrimmedPath == "" {
		BadRequest(w, "meeting_uuid, recording_id and trimmed_path are required")
		return
	}

	if err := h.recordings.FinishTrim(r.Context(), req.MeetingUUID, req.RecordingID, req.TrimmedPath); HandleRepoError(w, h.logger, err, "recording not found") {
		return
	}

	h.logger.Info("trim completed",
		"meeting_uuid", req.MeetingUUID,
		"recording_id", req.RecordingID,
	)
	rec, err := h.recordings.GetByRecordingID(r.Context(), req.MeetingUUID, req.RecordingID)
	if HandleRepoError(w, h.logger, err, "recording not found") {
		return
	}
	Success(w, RecordingFromDomain(*rec))
}

// AbortTrim снимает guard без результата: обрезка сорвалась, артефакт
// нужно освободить для повторной попытки.
// POST /api/v1/trims/abort
func (h *Handler) AbortTrim(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.MeetingUUID == "" || req.RecordingID == "" {
		BadRequest(w, "meeting_uuid and recording_id are required")
		return
	}

	if err := h.recordings.AbortTrim(r.Context(), req.MeetingUUID, req.RecordingID); HandleRepoError(w, h.logger, err, "recording not found") {
		return
	}

	h.logger.Info("trim aborted",
		"meeting_uuid", req.MeetingUUID,
		"recording_id", req.RecordingID,
	)
	NoContent(w)
}

// CancelTrim снимает обрезку с артефакта и удаляет производную запись.
// POST /api/v1/trims/cancel
//
// Отклоняется, пока обрезка идёт: сначала нужно дождаться её завершения.
func (h *Handler) CancelTrim(w http.ResponseWriter, r *http.Request) {
	var req TrimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.MeetingUUID == "" || req.RecordingID == "" {
		BadRequest(w, "meeting_uuid and recording_id are required")
		return
	}

	if err := h.recordings.CancelTrim(r.Context(), req.MeetingUUID, req.RecordingID); HandleRepoError(w, h.logger, err, "recording not found") {
		return
	}

	h.logger.Info("trim cancelled",
		"meeting_uuid", req.MeetingUUID,
		"recording_id", req.RecordingID,
	)
	NoContent(w)
}
