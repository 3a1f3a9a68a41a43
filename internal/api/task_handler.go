package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
)

// CreateTask ставит задачу скачивания в очередь.
// POST /api/v1/tasks
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.MeetingID == "" {
		BadRequest(w, "email and meeting_id are required")
		return
	}

	task := newTask(req.Email, req.MeetingID, req.ExecuteTime, time.Now())
	if err := h.tasks.Enqueue(r.Context(), task); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("task enqueued",
		"meeting_id", task.MeetingID,
		"execute_time", task.ExecuteTime,
	)
	Created(w, TaskFromDomain(*task))
}

// ListTasks возвращает задачи очереди с фильтрацией по статусу.
// GET /api/v1/tasks?status=...&limit=...
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	status := domain.TaskStatus(r.URL.Query().Get("status"))

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}

	tasks, err := h.tasks.List(r.Context(), status, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = TaskFromDomain(t)
	}
	List(w, result, len(result))
}

// GetTask возвращает задачу по идентификатору встречи.
// GET /api/v1/tasks/{meeting_id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetByMeetingID(r.Context(), r.PathValue("meeting_id"))
	if HandleRepoError(w, h.logger, err, "task not found") {
		return
	}
	Success(w, TaskFromDomain(*task))
}

// DeleteTask снимает задачу с очереди. Используется при удалении встречи
// из расписания: скачивать больше нечего.
// DELETE /api/v1/tasks/{meeting_id}
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("meeting_id")
	if err := h.tasks.Delete(r.Context(), meetingID); HandleRepoError(w, h.logger, err, "task not found") {
		return
	}
	h.logger.Info("task deleted", "meeting_id", meetingID)
	NoContent(w)
}
