package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TaskResponse — задача скачивания из API.
type TaskResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	MeetingID   string `json:"meeting_id"`
	ExecuteTime string `json:"execute_time"`
	Status      string `json:"status"`
	LastUpdated string `json:"last_updated,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// RecordingResponse — артефакт из API.
type RecordingResponse struct {
	RecordingID        string `json:"recording_id"`
	MeetingID          string `json:"meeting_id"`
	MeetingUUID        string `json:"meeting_uuid"`
	RecordingType      string `json:"recording_type"`
	FileName           string `json:"file_name,omitempty"`
	FilePath           string `json:"file_path,omitempty"`
	FileSize           int64  `json:"file_size"`
	DownloadStatus     string `json:"download_status"`
	Trim               bool   `json:"trim"`
	TrimmingInProgress bool   `json:"trimming_in_progress"`
}

// NotificationResponse — уведомление из API.
type NotificationResponse struct {
	GameID      int64  `json:"game_id"`
	Status      string `json:"status"`
	LastUpdated string `json:"last_updated,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// --- Request types ---

// CreateTaskRequest — постановка задачи скачивания.
type CreateTaskRequest struct {
	Email       string `json:"email"`
	MeetingID   string `json:"meeting_id"`
	ExecuteTime string `json:"execute_time,omitempty"`
}

// TrimRequest — trim-операция над артефактом.
type TrimRequest struct {
	MeetingUUID string `json:"meeting_uuid"`
	RecordingID string `json:"recording_id"`
}

// CompleteTrimRequest — фиксация готового обрезанного артефакта.
type CompleteTrimRequest struct {
	MeetingUUID string `json:"meeting_uuid"`
	RecordingID string `json:"recording_id"`
	TrimmedPath string `json:"trimmed_path"`
}

// CreateNotificationRequest — постановка уведомления.
type CreateNotificationRequest struct {
	GameID int64 `json:"game_id"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для API бэк-офиса.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Tasks ---

// ListTasks возвращает задачи очереди с фильтрацией по статусу.
func (c *Client) ListTasks(status string, limit int) ([]TaskResponse, error) {
	params := url.Values{}
	if status != "" {
		params.Set("status", status)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var tasks []TaskResponse
	err := c.list("/api/v1/tasks", params, &tasks)
	return tasks, err
}

// CreateTask ставит задачу скачивания в очередь.
func (c *Client) CreateTask(req CreateTaskRequest) (*TaskResponse, error) {
	var task TaskResponse
	err := c.post("/api/v1/tasks", req, &task)
	return &task, err
}

// GetTask возвращает задачу по идентификатору встречи.
func (c *Client) GetTask(meetingID string) (*TaskResponse, error) {
	var task TaskResponse
	err := c.get("/api/v1/tasks/"+meetingID, &task)
	return &task, err
}

// DeleteTask снимает задачу с очереди.
func (c *Client) DeleteTask(meetingID string) error {
	return c.delete("/api/v1/tasks/" + meetingID)
}

// --- Recordings ---

// ListRecordings возвращает артефакты встречи.
func (c *Client) ListRecordings(meetingID string) ([]RecordingResponse, error) {
	params := url.Values{}
	params.Set("meeting_id", meetingID)

	var recordings []RecordingResponse
	err := c.list("/api/v1/recordings", params, &recordings)
	return recordings, err
}

// BeginTrim захватывает артефакт под обрезку.
func (c *Client) BeginTrim(req TrimRequest) (*RecordingResponse, error) {
	var rec RecordingResponse
	err := c.post("/api/v1/trims", req, &rec)
	return &rec, err
}

// CompleteTrim фиксирует готовый обрезанный артефакт.
func (c *Client) CompleteTrim(req CompleteTrimRequest) (*RecordingResponse, error) {
	var rec RecordingResponse
	err := c.post("/api/v1/trims/complete", req, &rec)
	return &rec, err
}

// AbortTrim освобождает артефакт после сорвавшейся обрезки.
func (c *Client) AbortTrim(req TrimRequest) error {
	return c.post("/api/v1/trims/abort", req, nil)
}

// CancelTrim снимает обрезку с артефакта.
func (c *Client) CancelTrim(req TrimRequest) error {
	return c.post("/api/v1/trims/cancel", req, nil)
}

// --- Notifications ---

// SweepNotifications запускает внеочередной проход доставки.
func (c *Client) SweepNotifications() error {
	return c.post("/api/v1/notifications/sweep", nil, nil)
}

// ListNotifications возвращает очередь уведомлений.
func (c *Client) ListNotifications() ([]NotificationResponse, error) {
	var notifications []NotificationResponse
	err := c.list("/api/v1/notifications", nil, &notifications)
	return notifications, err
}

// CreateNotification ставит уведомление в очередь.
func (c *Client) CreateNotification(gameID int64) (*NotificationResponse, error) {
	var n NotificationResponse
	err := c.post("/api/v1/notifications", CreateNotificationRequest{GameID: gameID}, &n)
	return &n, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
