// Package zoom — клиент REST API провайдера встреч и источник OAuth-токенов.
package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
)

// deletedMarker — фрагмент сообщения провайдера об удалённой встрече.
// Провайдер локализует тексты ошибок; у наших аккаунтов язык русский.
const deletedMarker = "не существует"

// Client — клиент REST API провайдера встреч.
type Client struct {
	baseURL string
	tokens  *TokenSource
	client  *http.Client
}

// NewClient создаёт клиент API.
func NewClient(baseURL string, tokens *TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetMeeting возвращает живой статус встречи.
func (c *Client) GetMeeting(ctx context.Context, email, meetingID string) (*domain.MeetingInfo, error) {
	endpoint := fmt.Sprintf("%s/meetings/%s", c.baseURL, url.PathEscape(meetingID))

	resp, err := c.get(ctx, email, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMeetingUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrMeetingUnavailable, resp.StatusCode)
	}

	var m meetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMeetingUnavailable, err)
	}

	info := &domain.MeetingInfo{
		ID:     fmt.Sprintf("%d", m.ID),
		UUID:   m.UUID,
		Status: parseMeetingStatus(m.Status),
	}
	if t, err := time.Parse(time.RFC3339, m.StartTime); err == nil {
		info.StartTime = t
	}
	if t, err := time.Parse(time.RFC3339, m.EndTime); err == nil {
		info.EndTime = t
	}
	return info, nil
}

// ListPastInstances возвращает uuid всех исторических экземпляров встречи
// в порядке, выданном провайдером.
func (c *Client) ListPastInstances(ctx context.Context, email, meetingID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/past_meetings/%s/instances", c.baseURL, url.PathEscape(meetingID))

	resp, err := c.get(ctx, email, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMeetingsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrMeetingsUnavailable, resp.StatusCode)
	}

	var parsed instancesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrMeetingsUnavailable, err)
	}

	uuids := make([]string, 0, len(parsed.Meetings))
	for _, m := range parsed.Meetings {
		if m.UUID != "" {
			uuids = append(uuids, m.UUID)
		}
	}
	return uuids, nil
}

// GetRecordings возвращает артефакты экземпляра встречи.
//
// 404 с сообщением об удалённой встрече — ErrRecordingDeleted (терминально),
// любой другой 404 — ErrRecordingNotReady (можно повторить).
func (c *Client) GetRecordings(ctx context.Context, email, meetingUUID string) (*RecordingsResult, error) {
	endpoint := fmt.Sprintf("%s/meetings/%s/recordings", c.baseURL, escapeUUID(meetingUUID))

	resp, err := c.get(ctx, email, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordingNotReady, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var result RecordingsResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("%w: decode: %v", ErrRecordingNotReady, err)
		}
		if result.UUID == "" {
			result.UUID = meetingUUID
		}
		return &result, nil

	case resp.StatusCode == http.StatusNotFound:
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil &&
			strings.Contains(apiErr.Message, deletedMarker) {
			return nil, fmt.Errorf("%w: %s", ErrRecordingDeleted, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: status 404", ErrRecordingNotReady)

	default:
		return nil, fmt.Errorf("%w: status %d", ErrRecordingNotReady, resp.StatusCode)
	}
}

// HeadAvailable проверяет доступность download_url HEAD-запросом.
// Провайдер отдаёт 200 только когда артефакт готов к скачиванию.
func (c *Client) HeadAvailable(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// DownloadFile стримит артефакт в w с bearer-авторизацией аккаунта.
func (c *Client) DownloadFile(ctx context.Context, email, downloadURL string, w io.Writer) error {
	token, err := c.tokens.Token(ctx, email)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: status %d", resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("stream download: %w", err)
	}
	return nil
}

// get выполняет авторизованный GET.
func (c *Client) get(ctx context.Context, email, endpoint string) (*http.Response, error) {
	token, err := c.tokens.Token(ctx, email)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	return c.client.Do(req)
}

// parseMeetingStatus нормализует статус провайдера.
func parseMeetingStatus(s string) domain.MeetingStatus {
	switch s {
	case "started":
		return domain.MeetingStatusStarted
	case "waiting":
		return domain.MeetingStatusWaiting
	case "ended":
		return domain.MeetingStatusEnded
	default:
		return domain.MeetingStatusUnknown
	}
}

// escapeUUID кодирует uuid экземпляра для использования в пути.
// UUID, начинающиеся с "/" или содержащие "//", провайдер требует
// кодировать дважды.
func escapeUUID(uuid string) string {
	if strings.HasPrefix(uuid, "/") || strings.Contains(uuid, "//") {
		return url.QueryEscape(url.QueryEscape(uuid))
	}
	return url.QueryEscape(uuid)
}
