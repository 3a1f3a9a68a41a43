package zoom

import "time"

// meetingResponse — ответ GET /meetings/{id}.
type meetingResponse struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// instancesResponse — ответ GET /past_meetings/{id}/instances.
type instancesResponse struct {
	Meetings []struct {
		UUID string `json:"uuid"`
	} `json:"meetings"`
}

// RecordingFile — один артефакт в ответе recordings-эндпоинта.
type RecordingFile struct {
	ID             string    `json:"id"`
	RecordingType  string    `json:"recording_type"`
	DownloadURL    string    `json:"download_url"`
	FileSize       int64     `json:"file_size"`
	FileExtension  string    `json:"file_extension,omitempty"`
	RecordingStart time.Time `json:"recording_start"`
	RecordingEnd   time.Time `json:"recording_end,omitempty"`
}

// RecordingsResult — распакованный ответ GET /meetings/{uuid}/recordings.
type RecordingsResult struct {
	UUID  string          `json:"uuid"`
	Topic string          `json:"topic"`
	Files []RecordingFile `json:"recording_files"`
}

// apiError — тело ошибки провайдера.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// tokenResponse — ответ OAuth token-эндпоинта.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
