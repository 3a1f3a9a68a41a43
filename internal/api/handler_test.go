package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
	"github.com/lectorium/backoffice/internal/repo"
)

// fakeTaskStore — in-memory очередь задач по meeting_id.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*domain.DownloadTask
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*domain.DownloadTask)}
}

func (s *fakeTaskStore) Enqueue(_ context.Context, task *domain.DownloadTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.MeetingID]; ok {
		return repo.ErrAlreadyExists
	}
	cp := *task
	s.tasks[task.MeetingID] = &cp
	return nil
}

func (s *fakeTaskStore) GetByMeetingID(_ context.Context, meetingID string) (*domain.DownloadTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[meetingID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTaskStore) List(_ context.Context, status domain.TaskStatus, limit int) ([]domain.DownloadTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DownloadTask
	for _, t := range s.tasks {
		if status != "" && t.Status != status {
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *fakeTaskStore) Delete(_ context.Context, meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[meetingID]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tasks, meetingID)
	return nil
}

// fakeRecordingStore — записи с trim-guard, CAS под мьютексом.
type fakeRecordingStore struct {
	mu         sync.Mutex
	recordings map[string]*domain.Recording
}

func key(uuid, recordingID string) string { return uuid + "/" + recordingID }

func newFakeRecordingStore(recs ...domain.Recording) *fakeRecordingStore {
	s := &fakeRecordingStore{recordings: make(map[string]*domain.Recording)}
	for _, r := range recs {
		cp := r
		s.recordings[key(r.MeetingUUID, r.RecordingID)] = &cp
	}
	return s
}

func (s *fakeRecordingStore) ListByMeeting(_ context.Context, meetingID string) ([]domain.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Recording
	for _, r := range s.recordings {
		if r.MeetingID == meetingID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeRecordingStore) GetByRecordingID(_ context.Context, uuid, recordingID string) (*domain.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recordings[key(uuid, recordingID)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeRecordingStore) BeginTrim(_ context.Context, uuid, recordingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recordings[key(uuid, recordingID)]
	if !ok {
		return repo.ErrNotFound
	}
	if r.TrimmingInProgress {
		return repo.ErrTrimInProgress
	}
	r.TrimmingInProgress = true
	return nil
}

func (s *fakeRecordingStore) FinishTrim(_ context.Context, uuid, recordingID, trimmedPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recordings[key(uuid, recordingID)]
	if !ok {
		return repo.ErrNotFound
	}
	if !r.TrimmingInProgress {
		return repo.ErrConflict
	}
	r.TrimmingInProgress = false
	r.Trim = true
	derived := *r
	derived.RecordingID = r.TrimmedID()
	derived.FilePath = trimmedPath
	derived.Trim = false
	s.recordings[key(uuid, derived.RecordingID)] = &derived
	return nil
}

func (s *fakeRecordingStore) AbortTrim(_ context.Context, uuid, recordingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recordings[key(uuid, recordingID)]; ok {
		r.TrimmingInProgress = false
	}
	return nil
}

func (s *fakeRecordingStore) CancelTrim(_ context.Context, uuid, recordingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recordings[key(uuid, recordingID)]
	if !ok {
		return repo.ErrNotFound
	}
	if r.TrimmingInProgress {
		return repo.ErrTrimInProgress
	}
	r.Trim = false
	delete(s.recordings, key(uuid, r.TrimmedID()))
	return nil
}

// fakeNotificationStore — очередь уведомлений с идемпотентным Create.
type fakeNotificationStore struct {
	mu      sync.Mutex
	entries map[int64]domain.NotificationTask
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{entries: make(map[int64]domain.NotificationTask)}
}

func (s *fakeNotificationStore) Create(_ context.Context, n *domain.NotificationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[n.GameID]; ok {
		return nil
	}
	s.entries[n.GameID] = *n
	return nil
}

func (s *fakeNotificationStore) List(_ context.Context) ([]domain.NotificationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.NotificationTask
	for _, n := range s.entries {
		out = append(out, n)
	}
	return out, nil
}

// fakePipeline фиксирует запущенные конвейеры.
type fakePipeline struct {
	mu   sync.Mutex
	runs []string
	done chan struct{}
}

func (p *fakePipeline) Run(_ context.Context, _, meetingID string) error {
	p.mu.Lock()
	p.runs = append(p.runs, meetingID)
	p.mu.Unlock()
	if p.done != nil {
		close(p.done)
	}
	return nil
}

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(cfg).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateAndGetTask(t *testing.T) {
	store := newFakeTaskStore()
	srv := newTestServer(t, Config{Tasks: store})

	resp := postJSON(t, srv.URL+"/api/v1/tasks", CreateTaskRequest{
		Email:       "host@lectorium.ru",
		MeetingID:   "123456",
		ExecuteTime: time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	getResp, err := http.Get(srv.URL + "/api/v1/tasks/123456")
	if err != nil {
		t.Fatal(err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", getResp.StatusCode)
	}

	var got struct {
		Data TaskResponse `json:"data"`
	}
	if err := json.NewDecoder(getResp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Data.MeetingID != "123456" || got.Data.Status != "pending" {
		t.Errorf("task = %+v", got.Data)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	srv := newTestServer(t, Config{Tasks: newFakeTaskStore()})

	resp := postJSON(t, srv.URL+"/api/v1/tasks", CreateTaskRequest{Email: "host@lectorium.ru"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateTaskDuplicateConflict(t *testing.T) {
	store := newFakeTaskStore()
	srv := newTestServer(t, Config{Tasks: store})

	req := CreateTaskRequest{Email: "host@lectorium.ru", MeetingID: "123456"}
	first := postJSON(t, srv.URL+"/api/v1/tasks", req)
	first.Body.Close()
	second := postJSON(t, srv.URL+"/api/v1/tasks", req)
	defer second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", second.StatusCode)
	}
}

func TestDeleteTask(t *testing.T) {
	store := newFakeTaskStore()
	srv := newTestServer(t, Config{Tasks: store})

	postJSON(t, srv.URL+"/api/v1/tasks", CreateTaskRequest{
		Email: "host@lectorium.ru", MeetingID: "123456",
	}).Body.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/tasks/123456", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if _, err := store.GetByMeetingID(context.Background(), "123456"); err == nil {
		t.Error("task still exists after delete")
	}
}

func TestStartDownloadRunsPipeline(t *testing.T) {
	p := &fakePipeline{done: make(chan struct{})}
	srv := newTestServer(t, Config{Pipeline: p})

	resp := postJSON(t, srv.URL+"/api/v1/downloads", StartDownloadRequest{
		Email: "host@lectorium.ru", MeetingID: "123456",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline was not started")
	}
}

func TestConcurrentTrimBegins(t *testing.T) {
	store := newFakeRecordingStore(domain.Recording{
		RecordingID:    "rec-1",
		MeetingID:      "123456",
		MeetingUUID:    "uuid-1",
		RecordingType:  domain.RecordingTypeScreen,
		DownloadStatus: domain.DownloadStatusDownloaded,
	})
	srv := newTestServer(t, Config{Recordings: store})

	// Два конкурентных захвата: ровно один проходит.
	statuses := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := postJSON(t, srv.URL+"/api/v1/trims", TrimRequest{
				MeetingUUID: "uuid-1", RecordingID: "rec-1",
			})
			defer resp.Body.Close()
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	var ok, conflict int
	for st := range statuses {
		switch st {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Errorf("unexpected status %d", st)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Errorf("ok = %d, conflict = %d; want exactly one of each", ok, conflict)
	}
}

func TestTrimCompleteCreatesDerivedRecording(t *testing.T) {
	store := newFakeRecordingStore(domain.Recording{
		RecordingID:    "rec-1",
		MeetingID:      "123456",
		MeetingUUID:    "uuid-1",
		RecordingType:  domain.RecordingTypeScreen,
		DownloadStatus: domain.DownloadStatusDownloaded,
	})
	srv := newTestServer(t, Config{Recordings: store})

	begin := postJSON(t, srv.URL+"/api/v1/trims", TrimRequest{MeetingUUID: "uuid-1", RecordingID: "rec-1"})
	begin.Body.Close()

	complete := postJSON(t, srv.URL+"/api/v1/trims/complete", CompleteTrimRequest{
		MeetingUUID: "uuid-1", RecordingID: "rec-1", TrimmedPath: "/data/rec-1_trimmed.mp4",
	})
	defer complete.Body.Close()
	if complete.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", complete.StatusCode)
	}

	derived, err := store.GetByRecordingID(context.Background(), "uuid-1", "rec-1_trimmed")
	if err != nil {
		t.Fatalf("derived recording not created: %v", err)
	}
	if derived.FilePath != "/data/rec-1_trimmed.mp4" {
		t.Errorf("derived path = %q", derived.FilePath)
	}
	original, _ := store.GetByRecordingID(context.Background(), "uuid-1", "rec-1")
	if !original.Trim || original.TrimmingInProgress {
		t.Errorf("original = %+v, want trim=true guard cleared", original)
	}
}

func TestCancelTrimRejectedWhileInProgress(t *testing.T) {
	store := newFakeRecordingStore(domain.Recording{
		RecordingID: "rec-1",
		MeetingID:   "123456",
		MeetingUUID: "uuid-1",
	})
	srv := newTestServer(t, Config{Recordings: store})

	postJSON(t, srv.URL+"/api/v1/trims", TrimRequest{MeetingUUID: "uuid-1", RecordingID: "rec-1"}).Body.Close()

	cancel := postJSON(t, srv.URL+"/api/v1/trims/cancel", TrimRequest{MeetingUUID: "uuid-1", RecordingID: "rec-1"})
	defer cancel.Body.Close()
	if cancel.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409 while trim in progress", cancel.StatusCode)
	}
}

func TestAbortTrimReleasesGuard(t *testing.T) {
	store := newFakeRecordingStore(domain.Recording{
		RecordingID: "rec-1",
		MeetingID:   "123456",
		MeetingUUID: "uuid-1",
	})
	srv := newTestServer(t, Config{Recordings: store})

	postJSON(t, srv.URL+"/api/v1/trims", TrimRequest{MeetingUUID: "uuid-1", RecordingID: "rec-1"}).Body.Close()

	abort := postJSON(t, srv.URL+"/api/v1/trims/abort", TrimRequest{MeetingUUID: "uuid-1", RecordingID: "rec-1"})
	abort.Body.Close()
	if abort.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", abort.StatusCode)
	}

	// Guard снят — артефакт снова можно захватить.
	retry := postJSON(t, srv.URL+"/api/v1/trims", TrimRequest{MeetingUUID: "uuid-1", RecordingID: "rec-1"})
	defer retry.Body.Close()
	if retry.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after abort", retry.StatusCode)
	}
}

func TestNotificationsRoundTrip(t *testing.T) {
	store := newFakeNotificationStore()
	srv := newTestServer(t, Config{Notifications: store})

	resp := postJSON(t, srv.URL+"/api/v1/notifications", CreateNotificationRequest{GameID: 777})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	listResp, err := http.Get(srv.URL + "/api/v1/notifications")
	if err != nil {
		t.Fatal(err)
	}
	defer listResp.Body.Close()

	var got struct {
		Data []NotificationResponse `json:"data"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got.Data) != 1 || got.Data[0].GameID != 777 {
		t.Errorf("notifications = %+v", got.Data)
	}
}
