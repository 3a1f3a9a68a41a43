package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lectorium/backoffice/internal/domain"
)

// fakeTaskQueue — in-memory очередь задач с атомарным захватом:
// та же семантика, что у filtered UPDATE в Postgres.
type fakeTaskQueue struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.DownloadTask
}

func newFakeTaskQueue() *fakeTaskQueue {
	return &fakeTaskQueue{tasks: make(map[uuid.UUID]*domain.DownloadTask)}
}

func (q *fakeTaskQueue) add(meetingID string, executeTime time.Time, status domain.TaskStatus, lastUpdated *time.Time) uuid.UUID {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.New()
	q.tasks[id] = &domain.DownloadTask{
		ID:          id,
		Email:       "host@lectorium.ru",
		MeetingID:   meetingID,
		ExecuteTime: executeTime,
		Status:      status,
		LastUpdated: lastUpdated,
	}
	return id
}

func (q *fakeTaskQueue) ClaimDue(_ context.Context, now time.Time, limit int) ([]domain.DownloadTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var claimed []domain.DownloadTask
	for _, t := range q.tasks {
		if len(claimed) >= limit {
			break
		}
		if t.Status == domain.TaskStatusPending && !t.ExecuteTime.After(now) {
			t.Status = domain.TaskStatusInProgress
			ts := now
			t.LastUpdated = &ts
			claimed = append(claimed, *t)
		}
	}
	return claimed, nil
}

func (q *fakeTaskQueue) ReclaimStale(_ context.Context, now time.Time, staleAfter time.Duration) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := now.Add(-staleAfter)
	var n int64
	for _, t := range q.tasks {
		if t.Status == domain.TaskStatusInProgress && t.LastUpdated != nil && !t.LastUpdated.After(cutoff) {
			t.Status = domain.TaskStatusPending
			t.LastUpdated = nil
			n++
		}
	}
	return n, nil
}

func (q *fakeTaskQueue) status(id uuid.UUID) domain.TaskStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tasks[id].Status
}

// fakeDispatcher фиксирует переданные задачи.
type fakeDispatcher struct {
	mu   sync.Mutex
	got  []string
	fail error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, task *domain.DownloadTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.got = append(d.got, task.MeetingID)
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.got)
}

func newTestWorker(q TaskStore, d Dispatcher, now time.Time) *Worker {
	return New(Config{
		Tasks:      q,
		Dispatcher: d,
		StaleAfter: 20 * time.Minute,
		BatchSize:  100,
		Now:        func() time.Time { return now },
	})
}

func TestScanDispatchesDueTasks(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q := newFakeTaskQueue()
	due1 := q.add("111", now.Add(-time.Hour), domain.TaskStatusPending, nil)
	due2 := q.add("222", now, domain.TaskStatusPending, nil)
	future := q.add("333", now.Add(time.Hour), domain.TaskStatusPending, nil)

	d := &fakeDispatcher{}
	w := newTestWorker(q, d, now)

	w.scan(context.Background())

	if d.count() != 2 {
		t.Fatalf("dispatched = %d, want 2", d.count())
	}
	if st := q.status(due1); st != domain.TaskStatusInProgress {
		t.Errorf("due1 status = %q, want in_progress", st)
	}
	if st := q.status(due2); st != domain.TaskStatusInProgress {
		t.Errorf("due2 status = %q, want in_progress", st)
	}
	if st := q.status(future); st != domain.TaskStatusPending {
		t.Errorf("future status = %q, want pending", st)
	}

	// Повторный скан ничего не находит: задачи уже захвачены.
	w.scan(context.Background())
	if d.count() != 2 {
		t.Errorf("dispatched after rescan = %d, want 2", d.count())
	}
}

func TestConcurrentWorkersNeverDoubleClaim(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q := newFakeTaskQueue()
	const tasks = 50
	for i := 0; i < tasks; i++ {
		q.add(uuid.NewString(), now.Add(-time.Minute), domain.TaskStatusPending, nil)
	}

	d := &fakeDispatcher{}
	const workers = 4
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := newTestWorker(q, d, now)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.scan(context.Background())
		}()
	}
	wg.Wait()

	if d.count() != tasks {
		t.Errorf("dispatched = %d, want %d (no double claim)", d.count(), tasks)
	}
}

func TestReclaimStaleBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q := newFakeTaskQueue()

	exactly := now.Add(-20 * time.Minute)
	fresh := now.Add(-19 * time.Minute)
	stale := q.add("stale", now.Add(-2*time.Hour), domain.TaskStatusInProgress, &exactly)
	alive := q.add("alive", now.Add(-2*time.Hour), domain.TaskStatusInProgress, &fresh)

	d := &fakeDispatcher{}
	w := newTestWorker(q, d, now)

	w.scan(context.Background())

	// Зависшая задача вернулась в pending и тут же была захвачена снова.
	if st := q.status(stale); st != domain.TaskStatusInProgress {
		t.Errorf("stale status = %q, want re-claimed in_progress", st)
	}
	if d.count() != 1 {
		t.Errorf("dispatched = %d, want 1", d.count())
	}
	// Живая задача на границе окна не тронута.
	if st := q.status(alive); st != domain.TaskStatusInProgress {
		t.Errorf("alive status = %q, want in_progress", st)
	}
}

func TestDispatchFailureLeavesTaskInProgress(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q := newFakeTaskQueue()
	id := q.add("111", now.Add(-time.Minute), domain.TaskStatusPending, nil)

	d := &fakeDispatcher{fail: errors.New("pipeline unreachable")}
	w := newTestWorker(q, d, now)

	w.scan(context.Background())

	// Задача остаётся in_progress: её вернёт reclaim по окну staleness.
	if st := q.status(id); st != domain.TaskStatusInProgress {
		t.Errorf("status = %q, want in_progress", st)
	}
	if d.count() != 0 {
		t.Errorf("dispatched = %d, want 0", d.count())
	}
}
