package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lectorium/backoffice/internal/domain"
)

// TaskRepo — репозиторий очереди задач на скачивание.
//
// Все переходы статуса — одиночные UPDATE с фильтром по ожидаемому
// прежнему состоянию. Потерянных обновлений между циклом сканирования
// и завершениями пайплайна быть не должно.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт новый TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Enqueue ставит pending-задачу в очередь.
func (r *TaskRepo) Enqueue(ctx context.Context, task *domain.DownloadTask) error {
	query := `
		INSERT INTO download_tasks (id, email, meeting_id, execute_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Email,
		task.MeetingID,
		task.ExecuteTime,
		task.Status,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert download task: %w", err)
	}
	return nil
}

// ClaimDue атомарно захватывает задачи, чьё время наступило.
//
// Захват — одиночный UPDATE по подзапросу с FOR UPDATE SKIP LOCKED:
// две конкурентные выборки никогда не вернут одну задачу дважды.
func (r *TaskRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.DownloadTask, error) {
	query := `
		UPDATE download_tasks
		SET status = 'in_progress', last_updated = $1
		WHERE id IN (
			SELECT id FROM download_tasks
			WHERE status = 'pending' AND execute_time <= $1
			ORDER BY execute_time ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, email, meeting_id, execute_time, status, last_updated, created_at
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ReclaimStale возвращает в pending задачи, зависшие in_progress дольше
// окна staleness. last_updated обнуляется, как при свежей постановке.
// Возвращает количество возвращённых задач.
func (r *TaskRepo) ReclaimStale(ctx context.Context, now time.Time, staleAfter time.Duration) (int64, error) {
	cutoff := now.Add(-staleAfter)

	query := `
		UPDATE download_tasks
		SET status = 'pending', last_updated = NULL
		WHERE status = 'in_progress' AND last_updated <= $1
	`
	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale tasks: %w", err)
	}
	return result.RowsAffected(), nil
}

// Finish переводит in_progress задачу встречи в терминальный статус.
// Ноль затронутых строк — не ошибка согласованности, а признак того,
// что задача исчезла (отменена) или уже финализирована: ErrConflict.
func (r *TaskRepo) Finish(ctx context.Context, meetingID string, status domain.TaskStatus, now time.Time) error {
	query := `
		UPDATE download_tasks
		SET status = $2, last_updated = $3
		WHERE meeting_id = $1 AND status = 'in_progress'
	`
	result, err := r.pool.Exec(ctx, query, meetingID, status, now)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// Delete удаляет задачу встречи из очереди (отмена при удалении встречи).
func (r *TaskRepo) Delete(ctx context.Context, meetingID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM download_tasks WHERE meeting_id = $1`, meetingID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает задачу по ID.
func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.DownloadTask, error) {
	query := `
		SELECT id, email, meeting_id, execute_time, status, last_updated, created_at
		FROM download_tasks
		WHERE id = $1
	`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

// GetByMeetingID возвращает задачу по meeting_id.
func (r *TaskRepo) GetByMeetingID(ctx context.Context, meetingID string) (*domain.DownloadTask, error) {
	query := `
		SELECT id, email, meeting_id, execute_time, status, last_updated, created_at
		FROM download_tasks
		WHERE meeting_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanTask(r.pool.QueryRow(ctx, query, meetingID))
}

// List возвращает задачи с фильтрацией по статусу.
func (r *TaskRepo) List(ctx context.Context, status domain.TaskStatus, limit int) ([]domain.DownloadTask, error) {
	query := `
		SELECT id, email, meeting_id, execute_time, status, last_updated, created_at
		FROM download_tasks
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY execute_time DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, nullString(string(status)), limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// --- Helpers ---

func scanTask(row pgx.Row) (*domain.DownloadTask, error) {
	var task domain.DownloadTask
	err := row.Scan(
		&task.ID,
		&task.Email,
		&task.MeetingID,
		&task.ExecuteTime,
		&task.Status,
		&task.LastUpdated,
		&task.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	return &task, nil
}

func scanTasks(rows pgx.Rows) ([]domain.DownloadTask, error) {
	var tasks []domain.DownloadTask
	for rows.Next() {
		var task domain.DownloadTask
		err := rows.Scan(
			&task.ID,
			&task.Email,
			&task.MeetingID,
			&task.ExecuteTime,
			&task.Status,
			&task.LastUpdated,
			&task.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
