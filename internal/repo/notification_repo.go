package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lectorium/backoffice/internal/domain"
)

// NotificationRepo — репозиторий очереди уведомлений.
//
// Сама запись и есть уведомление: подтверждённая доставка удаляет её,
// неудачный батч помечает всех участников error до отдельного sweep'а.
type NotificationRepo struct {
	pool *pgxpool.Pool
}

// NewNotificationRepo создаёт новый NotificationRepo.
func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create добавляет уведомление в очередь (ингестия расписания).
func (r *NotificationRepo) Create(ctx context.Context, n *domain.NotificationTask) error {
	query := `
		INSERT INTO game_notifications (game_id, status, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (game_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, n.GameID, n.Status, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ClaimPending атомарно забирает все уведомления, не находящиеся
// в in_progress или error, и помечает их in_progress одним UPDATE.
func (r *NotificationRepo) ClaimPending(ctx context.Context, now time.Time) ([]domain.NotificationTask, error) {
	query := `
		UPDATE game_notifications
		SET status = 'in_progress', last_updated = $1
		WHERE game_id IN (
			SELECT game_id FROM game_notifications
			WHERE status NOT IN ('in_progress', 'error')
			FOR UPDATE SKIP LOCKED
		)
		RETURNING game_id, status, last_updated, created_at
	`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("claim pending notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// ListError возвращает уведомления в статусе error для повторной отправки.
func (r *NotificationRepo) ListError(ctx context.Context) ([]domain.NotificationTask, error) {
	query := `
		SELECT game_id, status, last_updated, created_at
		FROM game_notifications
		WHERE status = 'error'
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list error notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// List возвращает все уведомления (для CLI/операторского чтения).
func (r *NotificationRepo) List(ctx context.Context) ([]domain.NotificationTask, error) {
	query := `
		SELECT game_id, status, last_updated, created_at
		FROM game_notifications
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// MarkError помечает участников неудачного батча статусом error.
func (r *NotificationRepo) MarkError(ctx context.Context, gameIDs []int64, now time.Time) error {
	if len(gameIDs) == 0 {
		return nil
	}
	query := `
		UPDATE game_notifications
		SET status = 'error', last_updated = $2
		WHERE game_id = ANY($1)
	`
	if _, err := r.pool.Exec(ctx, query, gameIDs, now); err != nil {
		return fmt.Errorf("mark notifications error: %w", err)
	}
	return nil
}

// Delete удаляет доставленные уведомления.
func (r *NotificationRepo) Delete(ctx context.Context, gameIDs []int64) error {
	if len(gameIDs) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM game_notifications WHERE game_id = ANY($1)`, gameIDs); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}

func scanNotifications(rows pgx.Rows) ([]domain.NotificationTask, error) {
	var items []domain.NotificationTask
	for rows.Next() {
		var n domain.NotificationTask
		if err := rows.Scan(&n.GameID, &n.Status, &n.LastUpdated, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
