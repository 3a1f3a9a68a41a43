package pipeline

import (
	"context"
	"time"
)

// Clock абстрагирует время для конвейера: все паузы между попытками
// проходят через него, поэтому в тестах расписание проверяется без
// реальных задержек.
type Clock interface {
	Now() time.Time
	// Sleep блокируется на d или до отмены контекста. При отмене
	// возвращает ctx.Err().
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// NewClock возвращает часы на базе системного времени.
func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
