package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler по cron-расписанию дёргает сервис обновления расписания игр.
type Scheduler struct {
	endpoint  string
	schedules []cron.Schedule
	loc       *time.Location
	client    *http.Client
	now       func() time.Time

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	// Endpoint — URL сервиса обновления расписания.
	Endpoint string
	// CronExprs — cron-выражения тиков (default: "0 10 * * *" и "30 15 * * *").
	CronExprs []string
	// Timezone — таймзона расписания (default: Europe/Moscow).
	Timezone string

	Client *http.Client
	// Now — источник времени (для тестов).
	Now    func() time.Time
	Logger *slog.Logger
}

// New создаёт Scheduler. Невалидное cron-выражение или таймзона — ошибка
// конфигурации, с ней не стартуем.
func New(cfg Config) (*Scheduler, error) {
	exprs := cfg.CronExprs
	if len(exprs) == 0 {
		exprs = []string{"0 10 * * *", "30 15 * * *"}
	}
	schedules, err := parseSchedules(exprs)
	if err != nil {
		return nil, err
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "Europe/Moscow"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	s := &Scheduler{
		endpoint:  cfg.Endpoint,
		schedules: schedules,
		loc:       loc,
		client:    cfg.Client,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 60 * time.Second}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// NextDue возвращает время ближайшего тика после from (в UTC).
func (s *Scheduler) NextDue(from time.Time) time.Time {
	return nextDue(s.schedules, s.loc, from)
}

// Start запускает цикл ожидания тиков.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting scheduler",
		"endpoint", s.endpoint,
		"next_due", s.NextDue(s.now()),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	return nil
}

// Stop останавливает цикл и дожидается его завершения.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler...")
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	for {
		now := s.now()
		next := s.NextDue(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := s.Trigger(ctx); err != nil {
			s.logger.Error("schedule refresh failed", "error", err)
			continue
		}
		s.logger.Info("schedule refresh triggered", "next_due", s.NextDue(s.now()))
	}
}

// Trigger запускает одно обновление расписания.
func (s *Scheduler) Trigger(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("schedule service returned %d", resp.StatusCode)
	}
	return nil
}
