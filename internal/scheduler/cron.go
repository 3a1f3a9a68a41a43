package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — стандартный пятипольный формат (минуты, часы, день,
// месяц, день недели).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// parseSchedules парсит набор cron-выражений.
func parseSchedules(exprs []string) ([]cron.Schedule, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("no cron expressions configured")
	}
	schedules := make([]cron.Schedule, 0, len(exprs))
	for _, expr := range exprs {
		s, err := cronParser.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
		}
		schedules = append(schedules, s)
	}
	return schedules, nil
}

// nextDue возвращает ближайший тик среди всех расписаний. Время from
// конвертируется в таймзону расписания, результат возвращается в UTC.
func nextDue(schedules []cron.Schedule, loc *time.Location, from time.Time) time.Time {
	fromInTz := from.In(loc)

	var next time.Time
	for _, s := range schedules {
		candidate := s.Next(fromInTz)
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next.UTC()
}
