package pipeline

import (
	"context"
	"log/slog"

	"github.com/lectorium/backoffice/internal/telemetry"
)

// Pipeline связывает опрос статуса и сбор записей в одну цепочку
// обработки встречи.
type Pipeline struct {
	poller  *Poller
	fetcher *Fetcher
	logger  *slog.Logger
}

// New создаёт конвейер из готовых опросчика и сборщика.
func New(poller *Poller, fetcher *Fetcher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{poller: poller, fetcher: fetcher, logger: logger}
}

// Run доводит одну встречу до терминального исхода: опрашивает статус и,
// если встреча завершилась или так и не началась, собирает записи.
//
// Исходы not_found и gave_up_ongoing не трогают задачу: она остаётся
// in_progress и после окна staleness будет переназначена воркером очереди.
func (p *Pipeline) Run(ctx context.Context, email, meetingID string) error {
	log := telemetry.WithMeeting(p.logger, email, meetingID)

	state, err := p.poller.Poll(ctx, email, meetingID)
	if err != nil {
		return err
	}
	if state != StateEndedOrWaiting {
		log.Warn("meeting skipped", slog.String("state", string(state)))
		return nil
	}
	return p.fetcher.CollectAll(ctx, email, meetingID)
}
