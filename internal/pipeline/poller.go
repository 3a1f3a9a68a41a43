package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
	"github.com/lectorium/backoffice/internal/telemetry"
)

// PollState — терминальное состояние автомата опроса статуса встречи.
type PollState string

const (
	// StateChecking — нетерминальное состояние: опрос продолжается.
	StateChecking PollState = "checking"
	// StateEndedOrWaiting — встреча завершилась или хост ещё не начал её:
	// можно переходить к получению записей.
	StateEndedOrWaiting PollState = "ended_or_waiting"
	// StateNotFound — встреча недоступна стабильно, лимит ошибок исчерпан.
	StateNotFound PollState = "not_found"
	// StateGaveUpOngoing — встреча идёт дольше, чем мы готовы ждать.
	StateGaveUpOngoing PollState = "gave_up_ongoing"
)

// MeetingAPI — срез клиента Zoom, нужный опросчику.
type MeetingAPI interface {
	GetMeeting(ctx context.Context, email, meetingID string) (*domain.MeetingInfo, error)
}

// PollerConfig — зависимости и пороги автомата опроса.
type PollerConfig struct {
	API   MeetingAPI
	Clock Clock
	// NotFoundLimit — сколько подряд неудачных опросов терпим,
	// прежде чем признать встречу недоступной.
	NotFoundLimit int
	// OngoingLimit — сколько пауз подряд пережидаем идущую встречу;
	// на следующем после них наблюдении started автомат сдаётся.
	OngoingLimit int
	// OngoingBackoff — паузы между опросами идущей встречи: n-я пауза
	// берётся по счётчику, последний элемент — потолок.
	OngoingBackoff []time.Duration
	// FailureWait — пауза после неудачного опроса.
	FailureWait time.Duration
	Logger      *slog.Logger
}

// Poller опрашивает статус встречи до терминального состояния.
type Poller struct {
	api           MeetingAPI
	clock         Clock
	notFoundLimit int
	ongoingLimit  int
	backoff       []time.Duration
	failureWait   time.Duration
	logger        *slog.Logger
}

// NewPoller создаёт опросчик; нулевые пороги заменяются значениями
// по умолчанию.
func NewPoller(cfg PollerConfig) *Poller {
	p := &Poller{
		api:           cfg.API,
		clock:         cfg.Clock,
		notFoundLimit: cfg.NotFoundLimit,
		ongoingLimit:  cfg.OngoingLimit,
		backoff:       cfg.OngoingBackoff,
		failureWait:   cfg.FailureWait,
		logger:        cfg.Logger,
	}
	if p.clock == nil {
		p.clock = NewClock()
	}
	if p.notFoundLimit <= 0 {
		p.notFoundLimit = 5
	}
	if p.ongoingLimit <= 0 {
		p.ongoingLimit = 20
	}
	if len(p.backoff) == 0 {
		p.backoff = []time.Duration{2 * time.Minute, 4 * time.Minute, 8 * time.Minute}
	}
	if p.failureWait <= 0 {
		p.failureWait = 8 * time.Minute
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// OngoingWait возвращает паузу перед следующим опросом после attempt
// подряд идущих наблюдений статуса started (attempt начинается с 1).
// За пределами таблицы действует последний элемент.
func (p *Poller) OngoingWait(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(p.backoff) {
		attempt = len(p.backoff)
	}
	return p.backoff[attempt-1]
}

// Poll ведёт автомат до терминального состояния. Счётчики not-found и
// ongoing независимы; успешный опрос сбрасывает счётчик неудач, а
// неизвестный статус считается неудачей, чтобы автомат гарантированно
// завершался. При отмене контекста возвращается StateChecking и ctx.Err().
func (p *Poller) Poll(ctx context.Context, email, meetingID string) (PollState, error) {
	log := telemetry.WithMeeting(p.logger, email, meetingID)

	notFound := 0
	ongoing := 0
	for {
		info, err := p.api.GetMeeting(ctx, email, meetingID)
		switch {
		case err != nil:
			notFound++
			log.Warn("status poll failed",
				slog.Int("attempt", notFound), slog.Any("error", err))
			if notFound >= p.notFoundLimit {
				return p.finish(log, StateNotFound), nil
			}
			if err := p.clock.Sleep(ctx, p.failureWait); err != nil {
				return StateChecking, err
			}

		case info.Status == domain.MeetingStatusEnded || info.Status == domain.MeetingStatusWaiting:
			log.Info("meeting ready for fetch", slog.String("status", string(info.Status)))
			return p.finish(log, StateEndedOrWaiting), nil

		case info.Status == domain.MeetingStatusStarted:
			notFound = 0
			ongoing++
			if ongoing > p.ongoingLimit {
				return p.finish(log, StateGaveUpOngoing), nil
			}
			wait := p.OngoingWait(ongoing)
			log.Info("meeting still in progress",
				slog.Int("attempt", ongoing), slog.Duration("wait", wait))
			if err := p.clock.Sleep(ctx, wait); err != nil {
				return StateChecking, err
			}

		default:
			// Неопознанный статус API: трактуем как неудачу опроса,
			// иначе автомат мог бы крутиться вечно.
			notFound++
			log.Warn("unknown meeting status",
				slog.String("status", string(info.Status)), slog.Int("attempt", notFound))
			if notFound >= p.notFoundLimit {
				return p.finish(log, StateNotFound), nil
			}
			if err := p.clock.Sleep(ctx, p.failureWait); err != nil {
				return StateChecking, err
			}
		}
	}
}

func (p *Poller) finish(log *slog.Logger, state PollState) PollState {
	telemetry.PollOutcomes.WithLabelValues(string(state)).Inc()
	if state != StateEndedOrWaiting {
		log.Warn("poll finished without fetch", slog.String("state", string(state)))
	}
	return state
}
