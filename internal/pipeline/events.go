package pipeline

import (
	"context"
	"log/slog"

	"github.com/lectorium/backoffice/internal/mq"
)

// Runner ведёт одну встречу до терминального исхода.
type Runner interface {
	Run(ctx context.Context, email, meetingID string) error
}

// NewDueHandler возвращает обработчик событий downloads.due.
//
// Конвейер стартует в отдельной горутине на базовом контексте, а
// событие подтверждается сразу: опрос статуса может длиться часами, и
// держать доставку неподтверждённой всё это время нельзя — брокер
// закроет канал по ack-таймауту и переотправит событие для встречи,
// которая ещё обрабатывается. Конвейеры разных встреч при этом не
// выстраиваются в очередь за одной доставкой. Падение процесса между
// подтверждением и завершением задачи закрывает staleness reclaim
// очереди.
//
// Невалидный payload подтверждается и отбрасывается: переотправка его
// не исправит.
func NewDueHandler(runCtx context.Context, runner Runner, logger *slog.Logger) mq.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, d *mq.Delivery) error {
		payload, err := mq.ParsePayload[mq.DownloadDuePayload](&d.Message)
		if err != nil {
			logger.Error("failed to parse download event",
				"message_id", d.Message.ID, "error", err)
			return nil
		}
		if payload.Email == "" || payload.MeetingID == "" {
			logger.Error("download event missing email or meeting_id",
				"message_id", d.Message.ID)
			return nil
		}

		go func() {
			if err := runner.Run(runCtx, payload.Email, payload.MeetingID); err != nil {
				logger.Error("pipeline failed",
					"meeting_id", payload.MeetingID, "error", err)
			}
		}()
		return nil
	}
}
