package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики очереди скачиваний.
var (
	// TasksClaimed — сколько задач захвачено циклом очереди.
	TasksClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_download_tasks_claimed_total",
		Help: "Download tasks claimed by the queue loop.",
	})

	// TasksReclaimed — сколько зависших задач возвращено в pending.
	TasksReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_download_tasks_reclaimed_total",
		Help: "Stale in_progress tasks reset back to pending.",
	})

	// TasksFinished — терминальные переходы задач по статусу.
	TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_download_tasks_finished_total",
		Help: "Download tasks moved to a terminal status.",
	}, []string{"status"})

	// DispatchErrors — неудачные попытки отправить задачу в pipeline.
	DispatchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_dispatch_errors_total",
		Help: "Failed fire-and-forget dispatches to the pipeline service.",
	})
)

// Метрики пайплайна.
var (
	// PollOutcomes — исходы конечного автомата опроса по состояниям.
	PollOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_poll_outcomes_total",
		Help: "Terminal states of the meeting status poller.",
	}, []string{"state"})

	// RecordingsDownloaded — скачанные артефакты по типу.
	RecordingsDownloaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_recordings_downloaded_total",
		Help: "Recording artifacts downloaded to storage.",
	}, []string{"recording_type"})

	// TokenRefreshes — обновления OAuth-токенов по результату.
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_token_refreshes_total",
		Help: "OAuth token refresh attempts.",
	}, []string{"result"})
)

// Метрики уведомлений.
var (
	// NotificationBatches — отправленные батчи по результату.
	NotificationBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_notification_batches_total",
		Help: "Notification delivery batches by result.",
	}, []string{"result"})

	// NotificationsDelivered — подтверждённо доставленные уведомления.
	NotificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_notifications_delivered_total",
		Help: "Notifications confirmed delivered and removed from the queue.",
	})
)
