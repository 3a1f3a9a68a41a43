package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/lectorium/backoffice/internal/mq"
)

// blockingRunner сигналит о старте и не завершается, пока его не отпустят.
type blockingRunner struct {
	release chan struct{}
	began   chan string
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		release: make(chan struct{}),
		began:   make(chan string, 10),
	}
}

func (r *blockingRunner) Run(_ context.Context, _, meetingID string) error {
	r.began <- meetingID
	<-r.release
	return nil
}

func dueDelivery(email, meetingID string) *mq.Delivery {
	return &mq.Delivery{Message: mq.Message{
		ID:   "msg-1",
		Type: mq.MessageTypeDownloadDue,
		Payload: map[string]any{
			"email":      email,
			"meeting_id": meetingID,
		},
	}}
}

func TestDueHandlerAcksBeforePipelineFinishes(t *testing.T) {
	runner := newBlockingRunner()
	defer close(runner.release)
	handler := NewDueHandler(context.Background(), runner, nil)

	// Обработчик обязан вернуться (и тем самым подтвердить доставку)
	// до завершения конвейера.
	if err := handler(context.Background(), dueDelivery("host@lectorium.ru", "123456")); err != nil {
		t.Fatalf("handler: %v", err)
	}

	select {
	case id := <-runner.began:
		if id != "123456" {
			t.Errorf("meeting_id = %q, want 123456", id)
		}
	case <-time.After(time.Second):
		t.Fatal("pipeline was not started")
	}
}

func TestDueHandlerDoesNotSerializeMeetings(t *testing.T) {
	runner := newBlockingRunner()
	defer close(runner.release)
	handler := NewDueHandler(context.Background(), runner, nil)

	// Два события подряд: второй конвейер стартует, пока первый ещё
	// работает.
	for _, id := range []string{"111111", "222222"} {
		if err := handler(context.Background(), dueDelivery("host@lectorium.ru", id)); err != nil {
			t.Fatalf("handler(%s): %v", id, err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-runner.began:
		case <-time.After(time.Second):
			t.Fatalf("only %d of 2 pipelines started", i)
		}
	}
}

func TestDueHandlerDropsInvalidPayload(t *testing.T) {
	runner := newBlockingRunner()
	handler := NewDueHandler(context.Background(), runner, nil)

	// Пустой meeting_id: событие подтверждается без запуска конвейера,
	// переотправка его не исправит.
	if err := handler(context.Background(), dueDelivery("host@lectorium.ru", "")); err != nil {
		t.Fatalf("handler: %v", err)
	}

	select {
	case <-runner.began:
		t.Fatal("pipeline started for invalid payload")
	case <-time.After(50 * time.Millisecond):
	}
}
