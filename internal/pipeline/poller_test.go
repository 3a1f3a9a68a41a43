package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lectorium/backoffice/internal/domain"
)

// fakeClock фиксирует запрошенные паузы вместо реального ожидания.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	fail   error
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return c.fail
}

type pollStep struct {
	status domain.MeetingStatus
	err    error
}

// fakeMeetingAPI отдаёт статусы по сценарию; последний шаг повторяется.
type fakeMeetingAPI struct {
	script []pollStep
	calls  int
}

func (a *fakeMeetingAPI) GetMeeting(_ context.Context, _, meetingID string) (*domain.MeetingInfo, error) {
	i := a.calls
	a.calls++
	if i >= len(a.script) {
		i = len(a.script) - 1
	}
	step := a.script[i]
	if step.err != nil {
		return nil, step.err
	}
	return &domain.MeetingInfo{ID: meetingID, Status: step.status}, nil
}

func newTestPoller(api MeetingAPI, clock Clock) *Poller {
	return NewPoller(PollerConfig{
		API:            api,
		Clock:          clock,
		NotFoundLimit:  5,
		OngoingLimit:   20,
		OngoingBackoff: []time.Duration{2 * time.Minute, 4 * time.Minute, 8 * time.Minute},
		FailureWait:    8 * time.Minute,
	})
}

func TestOngoingWaitTable(t *testing.T) {
	p := newTestPoller(nil, &fakeClock{})

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{4, 8 * time.Minute},
		{10, 8 * time.Minute},
	}
	for _, tc := range cases {
		if got := p.OngoingWait(tc.attempt); got != tc.want {
			t.Errorf("OngoingWait(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestPollEndedAfterOngoing(t *testing.T) {
	api := &fakeMeetingAPI{script: []pollStep{
		{status: domain.MeetingStatusStarted},
		{status: domain.MeetingStatusStarted},
		{status: domain.MeetingStatusEnded},
	}}
	clock := &fakeClock{}
	p := newTestPoller(api, clock)

	state, err := p.Poll(context.Background(), "host@lectorium.ru", "123456")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if state != StateEndedOrWaiting {
		t.Fatalf("state = %q, want %q", state, StateEndedOrWaiting)
	}
	if api.calls != 3 {
		t.Errorf("calls = %d, want 3", api.calls)
	}
	want := []time.Duration{2 * time.Minute, 4 * time.Minute}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, clock.sleeps[i], want[i])
		}
	}
}

func TestPollWaitingIsReady(t *testing.T) {
	api := &fakeMeetingAPI{script: []pollStep{{status: domain.MeetingStatusWaiting}}}
	p := newTestPoller(api, &fakeClock{})

	state, err := p.Poll(context.Background(), "host@lectorium.ru", "123456")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if state != StateEndedOrWaiting {
		t.Fatalf("state = %q, want %q", state, StateEndedOrWaiting)
	}
}

func TestPollNotFoundLimit(t *testing.T) {
	api := &fakeMeetingAPI{script: []pollStep{{err: errors.New("meeting unavailable")}}}
	clock := &fakeClock{}
	p := newTestPoller(api, clock)

	state, err := p.Poll(context.Background(), "host@lectorium.ru", "123456")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if state != StateNotFound {
		t.Fatalf("state = %q, want %q", state, StateNotFound)
	}
	if api.calls != 5 {
		t.Errorf("calls = %d, want 5", api.calls)
	}
	if len(clock.sleeps) != 4 {
		t.Errorf("sleeps = %d, want 4", len(clock.sleeps))
	}
	for i, d := range clock.sleeps {
		if d != 8*time.Minute {
			t.Errorf("sleep[%d] = %v, want %v", i, d, 8*time.Minute)
		}
	}
}

func TestPollUnknownStatusCountsAsFailure(t *testing.T) {
	api := &fakeMeetingAPI{script: []pollStep{{status: domain.MeetingStatusUnknown}}}
	p := newTestPoller(api, &fakeClock{})

	state, err := p.Poll(context.Background(), "host@lectorium.ru", "123456")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if state != StateNotFound {
		t.Fatalf("state = %q, want %q", state, StateNotFound)
	}
	if api.calls != 5 {
		t.Errorf("calls = %d, want 5", api.calls)
	}
}

func TestPollSuccessResetsFailureCounter(t *testing.T) {
	// Четыре неудачи, затем успешный опрос: счётчик сбрасывается,
	// и следующие неудачи считаются заново.
	api := &fakeMeetingAPI{script: []pollStep{
		{err: errors.New("unavailable")},
		{err: errors.New("unavailable")},
		{err: errors.New("unavailable")},
		{err: errors.New("unavailable")},
		{status: domain.MeetingStatusStarted},
		{err: errors.New("unavailable")},
		{status: domain.MeetingStatusEnded},
	}}
	p := newTestPoller(api, &fakeClock{})

	state, err := p.Poll(context.Background(), "host@lectorium.ru", "123456")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if state != StateEndedOrWaiting {
		t.Fatalf("state = %q, want %q", state, StateEndedOrWaiting)
	}
	if api.calls != 7 {
		t.Errorf("calls = %d, want 7", api.calls)
	}
}

func TestPollGaveUpOngoing(t *testing.T) {
	// Лимит 3 означает три пережитых паузы: автомат сдаётся на
	// четвёртом подряд наблюдении started.
	api := &fakeMeetingAPI{script: []pollStep{{status: domain.MeetingStatusStarted}}}
	clock := &fakeClock{}
	p := NewPoller(PollerConfig{
		API:          api,
		Clock:        clock,
		OngoingLimit: 3,
	})

	state, err := p.Poll(context.Background(), "host@lectorium.ru", "123456")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if state != StateGaveUpOngoing {
		t.Fatalf("state = %q, want %q", state, StateGaveUpOngoing)
	}
	if api.calls != 4 {
		t.Errorf("calls = %d, want 4", api.calls)
	}
	if len(clock.sleeps) != 3 {
		t.Errorf("sleeps = %d, want 3", len(clock.sleeps))
	}
}

func TestPollOngoingCeilingAtDefaultLimit(t *testing.T) {
	// На дефолтном лимите 20 вечно идущая встреча означает 20 пауз и
	// отказ на 21-м опросе.
	api := &fakeMeetingAPI{script: []pollStep{{status: domain.MeetingStatusStarted}}}
	clock := &fakeClock{}
	p := newTestPoller(api, clock)

	state, err := p.Poll(context.Background(), "host@lectorium.ru", "123456")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if state != StateGaveUpOngoing {
		t.Fatalf("state = %q, want %q", state, StateGaveUpOngoing)
	}
	if api.calls != 21 {
		t.Errorf("calls = %d, want 21", api.calls)
	}
	if len(clock.sleeps) != 20 {
		t.Fatalf("sleeps = %d, want 20", len(clock.sleeps))
	}
	// Первые две паузы — по таблице, дальше действует потолок.
	want := []time.Duration{2 * time.Minute, 4 * time.Minute, 8 * time.Minute}
	for i, d := range clock.sleeps {
		w := want[len(want)-1]
		if i < len(want) {
			w = want[i]
		}
		if d != w {
			t.Errorf("sleep[%d] = %v, want %v", i, d, w)
		}
	}
}

func TestPollContextCancel(t *testing.T) {
	api := &fakeMeetingAPI{script: []pollStep{{status: domain.MeetingStatusStarted}}}
	clock := &fakeClock{fail: context.Canceled}
	p := newTestPoller(api, clock)

	state, err := p.Poll(context.Background(), "host@lectorium.ru", "123456")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if state != StateChecking {
		t.Errorf("state = %q, want %q", state, StateChecking)
	}
}
