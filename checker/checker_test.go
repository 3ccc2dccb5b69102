package checker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"

	"taskwatch/domain"
	"taskwatch/notify"
)

var checkNow = time.Date(2026, 8, 22, 12, 0, 0, 0, time.Local)

type fakeStore struct {
	tasks []domain.Task
	err   error
	calls int64
}

func (s *fakeStore) ListTasks(ctx context.Context) ([]domain.Task, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.tasks, nil
}

type sinkCall struct {
	title   string
	message string
	timeout time.Duration
}

type fakeSink struct {
	mu    sync.Mutex
	err   error
	calls []sinkCall
}

func (s *fakeSink) Notify(_ context.Context, title, message string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{title: title, message: message, timeout: timeout})
	return s.err
}

func (s *fakeSink) Calls() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sinkCall, len(s.calls))
	copy(out, s.calls)
	return out
}

type fakeBroker struct {
	mu     sync.Mutex
	alerts []domain.Alert
}

func (b *fakeBroker) Broadcast(a domain.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, a)
}

func (b *fakeBroker) Alerts() []domain.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Alert, len(b.alerts))
	copy(out, b.alerts)
	return out
}

func overdueTask(id string) domain.Task {
	return domain.Task{
		ID:         id,
		Name:       "task " + id,
		Deadline:   domain.NewStamp(checkNow.Add(-time.Hour)),
		NotifyTime: domain.NeverNotify,
		Priority:   domain.PriorityMedium,
	}
}

func newTestChecker(store Storage, sink notify.Sink, stream Broadcaster) *Checker {
	c := New(store, sink, stream, prometheus.NewRegistry())
	c.now = func() time.Time { return checkNow }
	return c
}

func TestRunPassDeliversAlerts(t *testing.T) {
	store := &fakeStore{tasks: []domain.Task{overdueTask("1")}}
	sink := &fakeSink{}
	broker := &fakeBroker{}
	c := newTestChecker(store, sink, broker)

	if err := c.RunPass(context.Background()); err != nil {
		t.Fatalf("run pass: %v", err)
	}

	calls := sink.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one delivery, got %#v", calls)
	}
	if calls[0].title != "Task Overdue!" || calls[0].message != "Task 'task 1' is overdue!" {
		t.Fatalf("unexpected delivery: %#v", calls[0])
	}
	if calls[0].timeout != notify.DefaultTimeout {
		t.Fatalf("unexpected timeout: %v", calls[0].timeout)
	}

	alerts := broker.Alerts()
	if len(alerts) != 1 || alerts[0].Kind != domain.AlertOverdue || alerts[0].TaskID != "1" {
		t.Fatalf("unexpected broadcast: %#v", alerts)
	}

	if got := testutil.ToFloat64(c.metrics.passes); got != 1 {
		t.Fatalf("expected 1 pass counted, got %v", got)
	}
	if got := testutil.ToFloat64(c.metrics.alerts.WithLabelValues("overdue")); got != 1 {
		t.Fatalf("expected 1 overdue alert counted, got %v", got)
	}
}

func TestRunPassSinkFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{tasks: []domain.Task{overdueTask("1"), overdueTask("2")}}
	sink := &fakeSink{err: errors.New("no notification daemon")}
	broker := &fakeBroker{}
	c := newTestChecker(store, sink, broker)

	if err := c.RunPass(context.Background()); err != nil {
		t.Fatalf("sink failures must not fail the pass: %v", err)
	}
	if len(sink.Calls()) != 2 {
		t.Fatalf("expected every alert attempted, got %d", len(sink.Calls()))
	}
	if len(broker.Alerts()) != 2 {
		t.Fatalf("expected every alert broadcast, got %d", len(broker.Alerts()))
	}
	if got := testutil.ToFloat64(c.metrics.deliveryFailures); got != 2 {
		t.Fatalf("expected 2 delivery failures counted, got %v", got)
	}
	if got := testutil.ToFloat64(c.metrics.passes); got != 1 {
		t.Fatalf("expected the pass to complete, got %v", got)
	}
}

func TestRunPassSnapshotFailureAbandonsPass(t *testing.T) {
	store := &fakeStore{err: errors.New("table unavailable")}
	sink := &fakeSink{}
	c := newTestChecker(store, sink, &fakeBroker{})

	err := c.RunPass(context.Background())
	if err == nil {
		t.Fatal("expected pass failure")
	}
	if len(sink.Calls()) != 0 {
		t.Fatalf("no alerts may be delivered on a failed snapshot, got %#v", sink.Calls())
	}
	if got := testutil.ToFloat64(c.metrics.passFailures); got != 1 {
		t.Fatalf("expected 1 pass failure counted, got %v", got)
	}
	if got := testutil.ToFloat64(c.metrics.passes); got != 0 {
		t.Fatalf("abandoned pass must not count as complete, got %v", got)
	}
}

func TestRunPassNoTasksNoAlerts(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	broker := &fakeBroker{}
	c := newTestChecker(store, sink, broker)

	if err := c.RunPass(context.Background()); err != nil {
		t.Fatalf("run pass: %v", err)
	}
	if len(sink.Calls()) != 0 || len(broker.Alerts()) != 0 {
		t.Fatalf("empty snapshot must not alert: %#v %#v", sink.Calls(), broker.Alerts())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	c := newTestChecker(&fakeStore{}, &fakeSink{}, &fakeBroker{})
	c.interval = time.Hour
	defer c.halt()

	c.Start()
	c.Start()

	started := 0
	for _, entry := range hook.AllEntries() {
		if entry.Message == "deadline checker started" {
			started++
		}
	}
	if started != 1 {
		t.Fatalf("expected a single loop start, got %d", started)
	}
}

func TestLoopRunsPasses(t *testing.T) {
	store := &fakeStore{}
	c := newTestChecker(store, &fakeSink{}, &fakeBroker{})
	c.interval = 5 * time.Millisecond
	c.Start()
	defer c.halt()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(&store.calls) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected the loop to run a pass")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
