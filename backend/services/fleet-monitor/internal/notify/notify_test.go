package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	failures int
}

func (f *fakeSender) send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("telegram unavailable")
	}
	f.messages = append(f.messages, text)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func testAlert(id string) models.AlertRecord {
	return models.AlertRecord{
		ID:        id,
		BatteryID: "bat-1",
		Metric:    models.MetricTemperature,
		Direction: models.DirectionHigh,
		Message:   "Temperature exceeded threshold: 46.0°C (Threshold: 45°C)",
	}
}

func TestTelegramNotifierDeliversWithRetry(t *testing.T) {
	sender := &fakeSender{failures: 1}
	n := newTelegramNotifier(sender.send, 100, zap.NewNop())
	n.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	n.Notify(models.Battery{ID: "bat-1", Name: "Rack A"}, testAlert("a1"))
	n.Notify(models.Battery{ID: "bat-1", Name: "Rack A"}, testAlert("a2"))

	waitFor(t, time.Second, func() bool { return sender.count() == 2 })

	sender.mu.Lock()
	first := sender.messages[0]
	sender.mu.Unlock()
	if !strings.HasPrefix(first, "[HIGH] Rack A (bat-1)") || !strings.Contains(first, "46.0°C") {
		t.Fatalf("unexpected message %q", first)
	}
}

func TestTelegramNotifierDropsWhenFull(t *testing.T) {
	n := newTelegramNotifier(func(context.Context, string) error { return nil }, 1, zap.NewNop())
	for i := 0; i < defaultQueueSize+5; i++ {
		n.Notify(models.Battery{}, testAlert("x"))
	}
	if n.Dropped() != 5 {
		t.Fatalf("expected 5 dropped, got %d", n.Dropped())
	}
}

func TestNewTelegramNotifierValidates(t *testing.T) {
	if _, err := NewTelegramNotifier("", 1, 1, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing token")
	}
	if _, err := NewTelegramNotifier("123:abc", 0, 1, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing chat id")
	}
}

func TestNoopRunStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = Noop{}.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("noop notifier did not stop")
	}
}
