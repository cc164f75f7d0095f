package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/feed"
	"batteryfleet/backend/services/fleet-monitor/internal/models"
	"batteryfleet/backend/services/fleet-monitor/internal/settings"
	"batteryfleet/backend/services/fleet-monitor/internal/store"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu      sync.Mutex
	windows []time.Duration
	respond func(ctx context.Context, window time.Duration) (map[string][]models.MetricSnapshot, error)
}

func (f *fakeFetcher) FetchRange(ctx context.Context, ids []string, since time.Time, limit int) (map[string][]models.MetricSnapshot, error) {
	window := base.Sub(since)
	f.mu.Lock()
	f.windows = append(f.windows, window)
	f.mu.Unlock()
	return f.respond(ctx, window)
}

func (f *fakeFetcher) calls(window time.Duration) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.windows {
		if w == window {
			n++
		}
	}
	return n
}

type fakeSettings struct {
	mu      sync.Mutex
	prefs   models.Preferences
	loadErr error
	saved   []models.Preferences
}

func (f *fakeSettings) Load(context.Context) (models.Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prefs, f.loadErr
}

func (f *fakeSettings) Save(_ context.Context, p models.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakeSettings) last() (models.Preferences, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return models.Preferences{}, 0
	}
	return f.saved[len(f.saved)-1], len(f.saved)
}

type fakeNotifier struct {
	mu     sync.Mutex
	alerts []models.AlertRecord
}

func (f *fakeNotifier) Notify(_ models.Battery, a models.AlertRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
}

func (f *fakeNotifier) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

type fakeSource struct {
	updates []feed.Update
}

func (f *fakeSource) Run(ctx context.Context, out chan<- feed.Update) error {
	for _, u := range f.updates {
		select {
		case out <- u:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-ctx.Done()
	return nil
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(store.Options{Now: func() time.Time { return base }})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return st
}

func reading(id string, fields feed.RawReading) feed.Update {
	return feed.Update{BatteryID: id, Reading: fields, ReceivedAt: base}
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

func voltages(snaps []models.MetricSnapshot) []float64 {
	out := make([]float64, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, s.Voltage)
	}
	return out
}

func TestAutoSelectLoadsHistoryAndPersists(t *testing.T) {
	st := newStore(t)
	fetcher := &fakeFetcher{respond: func(_ context.Context, _ time.Duration) (map[string][]models.MetricSnapshot, error) {
		return map[string][]models.MetricSnapshot{
			"b1": {{Timestamp: base.Add(-2 * time.Hour), Voltage: 12.1}},
		}, nil
	}}
	repo := &fakeSettings{}
	m := NewMonitor(st, nil, fetcher, repo, nil, Options{}, zap.NewNop())
	defer m.Close()

	res := m.Apply(reading("b1", feed.RawReading{"voltage": 12.5}))
	if !res.AutoSelected || res.Fetch == nil {
		t.Fatalf("expected auto selection, got %+v", res)
	}

	waitFor(t, time.Second, func() bool {
		chart, err := st.Chart("b1")
		return err == nil && len(chart) == 2
	})
	chart, _ := st.Chart("b1")
	if got := voltages(chart); got[0] != 12.1 || got[1] != 12.5 {
		t.Fatalf("unexpected chart %v", got)
	}

	saved, n := repo.last()
	if n == 0 || len(saved.Selection) != 1 || saved.Selection[0] != "b1" {
		t.Fatalf("selection not persisted: %+v", saved)
	}
}

func TestStaleRangeResultDiscarded(t *testing.T) {
	st := newStore(t)
	gate := make(chan struct{})
	fetcher := &fakeFetcher{respond: func(ctx context.Context, window time.Duration) (map[string][]models.MetricSnapshot, error) {
		if window == time.Hour {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return map[string][]models.MetricSnapshot{
				"b1": {{Timestamp: base.Add(-30 * time.Minute), Voltage: 13}},
			}, nil
		}
		return map[string][]models.MetricSnapshot{
			"b1": {{Timestamp: base.Add(-10 * time.Hour), Voltage: 12}},
		}, nil
	}}
	m := NewMonitor(st, nil, fetcher, nil, nil, Options{}, zap.NewNop())

	m.Apply(reading("b1", feed.RawReading{"voltage": 12.4}))

	if err := m.SelectTimeRange(models.Range1h); err != nil {
		t.Fatalf("select 1h: %v", err)
	}
	waitFor(t, time.Second, func() bool { return fetcher.calls(time.Hour) == 1 })

	if err := m.SelectTimeRange(models.Range24h); err != nil {
		t.Fatalf("select 24h: %v", err)
	}
	close(gate)
	m.Close()

	chart, err := st.Chart("b1")
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	for _, v := range voltages(chart) {
		if v == 13 {
			t.Fatalf("1h result leaked into 24h chart: %v", voltages(chart))
		}
	}
	if got := voltages(chart); len(got) != 2 || got[0] != 12 || got[1] != 12.4 {
		t.Fatalf("unexpected chart %v", got)
	}
	if st.TimeRange() != models.Range24h {
		t.Fatalf("unexpected range %s", st.TimeRange())
	}
}

func TestFetchFailureLeavesStateUnchanged(t *testing.T) {
	st := newStore(t)
	fetcher := &fakeFetcher{respond: func(context.Context, time.Duration) (map[string][]models.MetricSnapshot, error) {
		return nil, errors.New("db down")
	}}
	m := NewMonitor(st, nil, fetcher, nil, nil, Options{}, zap.NewNop())

	m.Apply(reading("b1", feed.RawReading{"voltage": 12.4}))
	if err := m.SelectTimeRange(models.Range7d); err != nil {
		t.Fatalf("select: %v", err)
	}
	m.Close()

	chart, _ := st.Chart("b1")
	if got := voltages(chart); len(got) != 1 || got[0] != 12.4 {
		t.Fatalf("unexpected chart %v", got)
	}
	if st.TimeRange() != models.Range7d {
		t.Fatalf("range should still change, got %s", st.TimeRange())
	}
}

func TestAlertsReachNotifier(t *testing.T) {
	st := newStore(t)
	notifier := &fakeNotifier{}
	m := NewMonitor(st, nil, nil, nil, notifier, Options{}, zap.NewNop())
	defer m.Close()

	m.Apply(reading("b1", feed.RawReading{"voltage": 15, "soc": 95, "temperature": 30}))
	if notifier.count() != 2 {
		t.Fatalf("expected 2 notifications, got %d", notifier.count())
	}
}

func TestRestore(t *testing.T) {
	st := newStore(t)
	repo := &fakeSettings{prefs: models.Preferences{
		Thresholds: models.DefaultThresholds(),
		TimeRange:  models.Range7d,
		Selection:  []string{"b2"},
		DarkMode:   true,
	}}
	m := NewMonitor(st, nil, nil, repo, nil, Options{}, zap.NewNop())
	defer m.Close()

	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if st.TimeRange() != models.Range7d || !st.DarkMode() {
		t.Fatalf("preferences not applied: %+v", st.Preferences())
	}
	if sel := st.Selection(); len(sel) != 1 || sel[0] != "b2" {
		t.Fatalf("unexpected selection %v", sel)
	}
}

func TestRestoreMissingAndFailing(t *testing.T) {
	st := newStore(t)
	m := NewMonitor(st, nil, nil, &fakeSettings{loadErr: settings.ErrNotFound}, nil, Options{}, zap.NewNop())
	if err := m.Restore(context.Background()); err != nil {
		t.Fatalf("missing settings should be ignored, got %v", err)
	}
	m.Close()

	m = NewMonitor(st, nil, nil, &fakeSettings{loadErr: errors.New("boom")}, nil, Options{}, zap.NewNop())
	if err := m.Restore(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	m.Close()
}

func TestInvalidThresholdsNotPersisted(t *testing.T) {
	st := newStore(t)
	repo := &fakeSettings{}
	m := NewMonitor(st, nil, nil, repo, nil, Options{}, zap.NewNop())
	defer m.Close()

	bad := models.DefaultThresholds()
	bad.Voltage = models.Bounds{Low: 20, High: 10}
	if err := m.SetThresholds(bad); !errors.Is(err, models.ErrInvalidThresholds) {
		t.Fatalf("expected ErrInvalidThresholds, got %v", err)
	}
	if _, n := repo.last(); n != 0 {
		t.Fatalf("invalid thresholds should not be saved")
	}

	good := models.DefaultThresholds()
	good.Temperature.High = 50
	if err := m.SetThresholds(good); err != nil {
		t.Fatalf("set thresholds: %v", err)
	}
	if saved, _ := repo.last(); saved.Thresholds.Temperature.High != 50 {
		t.Fatalf("thresholds not persisted: %+v", saved.Thresholds)
	}
}

func TestRunConsumesSource(t *testing.T) {
	st := newStore(t)
	src := &fakeSource{updates: []feed.Update{
		reading("b1", feed.RawReading{"voltage": 12}),
		reading("b2", feed.RawReading{"voltage": 13}),
		reading("b1", feed.RawReading{"voltage": 12.2}),
	}}
	m := NewMonitor(st, src, nil, nil, nil, Options{}, zap.NewNop())
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	waitFor(t, time.Second, func() bool {
		hist, err := st.History("b1", nil)
		return err == nil && len(hist) == 2 && len(st.Batteries()) == 2
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop")
	}
}
