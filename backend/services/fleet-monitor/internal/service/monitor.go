package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/feed"
	"batteryfleet/backend/services/fleet-monitor/internal/metrics"
	"batteryfleet/backend/services/fleet-monitor/internal/models"
	"batteryfleet/backend/services/fleet-monitor/internal/notify"
	"batteryfleet/backend/services/fleet-monitor/internal/settings"
	"batteryfleet/backend/services/fleet-monitor/internal/store"
)

// HistoryFetcher loads stored readings for a window.
type HistoryFetcher interface {
	FetchRange(ctx context.Context, batteryIDs []string, since time.Time, limit int) (map[string][]models.MetricSnapshot, error)
}

// Options tunes the monitor.
type Options struct {
	FetchLimit     int
	FetchTimeout   time.Duration
	PersistTimeout time.Duration
	UpdateBuffer   int
}

func (o *Options) applyDefaults() {
	if o.FetchLimit <= 0 {
		o.FetchLimit = 100
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 2 * time.Second
	}
	if o.UpdateBuffer <= 0 {
		o.UpdateBuffer = 256
	}
}

// Monitor drives the store: it is the only consumer of the feed and issues history loads and
// settings writes on behalf of user actions.
type Monitor struct {
	store    *store.Store
	source   feed.Source
	fetcher  HistoryFetcher
	settings settings.Repository
	notifier notify.Notifier
	logger   *zap.Logger
	opts     Options

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMonitor wires a monitor. source and fetcher may be nil: without a source nothing is ingested, without a
// fetcher range changes only filter data already in memory.
func NewMonitor(st *store.Store, source feed.Source, fetcher HistoryFetcher, repo settings.Repository, notifier notify.Notifier, opts Options, logger *zap.Logger) *Monitor {
	opts.applyDefaults()
	if repo == nil {
		repo = settings.NoopRepository{}
	}
	if notifier == nil {
		notifier = notify.Noop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		store:    st,
		source:   source,
		fetcher:  fetcher,
		settings: repo,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Store exposes the state for read paths.
func (m *Monitor) Store() *store.Store {
	return m.store
}

// Restore applies saved preferences, if any.
func (m *Monitor) Restore(ctx context.Context) error {
	prefs, err := m.settings.Load(ctx)
	if errors.Is(err, settings.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	req, err := m.store.Restore(prefs)
	if err != nil {
		return err
	}
	m.logger.Info("preferences restored",
		zap.String("range", string(prefs.TimeRange)), zap.Strings("selection", prefs.Selection))
	m.fetch(req)
	return nil
}

// Run consumes the feed until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	updates := make(chan feed.Update, m.opts.UpdateBuffer)

	var wg sync.WaitGroup
	if m.source != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.source.Run(ctx, updates); err != nil {
				m.logger.Error("feed stopped", zap.Error(err))
			}
		}()
	} else {
		m.logger.Warn("no feed transport configured")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.notifier.Run(ctx); err != nil {
			m.logger.Error("notifier stopped", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case u := <-updates:
			m.Apply(u)
		}
	}
}

// Apply merges one update. Run calls it for every feed message; it must not be called concurrently
// with itself.
func (m *Monitor) Apply(u feed.Update) store.Result {
	res := m.store.OnFeedUpdate(u)
	if res.BatteryID == "" {
		return res
	}

	metrics.FeedUpdatesTotal.WithLabelValues(res.BatteryID).Inc()
	if res.Created {
		metrics.BatteriesKnown.Inc()
	}
	if len(res.NewAlerts) > 0 {
		battery, err := m.store.Battery(res.BatteryID)
		if err != nil {
			battery = models.Battery{ID: res.BatteryID}
		}
		for _, a := range res.NewAlerts {
			metrics.AlertsRaisedTotal.WithLabelValues(string(a.Metric), string(a.Direction)).Inc()
			m.notifier.Notify(battery, a)
		}
	}
	if res.Fetch != nil {
		m.logger.Info("battery auto-selected", zap.String("battery_id", res.BatteryID))
		m.persist()
		m.fetch(*res.Fetch)
	}
	return res
}

// SetSelection changes the selection, saves it and loads history for it.
func (m *Monitor) SetSelection(ids []string) error {
	req, err := m.store.SetSelection(ids)
	if err != nil {
		return err
	}
	m.persist()
	m.fetch(req)
	return nil
}

// SelectTimeRange changes the window, saves it and loads history for it.
func (m *Monitor) SelectTimeRange(r models.TimeRange) error {
	req, err := m.store.SelectTimeRange(r)
	if err != nil {
		return err
	}
	m.persist()
	m.fetch(req)
	return nil
}

// SetThresholds replaces the bands and saves them.
func (m *Monitor) SetThresholds(cfg models.ThresholdConfig) error {
	if err := m.store.SetThresholds(cfg); err != nil {
		return err
	}
	m.persist()
	return nil
}

// SetDarkMode saves the display preference.
func (m *Monitor) SetDarkMode(on bool) {
	m.store.SetDarkMode(on)
	m.persist()
}

// ToggleDarkMode flips and saves the display preference.
func (m *Monitor) ToggleDarkMode() bool {
	on := m.store.ToggleDarkMode()
	m.persist()
	return on
}

// AcknowledgeAlert marks an alert as seen.
func (m *Monitor) AcknowledgeAlert(id string) error {
	return m.store.AcknowledgeAlert(id)
}

// Close cancels outstanding history loads and waits for them.
func (m *Monitor) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) fetch(req store.FetchRequest) {
	if m.fetcher == nil || len(req.BatteryIDs) == 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if !m.store.Current(req) {
			metrics.HistoryFetchesTotal.WithLabelValues(metrics.OutcomeStale).Inc()
			return
		}

		ctx, cancel := context.WithTimeout(m.baseCtx, m.opts.FetchTimeout)
		defer cancel()

		start := time.Now()
		data, err := m.fetcher.FetchRange(ctx, req.BatteryIDs, req.Since, m.opts.FetchLimit)
		metrics.HistoryFetchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.HistoryFetchesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			m.logger.Error("history fetch failed",
				zap.String("range", string(req.Range)), zap.Uint64("seq", req.Seq), zap.Error(err))
			return
		}
		if !m.store.MergeHistory(req, data) {
			metrics.HistoryFetchesTotal.WithLabelValues(metrics.OutcomeStale).Inc()
			m.logger.Debug("history result superseded", zap.String("range", string(req.Range)), zap.Uint64("seq", req.Seq))
			return
		}
		metrics.HistoryFetchesTotal.WithLabelValues(metrics.OutcomeMerged).Inc()
	}()
}

func (m *Monitor) persist() {
	ctx, cancel := context.WithTimeout(m.baseCtx, m.opts.PersistTimeout)
	defer cancel()
	if err := m.settings.Save(ctx, m.store.Preferences()); err != nil {
		m.logger.Warn("failed to save preferences", zap.Error(err))
	}
}
