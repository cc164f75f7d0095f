package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/alerts"
	"batteryfleet/backend/services/fleet-monitor/internal/feed"
	"batteryfleet/backend/services/fleet-monitor/internal/history"
	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

var (
	// ErrUnknownBattery is returned for ids never seen on the feed.
	ErrUnknownBattery = errors.New("unknown battery")
	// ErrAlertNotFound is returned when acknowledging a missing alert.
	ErrAlertNotFound = errors.New("alert not found")
)

// Options configures a Store. Zero values fall back to the defaults below.
type Options struct {
	LiveCapacity   int
	ChartCapacity  int
	HourlyCapacity int
	HourlyBucket   time.Duration
	Lookback       time.Duration
	Thresholds     models.ThresholdConfig
	TimeRange      models.TimeRange
	Retention      alerts.Retention
	StatusAlerts   bool
	Now            func() time.Time
	Logger         *zap.Logger
}

const (
	DefaultLiveCapacity   = 100
	DefaultChartCapacity  = 100
	DefaultHourlyCapacity = 24
	DefaultLookback       = 5 * time.Minute
)

func (o *Options) applyDefaults() {
	if o.LiveCapacity <= 0 {
		o.LiveCapacity = DefaultLiveCapacity
	}
	if o.ChartCapacity <= 0 {
		o.ChartCapacity = DefaultChartCapacity
	}
	if o.HourlyCapacity <= 0 {
		o.HourlyCapacity = DefaultHourlyCapacity
	}
	if o.HourlyBucket <= 0 {
		o.HourlyBucket = time.Hour
	}
	if o.Lookback <= 0 {
		o.Lookback = DefaultLookback
	}
	if o.Thresholds == (models.ThresholdConfig{}) {
		o.Thresholds = models.DefaultThresholds()
	}
	if o.TimeRange == "" {
		o.TimeRange = models.DefaultTimeRange
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type entity struct {
	battery models.Battery
	current models.MetricSnapshot
	alerts  []models.AlertRecord
}

// Store is the fleet state: batteries, their buffers and alert logs, plus selection, time range,
// thresholds and display preferences. Every mutation runs to completion under one lock.
type Store struct {
	mu sync.RWMutex

	now       func() time.Time
	logger    *zap.Logger
	lookback  time.Duration
	retention alerts.Retention
	generator *alerts.Generator

	order    []string
	entities map[string]*entity
	live     *history.Set
	chart    *history.Set
	hourly   *history.Rollup

	selection        []string
	selectionTouched bool
	timeRange        models.TimeRange
	thresholds       models.ThresholdConfig
	darkMode         bool
	seq              uint64

	subs    map[int]chan Event
	nextSub int
	dropped uint64
}

// New builds an empty store.
func New(opts Options) (*Store, error) {
	opts.applyDefaults()
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if _, err := models.ParseTimeRange(string(opts.TimeRange)); err != nil {
		return nil, err
	}

	live, err := history.NewSet(opts.LiveCapacity)
	if err != nil {
		return nil, fmt.Errorf("store: live buffer: %w", err)
	}
	chart, err := history.NewSet(opts.ChartCapacity)
	if err != nil {
		return nil, fmt.Errorf("store: chart buffer: %w", err)
	}
	hourly, err := history.NewRollup(opts.HourlyBucket, opts.HourlyCapacity)
	if err != nil {
		return nil, fmt.Errorf("store: hourly buffer: %w", err)
	}

	return &Store{
		now:        opts.Now,
		logger:     opts.Logger,
		lookback:   opts.Lookback,
		retention:  opts.Retention,
		generator:  alerts.NewGenerator(opts.StatusAlerts),
		entities:   make(map[string]*entity),
		live:       live,
		chart:      chart,
		hourly:     hourly,
		timeRange:  opts.TimeRange,
		thresholds: opts.Thresholds,
		subs:       make(map[int]chan Event),
	}, nil
}

// Result describes what one feed update changed.
type Result struct {
	BatteryID    string
	Snapshot     models.MetricSnapshot
	NewAlerts    []models.AlertRecord
	Created      bool
	AutoSelected bool
	// Fetch is set when the update caused a selection and history should be loaded for it.
	Fetch *FetchRequest
}

// OnFeedUpdate merges one reading. Malformed fields read as zero; an unseen id creates a battery; the first
// battery seen is selected when nothing has been selected yet.
func (s *Store) OnFeedUpdate(u feed.Update) Result {
	if u.BatteryID == "" {
		return Result{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := u.ReceivedAt
	if ts.IsZero() {
		ts = s.now()
	}
	id := u.BatteryID
	snap := feed.ParseSnapshot(u.Reading, ts)

	e, ok := s.entities[id]
	created := !ok
	if created {
		e = &entity{battery: models.Battery{ID: id, Name: models.DefaultBatteryName}}
	}

	stored := s.live.Append(id, snap)
	s.chart.Append(id, stored)
	s.hourly.Add(id, stored)

	e.current = stored
	e.battery.Connected = true
	e.battery.LastUpdated = ts
	e.battery.Status = u.Reading.Status()
	if name := u.Reading.Name(); name != "" {
		e.battery.Name = name
	}

	fresh := s.generator.Evaluate(id, stored, e.alerts, s.thresholds)
	if rec, ok := s.generator.FromStatus(id, e.battery.Status, stored); ok {
		fresh = append(fresh, rec)
	}
	fresh = s.retention.Admit(fresh, e.alerts)
	e.alerts = s.retention.Apply(append(e.alerts, fresh...), s.now())

	if created {
		s.entities[id] = e
		s.order = append(s.order, id)
		s.logger.Info("battery discovered", zap.String("battery_id", id))
	}

	res := Result{BatteryID: id, Snapshot: stored, NewAlerts: fresh, Created: created}
	if len(s.selection) == 0 && !s.selectionTouched {
		s.selection = []string{id}
		req := s.nextFetch()
		res.AutoSelected = true
		res.Fetch = &req
		s.publish(Event{Type: EventSelection, Selection: s.copySelection()})
	}

	s.publish(Event{Type: EventReading, BatteryID: id, Snapshot: &stored})
	if len(fresh) > 0 {
		s.publish(Event{Type: EventAlerts, BatteryID: id, Alerts: append([]models.AlertRecord(nil), fresh...)})
	}
	return res
}

// SetSelection replaces the selected batteries. Every id must be known. An empty list is a valid,
// explicit empty selection and disables auto-selection.
func (s *Store) SetSelection(ids []string) (FetchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	picked := dedupe(ids)
	for _, id := range picked {
		if _, ok := s.entities[id]; !ok {
			return FetchRequest{}, fmt.Errorf("%w: %s", ErrUnknownBattery, id)
		}
	}
	s.selection = picked
	s.selectionTouched = true
	s.publish(Event{Type: EventSelection, Selection: s.copySelection()})
	return s.nextFetch(), nil
}

// SelectTimeRange switches the active window. Data already held is not refetched here; the returned request
// describes the history load the caller should run.
func (s *Store) SelectTimeRange(r models.TimeRange) (FetchRequest, error) {
	parsed, err := models.ParseTimeRange(string(r))
	if err != nil {
		return FetchRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.timeRange = parsed
	s.publish(Event{Type: EventTimeRange, TimeRange: parsed})
	return s.nextFetch(), nil
}

// SetThresholds replaces the bands. Existing alerts are not re-evaluated.
func (s *Store) SetThresholds(cfg models.ThresholdConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds = cfg
	s.publish(Event{Type: EventThresholds})
	return nil
}

// SetDarkMode sets the display preference.
func (s *Store) SetDarkMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = on
	s.publish(Event{Type: EventPreferences})
}

// ToggleDarkMode flips the display preference and returns the new value.
func (s *Store) ToggleDarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.darkMode = !s.darkMode
	s.publish(Event{Type: EventPreferences})
	return s.darkMode
}

// AcknowledgeAlert marks an alert as seen. Acknowledging twice is not an error.
func (s *Store) AcknowledgeAlert(alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		e := s.entities[id]
		for i := range e.alerts {
			if e.alerts[i].ID != alertID {
				continue
			}
			e.alerts[i].Acknowledged = true
			s.publish(Event{Type: EventAcknowledged, BatteryID: id, AlertID: alertID})
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
}

// Restore applies persisted preferences at startup. Selected ids need not have been seen yet.
func (s *Store) Restore(p models.Preferences) (FetchRequest, error) {
	if err := p.Thresholds.Validate(); err != nil {
		return FetchRequest{}, err
	}
	r, err := models.ParseTimeRange(string(p.TimeRange))
	if err != nil {
		return FetchRequest{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.thresholds = p.Thresholds
	s.timeRange = r
	s.darkMode = p.DarkMode
	s.selection = dedupe(p.Selection)
	s.selectionTouched = len(s.selection) > 0
	s.publish(Event{Type: EventPreferences})
	return s.nextFetch(), nil
}

// Preferences returns the current user-mutable settings.
func (s *Store) Preferences() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Preferences{
		Thresholds: s.thresholds,
		TimeRange:  s.timeRange,
		Selection:  s.copySelection(),
		DarkMode:   s.darkMode,
	}
}

// Batteries lists batteries in the order they were first seen.
func (s *Store) Batteries() []models.Battery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Battery, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id].battery)
	}
	return out
}

// Battery returns one battery.
func (s *Store) Battery(id string) (models.Battery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return models.Battery{}, fmt.Errorf("%w: %s", ErrUnknownBattery, id)
	}
	return e.battery, nil
}

// Selection returns the selected ids.
func (s *Store) Selection() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copySelection()
}

// TimeRange returns the active window.
func (s *Store) TimeRange() models.TimeRange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeRange
}

// Thresholds returns the active bands.
func (s *Store) Thresholds() models.ThresholdConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thresholds
}

// DarkMode returns the display preference.
func (s *Store) DarkMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.darkMode
}

// History returns the live buffer of a battery, optionally from since onwards.
func (s *Store) History(id string, since *time.Time) ([]models.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.entities[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBattery, id)
	}
	return s.live.Read(id, since), nil
}

// Chart returns the chart buffer of a battery limited to the active window.
func (s *Store) Chart(id string) ([]models.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.entities[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBattery, id)
	}
	since := s.timeRange.Since(s.now())
	return s.chart.Read(id, &since), nil
}

// Hourly returns the hourly means of a battery, oldest first.
func (s *Store) Hourly(id string) ([]models.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.entities[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBattery, id)
	}
	return s.hourly.Read(id), nil
}

// Alerts returns alerts in display order, for the selection only or for every battery.
func (s *Store) Alerts(selectedOnly bool) []models.AlertRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order
	if selectedOnly {
		ids = s.selection
	}
	var out []models.AlertRecord
	for _, id := range ids {
		if e, ok := s.entities[id]; ok {
			out = append(out, e.alerts...)
		}
	}
	alerts.Sort(out)
	return out
}

// Recent returns up to perBattery of the newest live readings of each selected battery.
func (s *Store) Recent(perBattery int) []models.NamedSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.NamedSnapshot
	for _, id := range s.selection {
		e, ok := s.entities[id]
		if !ok {
			continue
		}
		snaps := s.live.Read(id, nil)
		if perBattery > 0 && len(snaps) > perBattery {
			snaps = snaps[len(snaps)-perBattery:]
		}
		for _, snap := range snaps {
			out = append(out, models.NamedSnapshot{BatteryID: id, BatteryName: e.battery.Name, MetricSnapshot: snap})
		}
	}
	return out
}

func (s *Store) copySelection() []string {
	return append([]string{}, s.selection...)
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortedCopy(snaps []models.MetricSnapshot) []models.MetricSnapshot {
	out := append([]models.MetricSnapshot(nil), snaps...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
