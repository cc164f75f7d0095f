package store

import (
	"sync/atomic"
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// EventType names a kind of store change.
type EventType string

const (
	EventReading      EventType = "reading"
	EventAlerts       EventType = "alerts"
	EventSelection    EventType = "selection"
	EventTimeRange    EventType = "time_range"
	EventThresholds   EventType = "thresholds"
	EventPreferences  EventType = "preferences"
	EventHistory      EventType = "history"
	EventAcknowledged EventType = "acknowledged"
)

// Event is a change notification. Only the fields relevant to Type are set.
type Event struct {
	Type      EventType              `json:"type"`
	At        time.Time              `json:"at"`
	BatteryID string                 `json:"battery_id,omitempty"`
	AlertID   string                 `json:"alert_id,omitempty"`
	Snapshot  *models.MetricSnapshot `json:"snapshot,omitempty"`
	Alerts    []models.AlertRecord   `json:"alerts,omitempty"`
	Selection []string               `json:"selection,omitempty"`
	TimeRange models.TimeRange       `json:"time_range,omitempty"`
}

// Subscribe returns a channel of change events and a cancel func. A subscriber that falls behind by more
// than buffer events misses events rather than blocking the store.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Dropped returns how many events were discarded for slow subscribers.
func (s *Store) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// publish must be called with the write lock held.
func (s *Store) publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&s.dropped, 1)
		}
	}
}
