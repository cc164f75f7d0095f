package store

import (
	"time"

	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// FetchRequest describes a history load. Range and Seq tag the request so that a result arriving after
// the range or selection moved on is discarded.
type FetchRequest struct {
	Range      models.TimeRange `json:"range"`
	Seq        uint64           `json:"seq"`
	Since      time.Time        `json:"since"`
	BatteryIDs []string         `json:"battery_ids"`
}

// nextFetch must be called with the write lock held.
func (s *Store) nextFetch() FetchRequest {
	s.seq++
	return FetchRequest{
		Range:      s.timeRange,
		Seq:        s.seq,
		Since:      s.timeRange.Since(s.now()),
		BatteryIDs: s.copySelection(),
	}
}

// Current reports whether req is still the latest issued request.
func (s *Store) Current(req FetchRequest) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return req.Seq == s.seq && req.Range == s.timeRange
}

// MergeHistory installs fetched history into the chart and hourly buffers. Results for a superseded
// request are dropped and false is returned. Live readings newer than the fetched data are kept.
func (s *Store) MergeHistory(req FetchRequest, data map[string][]models.MetricSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Seq != s.seq || req.Range != s.timeRange {
		s.logger.Debug("discarding stale history",
			zap.String("range", string(req.Range)), zap.Uint64("seq", req.Seq),
			zap.String("current_range", string(s.timeRange)), zap.Uint64("current_seq", s.seq))
		return false
	}

	for _, id := range req.BatteryIDs {
		snaps, ok := data[id]
		if !ok {
			continue
		}
		if _, known := s.entities[id]; !known {
			continue
		}
		merged := sortedCopy(snaps)
		var last time.Time
		if len(merged) > 0 {
			last = merged[len(merged)-1].Timestamp
		}
		for _, snap := range s.live.Read(id, nil) {
			if snap.Timestamp.After(last) {
				merged = append(merged, snap)
			}
		}
		s.chart.Replace(id, merged)
		s.hourly.Rebuild(id, merged)
	}

	s.publish(Event{Type: EventHistory, TimeRange: req.Range})
	return true
}
