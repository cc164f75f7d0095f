package store

import (
	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/aggregate"
	"batteryfleet/backend/services/fleet-monitor/internal/models"
	"batteryfleet/backend/services/fleet-monitor/internal/threshold"
)

// Summary aggregates the selected batteries into metric cards. With nothing selected (or nothing received
// for the selection yet) the result is marked Empty instead of aggregating zero inputs.
func (s *Store) Summary() models.FleetSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := models.FleetSnapshot{Selected: s.copySelection(), Generated: now}

	var currents []models.MetricSnapshot
	var histories []aggregate.EntityHistory
	for _, id := range s.selection {
		e, ok := s.entities[id]
		if !ok {
			continue
		}
		currents = append(currents, e.current)
		histories = append(histories, aggregate.EntityHistory{History: s.live.Read(id, nil), Current: e.current})
	}
	if len(currents) == 0 {
		out.Empty = true
		return out
	}

	current, err := aggregate.Aggregate(currents, now)
	if err != nil {
		s.logger.Error("aggregate current", zap.Error(err))
		out.Empty = true
		return out
	}
	previous, err := aggregate.Previous(histories, now, s.lookback)
	if err != nil {
		s.logger.Error("aggregate previous", zap.Error(err))
		previous = current
	}

	out.Current = current
	out.Previous = previous
	for _, kind := range models.AllKinds {
		v, _ := current.Value(kind)
		p, _ := previous.Value(kind)
		card := models.MetricCard{
			Kind:     kind,
			Value:    v,
			Previous: p,
			Unit:     kind.Unit(),
			Status:   string(threshold.Status(kind, v, s.thresholds)),
			Trend:    aggregate.Trend(v, p),
		}
		switch kind {
		case models.MetricSOH:
			card.Detail = threshold.HealthBand(v)
		case models.MetricCurrent:
			card.Detail = aggregate.CurrentDirection(v)
		}
		out.Cards = append(out.Cards, card)
	}
	return out
}
