package aggregate

import (
	"errors"
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// ErrEmptyInput is returned when asked to reduce zero snapshots. Callers report an empty selection instead.
var ErrEmptyInput = errors.New("aggregate: no snapshots")

// Aggregate reduces snapshots to one. A single snapshot is returned unchanged; several are averaged
// per field and stamped with now.
func Aggregate(snaps []models.MetricSnapshot, now time.Time) (models.MetricSnapshot, error) {
	if len(snaps) == 0 {
		return models.MetricSnapshot{}, ErrEmptyInput
	}
	if len(snaps) == 1 {
		return snaps[0], nil
	}
	return mean(snaps, now), nil
}

// AggregateAt averages snapshots like Aggregate but always stamps the result with ref.
func AggregateAt(snaps []models.MetricSnapshot, ref time.Time) (models.MetricSnapshot, error) {
	if len(snaps) == 0 {
		return models.MetricSnapshot{}, ErrEmptyInput
	}
	return mean(snaps, ref), nil
}

func mean(snaps []models.MetricSnapshot, ts time.Time) models.MetricSnapshot {
	var out models.MetricSnapshot
	for _, s := range snaps {
		out.Voltage += s.Voltage
		out.Current += s.Current
		out.Power += s.Power
		out.SOC += s.SOC
		out.SOH += s.SOH
		out.Temperature += s.Temperature
	}
	n := float64(len(snaps))
	out.Voltage /= n
	out.Current /= n
	out.Power /= n
	out.SOC /= n
	out.SOH /= n
	out.Temperature /= n
	out.Timestamp = ts
	return out
}

// EntityHistory is one entity's ascending history and its current snapshot.
type EntityHistory struct {
	History []models.MetricSnapshot
	Current models.MetricSnapshot
}

// Previous builds the comparison point lookback before now. Each entity contributes its first entry at or
// after now-lookback, or its current snapshot when it has none.
func Previous(entities []EntityHistory, now time.Time, lookback time.Duration) (models.MetricSnapshot, error) {
	ref := now.Add(-lookback)
	picks := make([]models.MetricSnapshot, 0, len(entities))
	for _, e := range entities {
		pick := e.Current
		for _, s := range e.History {
			if !s.Timestamp.Before(ref) {
				pick = s
				break
			}
		}
		picks = append(picks, pick)
	}
	return AggregateAt(picks, ref)
}
