package alerts

import (
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// Retention bounds a battery's alert log. Zero values disable the corresponding limit.
type Retention struct {
	MaxPerBattery      int           `yaml:"maxPerBattery"`
	MaxAge             time.Duration `yaml:"maxAge"`
	SuppressDuplicates bool          `yaml:"suppressDuplicates"`
}

// DefaultRetention keeps every record. Caps, ages and dedup are opt-in.
func DefaultRetention() Retention {
	return Retention{}
}

// Admit filters incoming records. With SuppressDuplicates, a record is dropped while an unacknowledged
// record for the same metric and direction is already logged.
func (r Retention) Admit(incoming, log []models.AlertRecord) []models.AlertRecord {
	if !r.SuppressDuplicates {
		return incoming
	}
	type key struct {
		metric models.MetricKind
		dir    models.Direction
	}
	open := make(map[key]bool)
	for _, rec := range log {
		if !rec.Acknowledged {
			open[key{rec.Metric, rec.Direction}] = true
		}
	}
	out := incoming[:0:0]
	for _, rec := range incoming {
		k := key{rec.Metric, rec.Direction}
		if open[k] {
			continue
		}
		open[k] = true
		out = append(out, rec)
	}
	return out
}

// Apply trims an arrival-ordered log: records older than MaxAge go first, then the oldest beyond MaxPerBattery.
func (r Retention) Apply(log []models.AlertRecord, now time.Time) []models.AlertRecord {
	if r.MaxAge > 0 {
		cutoff := now.Add(-r.MaxAge)
		kept := log[:0]
		for _, rec := range log {
			if !rec.Timestamp.Before(cutoff) {
				kept = append(kept, rec)
			}
		}
		for i := len(kept); i < len(log); i++ {
			log[i] = models.AlertRecord{}
		}
		log = kept
	}
	if r.MaxPerBattery > 0 && len(log) > r.MaxPerBattery {
		trimmed := make([]models.AlertRecord, r.MaxPerBattery)
		copy(trimmed, log[len(log)-r.MaxPerBattery:])
		log = trimmed
	}
	return log
}
