package history

import (
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

type bucket struct {
	start time.Time
	sum   models.MetricSnapshot
	count int
}

func (b *bucket) add(s models.MetricSnapshot) {
	b.sum.Voltage += s.Voltage
	b.sum.Current += s.Current
	b.sum.Power += s.Power
	b.sum.SOC += s.SOC
	b.sum.SOH += s.SOH
	b.sum.Temperature += s.Temperature
	b.count++
}

func (b *bucket) mean() models.MetricSnapshot {
	n := float64(b.count)
	return models.MetricSnapshot{
		Timestamp:   b.start,
		Voltage:     b.sum.Voltage / n,
		Current:     b.sum.Current / n,
		Power:       b.sum.Power / n,
		SOC:         b.sum.SOC / n,
		SOH:         b.sum.SOH / n,
		Temperature: b.sum.Temperature / n,
	}
}

// Rollup averages readings into fixed-width buckets per entity. Closed buckets land in a Set, so only the
// newest capacity buckets survive.
type Rollup struct {
	width   time.Duration
	closed  *Set
	pending map[string]*bucket
}

// NewRollup builds a rollup of width-wide buckets keeping capacity closed buckets per entity.
func NewRollup(width time.Duration, capacity int) (*Rollup, error) {
	if width <= 0 {
		width = time.Hour
	}
	set, err := NewSet(capacity)
	if err != nil {
		return nil, err
	}
	return &Rollup{width: width, closed: set, pending: make(map[string]*bucket)}, nil
}

// Capacity returns the number of buckets kept per entity.
func (r *Rollup) Capacity() int {
	return r.closed.Capacity()
}

// Add folds snap into the entity's open bucket, closing it first when snap belongs to a later bucket.
func (r *Rollup) Add(id string, snap models.MetricSnapshot) {
	start := snap.Timestamp.Truncate(r.width)
	cur, ok := r.pending[id]
	if ok && start.After(cur.start) {
		r.closed.Append(id, cur.mean())
		ok = false
	}
	if !ok {
		cur = &bucket{start: start}
		r.pending[id] = cur
	}
	cur.add(snap)
}

// Read returns the newest buckets for the entity, oldest first, including the open bucket.
func (r *Rollup) Read(id string) []models.MetricSnapshot {
	out := r.closed.Read(id, nil)
	if cur, ok := r.pending[id]; ok {
		out = append(out, cur.mean())
	}
	if extra := len(out) - r.closed.Capacity(); extra > 0 {
		out = out[extra:]
	}
	return out
}

// Rebuild recomputes the entity's buckets from ascending snaps.
func (r *Rollup) Rebuild(id string, snaps []models.MetricSnapshot) {
	r.closed.Replace(id, nil)
	delete(r.pending, id)
	for _, s := range snaps {
		r.Add(id, s)
	}
}
