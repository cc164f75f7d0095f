package history

import (
	"errors"
	"sort"
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// ErrInvalidCapacity is returned for a capacity below one.
var ErrInvalidCapacity = errors.New("history: capacity must be positive")

// Buffer is a fixed-capacity ring of snapshots kept in non-decreasing timestamp order.
// It is not safe for concurrent use; the owner serialises access.
type Buffer struct {
	items []models.MetricSnapshot
	head  int
	size  int
}

// NewBuffer allocates a ring holding at most capacity snapshots.
func NewBuffer(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Buffer{items: make([]models.MetricSnapshot, capacity)}, nil
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.items)
}

// Len returns the number of stored snapshots.
func (b *Buffer) Len() int {
	return b.size
}

// Append stores snap as the newest entry, evicting the oldest when full. A timestamp earlier than the
// newest entry is raised to it so that reads stay ordered.
func (b *Buffer) Append(snap models.MetricSnapshot) models.MetricSnapshot {
	if b.size > 0 {
		if last := b.at(b.size - 1); snap.Timestamp.Before(last.Timestamp) {
			snap.Timestamp = last.Timestamp
		}
	}
	if b.size < len(b.items) {
		b.items[(b.head+b.size)%len(b.items)] = snap
		b.size++
		return snap
	}
	b.items[b.head] = snap
	b.head = (b.head + 1) % len(b.items)
	return snap
}

// Last returns the newest entry.
func (b *Buffer) Last() (models.MetricSnapshot, bool) {
	if b.size == 0 {
		return models.MetricSnapshot{}, false
	}
	return b.at(b.size - 1), true
}

// Read copies entries oldest first. With since set, only entries at or after it are returned.
func (b *Buffer) Read(since *time.Time) []models.MetricSnapshot {
	start := 0
	if since != nil {
		start = sort.Search(b.size, func(i int) bool {
			return !b.at(i).Timestamp.Before(*since)
		})
	}
	out := make([]models.MetricSnapshot, 0, b.size-start)
	for i := start; i < b.size; i++ {
		out = append(out, b.at(i))
	}
	return out
}

// Reset drops every entry.
func (b *Buffer) Reset() {
	b.head = 0
	b.size = 0
}

// ReplaceAll swaps the contents for snaps, which must be ascending. Only the newest Cap entries are kept.
func (b *Buffer) ReplaceAll(snaps []models.MetricSnapshot) {
	b.Reset()
	if len(snaps) > len(b.items) {
		snaps = snaps[len(snaps)-len(b.items):]
	}
	for _, s := range snaps {
		b.Append(s)
	}
}

func (b *Buffer) at(i int) models.MetricSnapshot {
	return b.items[(b.head+i)%len(b.items)]
}
