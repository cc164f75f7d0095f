package history

import (
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// Set keeps one Buffer per entity, all with the same capacity.
type Set struct {
	capacity int
	buffers  map[string]*Buffer
}

// NewSet returns an empty set whose buffers hold capacity entries.
func NewSet(capacity int) (*Set, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Set{capacity: capacity, buffers: make(map[string]*Buffer)}, nil
}

// Capacity returns the per-entity bound.
func (s *Set) Capacity() int {
	return s.capacity
}

// Append adds snap to the entity's buffer, creating it on first use.
func (s *Set) Append(id string, snap models.MetricSnapshot) models.MetricSnapshot {
	return s.buffer(id).Append(snap)
}

// Read returns the entity's entries, nil for an unknown entity.
func (s *Set) Read(id string, since *time.Time) []models.MetricSnapshot {
	buf, ok := s.buffers[id]
	if !ok {
		return nil
	}
	return buf.Read(since)
}

// Replace swaps the entity's entries for snaps (ascending).
func (s *Set) Replace(id string, snaps []models.MetricSnapshot) {
	s.buffer(id).ReplaceAll(snaps)
}

// Last returns the entity's newest entry.
func (s *Set) Last(id string) (models.MetricSnapshot, bool) {
	buf, ok := s.buffers[id]
	if !ok {
		return models.MetricSnapshot{}, false
	}
	return buf.Last()
}

// Len returns the entity's entry count.
func (s *Set) Len(id string) int {
	if buf, ok := s.buffers[id]; ok {
		return buf.Len()
	}
	return 0
}

func (s *Set) buffer(id string) *Buffer {
	buf, ok := s.buffers[id]
	if !ok {
		// capacity is validated in NewSet
		buf, _ = NewBuffer(s.capacity)
		s.buffers[id] = buf
	}
	return buf
}
