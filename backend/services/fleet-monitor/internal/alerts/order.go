package alerts

import (
	"sort"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// Sort orders records for display: unacknowledged first, then newest first, then by id.
func Sort(records []models.AlertRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Acknowledged != b.Acknowledged {
			return !a.Acknowledged
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID < b.ID
	})
}
