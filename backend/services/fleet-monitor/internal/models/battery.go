package models

import "time"

// DefaultBatteryName is used until the feed supplies a name.
const DefaultBatteryName = "Battery Pack"

// Battery is a monitored unit as last seen on the feed.
type Battery struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Connected   bool      `json:"connected"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status,omitempty"`
}

// FleetSnapshot is the derived view over the current selection.
type FleetSnapshot struct {
	Empty     bool           `json:"empty"`
	Selected  []string       `json:"selected"`
	Current   MetricSnapshot `json:"current"`
	Previous  MetricSnapshot `json:"previous"`
	Cards     []MetricCard   `json:"cards"`
	Generated time.Time      `json:"generated_at"`
}

// MetricCard is one summary tile: value, comparison and display status.
type MetricCard struct {
	Kind     MetricKind `json:"kind"`
	Value    float64    `json:"value"`
	Previous float64    `json:"previous"`
	Unit     string     `json:"unit"`
	Status   string     `json:"status"`
	Trend    string     `json:"trend"`
	// Detail is the health band for soh and the flow direction for current.
	Detail string `json:"detail,omitempty"`
}
