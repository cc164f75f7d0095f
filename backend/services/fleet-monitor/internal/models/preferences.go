package models

// Preferences are the user-mutable settings that survive restarts.
type Preferences struct {
	Thresholds ThresholdConfig `json:"thresholds"`
	TimeRange  TimeRange       `json:"time_range"`
	Selection  []string        `json:"selection"`
	DarkMode   bool            `json:"dark_mode"`
}
