package models

import "time"

// Direction is the side of a band that was crossed.
type Direction string

const (
	DirectionLow  Direction = "low"
	DirectionHigh Direction = "high"
)

// AlertRecord is one detected crossing. Only Acknowledged changes after creation.
type AlertRecord struct {
	ID           string     `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	BatteryID    string     `json:"battery_id"`
	Metric       MetricKind `json:"metric"`
	Value        float64    `json:"value"`
	Threshold    float64    `json:"threshold"`
	Direction    Direction  `json:"direction"`
	Acknowledged bool       `json:"acknowledged"`
	Source       string     `json:"source,omitempty"`
	Message      string     `json:"message"`
}
