package threshold

import "batteryfleet/backend/services/fleet-monitor/internal/models"

// Result is the validity of one reading against its band.
type Result struct {
	Valid     bool             `json:"valid"`
	Direction models.Direction `json:"direction,omitempty"`
	Bound     float64          `json:"bound,omitempty"`
}

// Classify checks value against the band for kind. Bounds are inclusive; kinds without a band are valid.
func Classify(kind models.MetricKind, value float64, cfg models.ThresholdConfig) Result {
	b, ok := cfg.Bounds(kind)
	if !ok {
		return Result{Valid: true}
	}
	if value < b.Low {
		return Result{Direction: models.DirectionLow, Bound: b.Low}
	}
	if value > b.High {
		return Result{Direction: models.DirectionHigh, Bound: b.High}
	}
	return Result{Valid: true}
}

// Severity is the display status of a metric tile.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityMarginal Severity = "marginal"
	SeverityLow      Severity = "low"
	SeverityHigh     Severity = "high"
)

const marginalBelow = 50

// Status layers the marginal display axis over Classify. SOC and SOH under 50 are marginal when otherwise valid.
func Status(kind models.MetricKind, value float64, cfg models.ThresholdConfig) Severity {
	r := Classify(kind, value, cfg)
	if !r.Valid {
		if r.Direction == models.DirectionLow {
			return SeverityLow
		}
		return SeverityHigh
	}
	if (kind == models.MetricSOC || kind == models.MetricSOH) && value < marginalBelow {
		return SeverityMarginal
	}
	return SeverityOK
}

// HealthBand buckets state of health for display.
func HealthBand(soh float64) string {
	switch {
	case soh < 70:
		return "critical"
	case soh < 85:
		return "degraded"
	}
	return "good"
}
