package alerts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// Message renders an alert as dashboard text, e.g. "Temperature exceeded threshold: 46.0°C (Threshold: 45°C)".
func Message(rec models.AlertRecord) string {
	verb := "fell below"
	if rec.Direction == models.DirectionHigh {
		verb = "exceeded"
	}
	return fmt.Sprintf("%s %s threshold: %s (Threshold: %s%s)",
		rec.Metric.Label(), verb, FormatValue(rec.Metric, rec.Value),
		decimal.NewFromFloat(rec.Threshold).String(), rec.Metric.Unit())
}

// FormatValue renders a reading with the precision used across the dashboard.
func FormatValue(kind models.MetricKind, value float64) string {
	d := decimal.NewFromFloat(value)
	switch kind {
	case models.MetricSOC, models.MetricSOH:
		return d.Round(0).String() + "%"
	case models.MetricTemperature:
		return d.StringFixed(1) + "°C"
	}
	return d.StringFixed(2) + kind.Unit()
}
