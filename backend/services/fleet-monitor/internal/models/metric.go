package models

import (
	"fmt"
	"strings"
	"time"
)

// MetricKind names one of the six measured quantities.
type MetricKind string

const (
	MetricVoltage     MetricKind = "voltage"
	MetricCurrent     MetricKind = "current"
	MetricPower       MetricKind = "power"
	MetricSOC         MetricKind = "soc"
	MetricSOH         MetricKind = "soh"
	MetricTemperature MetricKind = "temperature"
)

// AllKinds lists every metric in table order.
var AllKinds = []MetricKind{MetricVoltage, MetricCurrent, MetricPower, MetricSOC, MetricSOH, MetricTemperature}

// MonitoredKinds are the kinds evaluated for alerts. Power is trusted as reported.
var MonitoredKinds = []MetricKind{MetricVoltage, MetricCurrent, MetricTemperature, MetricSOC, MetricSOH}

// ParseMetricKind accepts the canonical names plus the long forms used by some feeds.
func ParseMetricKind(raw string) (MetricKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "voltage":
		return MetricVoltage, nil
	case "current":
		return MetricCurrent, nil
	case "power":
		return MetricPower, nil
	case "soc", "stateofcharge", "state_of_charge":
		return MetricSOC, nil
	case "soh", "stateofhealth", "state_of_health":
		return MetricSOH, nil
	case "temperature", "temp":
		return MetricTemperature, nil
	}
	return "", fmt.Errorf("models: unknown metric kind %q", raw)
}

// Label is the human form used in alert text.
func (k MetricKind) Label() string {
	switch k {
	case MetricSOC:
		return "SOC"
	case MetricSOH:
		return "SOH"
	case "":
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Unit returns the display unit of the kind.
func (k MetricKind) Unit() string {
	switch k {
	case MetricVoltage:
		return "V"
	case MetricCurrent:
		return "A"
	case MetricPower:
		return "W"
	case MetricSOC, MetricSOH:
		return "%"
	case MetricTemperature:
		return "°C"
	}
	return ""
}

// MetricSnapshot is one timestamped set of readings. Values are immutable once built.
type MetricSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	Voltage     float64   `json:"voltage"`
	Current     float64   `json:"current"`
	Power       float64   `json:"power"`
	SOC         float64   `json:"soc"`
	SOH         float64   `json:"soh"`
	Temperature float64   `json:"temperature"`
}

// Value returns the field for kind.
func (s MetricSnapshot) Value(kind MetricKind) (float64, bool) {
	switch kind {
	case MetricVoltage:
		return s.Voltage, true
	case MetricCurrent:
		return s.Current, true
	case MetricPower:
		return s.Power, true
	case MetricSOC:
		return s.SOC, true
	case MetricSOH:
		return s.SOH, true
	case MetricTemperature:
		return s.Temperature, true
	}
	return 0, false
}

// NamedSnapshot attaches the owning battery to a snapshot for table and export rows.
type NamedSnapshot struct {
	BatteryID   string `json:"battery_id"`
	BatteryName string `json:"battery_name"`
	MetricSnapshot
}
