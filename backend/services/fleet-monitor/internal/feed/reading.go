package feed

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// RawReading is a reading exactly as delivered by the feed. Values may be numbers, numeric strings or garbage.
type RawReading map[string]any

// Update is one reading for one battery, stamped on arrival.
type Update struct {
	BatteryID  string
	Reading    RawReading
	ReceivedAt time.Time
}

var fieldAliases = map[models.MetricKind][]string{
	models.MetricVoltage:     {"voltage"},
	models.MetricCurrent:     {"current"},
	models.MetricPower:       {"power"},
	models.MetricSOC:         {"soc", "stateOfCharge", "state_of_charge"},
	models.MetricSOH:         {"soh", "stateOfHealth", "state_of_health"},
	models.MetricTemperature: {"temperature", "temp"},
}

// Field coerces the first alias of kind present in the reading.
func (r RawReading) Field(kind models.MetricKind) float64 {
	for _, key := range fieldAliases[kind] {
		if v, ok := r[key]; ok {
			return Coerce(v)
		}
	}
	return 0
}

// Status returns the feed's status text, if any.
func (r RawReading) Status() string {
	return r.text("status")
}

// Name returns the display name carried by the reading, if any.
func (r RawReading) Name() string {
	return r.text("name")
}

func (r RawReading) text(key string) string {
	if s, ok := r[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// ParseSnapshot builds a snapshot stamped ts. It never fails; unusable fields read as zero.
func ParseSnapshot(r RawReading, ts time.Time) models.MetricSnapshot {
	return models.MetricSnapshot{
		Timestamp:   ts,
		Voltage:     r.Field(models.MetricVoltage),
		Current:     r.Field(models.MetricCurrent),
		Power:       r.Field(models.MetricPower),
		SOC:         r.Field(models.MetricSOC),
		SOH:         r.Field(models.MetricSOH),
		Temperature: r.Field(models.MetricTemperature),
	}
}

// Coerce converts a loosely typed value to a finite float. Strings use their longest numeric prefix
// ("12.5V" is 12.5); anything unparsable, NaN or infinite becomes 0.
func Coerce(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		f = numericPrefix(string(x))
	case string:
		f = numericPrefix(x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func numericPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		exp := end + 1
		if exp < len(s) && (s[exp] == '+' || s[exp] == '-') {
			exp++
		}
		start := exp
		for exp < len(s) && isDigit(s[exp]) {
			exp++
		}
		if exp > start {
			end = exp
		}
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return f
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
