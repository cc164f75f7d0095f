package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseTimeRange(t *testing.T) {
	cases := map[string]time.Duration{
		"1h":   time.Hour,
		"24H":  24 * time.Hour,
		" 7d ": 7 * 24 * time.Hour,
		"30d":  30 * 24 * time.Hour,
	}
	for raw, want := range cases {
		r, err := ParseTimeRange(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if r.Window() != want {
			t.Fatalf("window for %q: expected %s, got %s", raw, want, r.Window())
		}
	}
	if _, err := ParseTimeRange("2h"); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
}

func TestThresholdValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	inverted := DefaultThresholds()
	inverted.Voltage = Bounds{Low: 15, High: 11}
	if err := inverted.Validate(); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected inverted bounds to fail, got %v", err)
	}

	nan := DefaultThresholds()
	nan.SOC.High = math.NaN()
	if err := nan.Validate(); !errors.Is(err, ErrInvalidThresholds) {
		t.Fatalf("expected NaN bound to fail, got %v", err)
	}
}

func TestThresholdBoundsOnlyForEnforcedKinds(t *testing.T) {
	cfg := DefaultThresholds()
	for _, kind := range []MetricKind{MetricTemperature, MetricVoltage, MetricSOC} {
		if _, ok := cfg.Bounds(kind); !ok {
			t.Fatalf("expected bounds for %s", kind)
		}
	}
	for _, kind := range []MetricKind{MetricCurrent, MetricPower, MetricSOH} {
		if _, ok := cfg.Bounds(kind); ok {
			t.Fatalf("expected no bounds for %s", kind)
		}
	}
}

func TestSnapshotValueAndLabels(t *testing.T) {
	snap := MetricSnapshot{Voltage: 12.5, Current: -3, Power: 40, SOC: 60, SOH: 90, Temperature: 25}
	for _, kind := range AllKinds {
		if _, ok := snap.Value(kind); !ok {
			t.Fatalf("missing value for %s", kind)
		}
	}
	if v, _ := snap.Value(MetricCurrent); v != -3 {
		t.Fatalf("expected current -3, got %v", v)
	}
	if MetricTemperature.Label() != "Temperature" || MetricSOC.Label() != "SOC" {
		t.Fatalf("unexpected labels %q %q", MetricTemperature.Label(), MetricSOC.Label())
	}
	if kind, err := ParseMetricKind("stateOfCharge"); err != nil || kind != MetricSOC {
		t.Fatalf("expected soc, got %q %v", kind, err)
	}
}
