package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidThresholds is returned for bounds that cannot be applied.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Bounds is an inclusive [Low, High] band.
type Bounds struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// ThresholdConfig holds the enforced bands. Kinds without a band always pass.
type ThresholdConfig struct {
	Temperature Bounds `json:"temperature" yaml:"temperature"`
	Voltage     Bounds `json:"voltage" yaml:"voltage"`
	SOC         Bounds `json:"soc" yaml:"soc"`
}

// DefaultThresholds returns the factory bands.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		Temperature: Bounds{Low: 0, High: 45},
		Voltage:     Bounds{Low: 11, High: 14.4},
		SOC:         Bounds{Low: 20, High: 90},
	}
}

// Bounds returns the band for kind, if one is enforced.
func (c ThresholdConfig) Bounds(kind MetricKind) (Bounds, bool) {
	switch kind {
	case MetricTemperature:
		return c.Temperature, true
	case MetricVoltage:
		return c.Voltage, true
	case MetricSOC:
		return c.SOC, true
	}
	return Bounds{}, false
}

// Validate rejects non-finite or inverted bands.
func (c ThresholdConfig) Validate() error {
	for _, kind := range []MetricKind{MetricTemperature, MetricVoltage, MetricSOC} {
		b, _ := c.Bounds(kind)
		if !finite(b.Low) || !finite(b.High) {
			return fmt.Errorf("%w: %s bounds must be finite", ErrInvalidThresholds, kind)
		}
		if b.Low > b.High {
			return fmt.Errorf("%w: %s low %.2f above high %.2f", ErrInvalidThresholds, kind, b.Low, b.High)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
