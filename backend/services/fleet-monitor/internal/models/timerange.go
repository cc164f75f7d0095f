package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimeRange is returned for unsupported range names.
var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange is the display and query window.
type TimeRange string

const (
	Range1h  TimeRange = "1h"
	Range24h TimeRange = "24h"
	Range7d  TimeRange = "7d"
	Range30d TimeRange = "30d"
)

// DefaultTimeRange is active until the user picks another.
const DefaultTimeRange = Range24h

// ParseTimeRange validates a range name.
func ParseTimeRange(raw string) (TimeRange, error) {
	r := TimeRange(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case Range1h, Range24h, Range7d, Range30d:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeRange, raw)
}

// Window returns the duration covered by the range.
func (r TimeRange) Window() time.Duration {
	switch r {
	case Range1h:
		return time.Hour
	case Range24h:
		return 24 * time.Hour
	case Range7d:
		return 7 * 24 * time.Hour
	case Range30d:
		return 30 * 24 * time.Hour
	}
	return 0
}

// Since returns the lower bound of the window ending at now.
func (r TimeRange) Since(now time.Time) time.Time {
	return now.Add(-r.Window())
}
