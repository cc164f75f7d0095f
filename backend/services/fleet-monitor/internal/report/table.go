package report

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// RecentPerBattery is how many readings of each selected battery the table shows.
const RecentPerBattery = 10

// ErrUnknownColumn is returned for a sort column the table does not have.
var ErrUnknownColumn = errors.New("unknown sort column")

const ColumnTimestamp = "timestamp"

// Sort orders rows by column ("timestamp" or a metric kind). Ties keep their input order.
func Sort(rows []models.NamedSnapshot, column string, ascending bool) error {
	column = strings.ToLower(strings.TrimSpace(column))
	if column == "" {
		column = ColumnTimestamp
	}

	var less func(a, b models.NamedSnapshot) bool
	if column == ColumnTimestamp {
		less = func(a, b models.NamedSnapshot) bool { return a.Timestamp.Before(b.Timestamp) }
	} else {
		kind, err := models.ParseMetricKind(column)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, column)
		}
		less = func(a, b models.NamedSnapshot) bool {
			x, _ := a.Value(kind)
			y, _ := b.Value(kind)
			return x < y
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if ascending {
			return less(rows[i], rows[j])
		}
		return less(rows[j], rows[i])
	})
	return nil
}

// Filter keeps rows whose battery name contains term (case-insensitive) or whose voltage, current, power,
// soc or temperature, written in plain decimal form, contains it.
func Filter(rows []models.NamedSnapshot, term string) []models.NamedSnapshot {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return rows
	}
	out := make([]models.NamedSnapshot, 0, len(rows))
	for _, row := range rows {
		if matches(row, term) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row models.NamedSnapshot, term string) bool {
	if strings.Contains(strings.ToLower(row.BatteryName), term) {
		return true
	}
	for _, v := range []float64{row.Voltage, row.Current, row.Power, row.SOC, row.Temperature} {
		if strings.Contains(strconv.FormatFloat(v, 'f', -1, 64), term) {
			return true
		}
	}
	return false
}
