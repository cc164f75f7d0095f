package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// TimestampLayout renders export timestamps independent of locale.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// Header is the fixed export column order.
var Header = []string{"Battery", "Timestamp", "Voltage (V)", "Current (A)", "Power (W)", "SOC (%)", "SOH (%)", "Temperature (°C)"}

// WriteCSV writes the header and one line per row.
func WriteCSV(w io.Writer, rows []models.NamedSnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func record(row models.NamedSnapshot) []string {
	return []string{
		row.BatteryName,
		row.Timestamp.UTC().Format(TimestampLayout),
		fixed(row.Voltage, 2),
		fixed(row.Current, 2),
		fixed(row.Power, 2),
		fixed(row.SOC, 1),
		fixed(row.SOH, 1),
		fixed(row.Temperature, 1),
	}
}

func fixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// FileName returns the download name for an export made at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("battery-data-%s.csv", now.UTC().Format("2006-01-02"))
}
