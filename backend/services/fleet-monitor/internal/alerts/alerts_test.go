package alerts

import (
	"fmt"
	"testing"
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

func sequentialIDs(t *testing.T) {
	t.Helper()
	original := idGenerator
	n := 0
	idGenerator = func() string {
		n++
		return fmt.Sprintf("alert-%d", n)
	}
	t.Cleanup(func() { idGenerator = original })
}

var ts = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestEvaluateTemperatureHigh(t *testing.T) {
	sequentialIDs(t)
	gen := NewGenerator(false)
	snap := models.MetricSnapshot{Timestamp: ts, Voltage: 12, SOC: 50, SOH: 90, Temperature: 46}

	got := gen.Evaluate("bat-1", snap, nil, models.DefaultThresholds())
	if len(got) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(got))
	}
	a := got[0]
	if a.Metric != models.MetricTemperature || a.Direction != models.DirectionHigh || a.Value != 46 || a.Threshold != 45 {
		t.Fatalf("unexpected alert %+v", a)
	}
	if a.ID != "alert-1" || a.BatteryID != "bat-1" || !a.Timestamp.Equal(ts) || a.Acknowledged {
		t.Fatalf("unexpected alert identity %+v", a)
	}
	if a.Message != "Temperature exceeded threshold: 46.0°C (Threshold: 45°C)" {
		t.Fatalf("unexpected message %q", a.Message)
	}
}

func TestEvaluateWithinBands(t *testing.T) {
	gen := NewGenerator(false)
	snap := models.MetricSnapshot{Timestamp: ts, Voltage: 12, SOC: 50, SOH: 90, Temperature: 20}
	if got := gen.Evaluate("bat-1", snap, nil, models.DefaultThresholds()); len(got) != 0 {
		t.Fatalf("expected no alerts, got %+v", got)
	}
}

func TestEvaluateVoltageAndSOCHigh(t *testing.T) {
	sequentialIDs(t)
	gen := NewGenerator(false)
	snap := models.MetricSnapshot{Timestamp: ts, Voltage: 15, Current: 5, Power: 75, SOC: 95, SOH: 80, Temperature: 30}

	got := gen.Evaluate("bat-1", snap, nil, models.DefaultThresholds())
	if len(got) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(got))
	}
	seen := map[models.MetricKind]models.AlertRecord{}
	for _, a := range got {
		seen[a.Metric] = a
	}
	if v, ok := seen[models.MetricVoltage]; !ok || v.Direction != models.DirectionHigh || v.Threshold != 14.4 {
		t.Fatalf("missing voltage-high alert: %+v", got)
	}
	if s, ok := seen[models.MetricSOC]; !ok || s.Direction != models.DirectionHigh || s.Threshold != 90 {
		t.Fatalf("missing soc-high alert: %+v", got)
	}
	if seen[models.MetricSOC].Message != "SOC exceeded threshold: 95% (Threshold: 90%)" {
		t.Fatalf("unexpected soc message %q", seen[models.MetricSOC].Message)
	}
}

func TestEvaluateDoesNotDeduplicate(t *testing.T) {
	gen := NewGenerator(false)
	snap := models.MetricSnapshot{Timestamp: ts, Voltage: 12, SOC: 50, Temperature: 50}
	first := gen.Evaluate("bat-1", snap, nil, models.DefaultThresholds())
	second := gen.Evaluate("bat-1", snap, first, models.DefaultThresholds())
	if len(first) != 1 || len(second) != 1 || first[0].ID == second[0].ID {
		t.Fatalf("expected a fresh alert per reading, got %+v %+v", first, second)
	}
}

func TestFromStatus(t *testing.T) {
	snap := models.MetricSnapshot{Timestamp: ts, Voltage: 15.2, Current: 80, Temperature: 50}

	if _, ok := NewGenerator(false).FromStatus("bat-1", "Overvoltage", snap); ok {
		t.Fatalf("expected status alerts disabled")
	}

	gen := NewGenerator(true)
	cases := []struct {
		status string
		metric models.MetricKind
		dir    models.Direction
		value  float64
	}{
		{"Overvoltage", models.MetricVoltage, models.DirectionHigh, 15.2},
		{"Over current", models.MetricCurrent, models.DirectionHigh, 80},
		{"Undervoltage", models.MetricVoltage, models.DirectionLow, 15.2},
		{"Overheat", models.MetricTemperature, models.DirectionHigh, 50},
	}
	for _, tc := range cases {
		rec, ok := gen.FromStatus("bat-1", tc.status, snap)
		if !ok {
			t.Fatalf("%s: expected alert", tc.status)
		}
		if rec.Metric != tc.metric || rec.Direction != tc.dir || rec.Value != tc.value || rec.Threshold != 0 {
			t.Fatalf("%s: unexpected alert %+v", tc.status, rec)
		}
		if rec.Source != SourceStatus {
			t.Fatalf("%s: unexpected source %q", tc.status, rec.Source)
		}
	}
	for _, status := range []string{"", "Normal"} {
		if _, ok := gen.FromStatus("bat-1", status, snap); ok {
			t.Fatalf("expected no alert for %q", status)
		}
	}
}

func TestSortOrder(t *testing.T) {
	records := []models.AlertRecord{
		{ID: "a", Timestamp: ts, Acknowledged: true},
		{ID: "b", Timestamp: ts.Add(-time.Minute)},
		{ID: "c", Timestamp: ts.Add(time.Minute), Acknowledged: true},
		{ID: "e", Timestamp: ts},
		{ID: "d", Timestamp: ts},
	}
	Sort(records)
	want := []string{"d", "e", "b", "c", "a"}
	for i, id := range want {
		if records[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, records[i].ID)
		}
	}
}

func TestRetentionApply(t *testing.T) {
	var log []models.AlertRecord
	for i := 0; i < 10; i++ {
		log = append(log, models.AlertRecord{ID: fmt.Sprint(i), Timestamp: ts.Add(time.Duration(i) * time.Minute)})
	}

	capped := Retention{MaxPerBattery: 3}.Apply(append([]models.AlertRecord(nil), log...), ts)
	if len(capped) != 3 || capped[0].ID != "7" || capped[2].ID != "9" {
		t.Fatalf("unexpected capped log %+v", capped)
	}

	aged := Retention{MaxAge: 5 * time.Minute}.Apply(append([]models.AlertRecord(nil), log...), ts.Add(9*time.Minute))
	if len(aged) != 6 || aged[0].ID != "4" {
		t.Fatalf("unexpected aged log %+v", aged)
	}

	if got := (Retention{}).Apply(log, ts); len(got) != 10 {
		t.Fatalf("expected unbounded log, got %d", len(got))
	}
	if got := DefaultRetention().Apply(append([]models.AlertRecord(nil), log...), ts.Add(24*time.Hour)); len(got) != 10 {
		t.Fatalf("default retention should keep every alert, got %d", len(got))
	}
}

func TestRetentionAdmit(t *testing.T) {
	log := []models.AlertRecord{
		{ID: "1", Metric: models.MetricTemperature, Direction: models.DirectionHigh},
		{ID: "2", Metric: models.MetricVoltage, Direction: models.DirectionLow, Acknowledged: true},
	}
	incoming := []models.AlertRecord{
		{ID: "3", Metric: models.MetricTemperature, Direction: models.DirectionHigh},
		{ID: "4", Metric: models.MetricVoltage, Direction: models.DirectionLow},
		{ID: "5", Metric: models.MetricVoltage, Direction: models.DirectionLow},
	}

	if got := (Retention{}).Admit(incoming, log); len(got) != 3 {
		t.Fatalf("expected all records admitted, got %d", len(got))
	}
	got := Retention{SuppressDuplicates: true}.Admit(incoming, log)
	if len(got) != 1 || got[0].ID != "4" {
		t.Fatalf("unexpected admitted records %+v", got)
	}
}
