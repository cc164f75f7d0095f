package feed

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestCoerce(t *testing.T) {
	cases := []struct {
		in   any
		want float64
	}{
		{12.5, 12.5},
		{int64(7), 7},
		{json.Number("3.25"), 3.25},
		{"14.2", 14.2},
		{"  -3.5A", -3.5},
		{"1e2", 100},
		{"2e", 2},
		{".5", 0.5},
		{"abc", 0},
		{"", 0},
		{"-", 0},
		{nil, 0},
		{true, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{"Infinity", 0},
		{map[string]any{"v": 1}, 0},
	}
	for _, tc := range cases {
		if got := Coerce(tc.in); got != tc.want {
			t.Fatalf("Coerce(%#v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseSnapshotDefensive(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	raw := RawReading{
		"voltage":       "12.6",
		"current":       "oops",
		"power":         nil,
		"stateOfCharge": 81.0,
		"soh":           json.Number("97"),
		"temp":          "31.5",
		"status":        " Normal ",
	}
	snap := ParseSnapshot(raw, ts)
	if snap.Voltage != 12.6 || snap.Current != 0 || snap.Power != 0 || snap.SOC != 81 || snap.SOH != 97 || snap.Temperature != 31.5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.Timestamp.Equal(ts) {
		t.Fatalf("expected arrival timestamp")
	}
	if raw.Status() != "Normal" {
		t.Fatalf("unexpected status %q", raw.Status())
	}
	if got := ParseSnapshot(nil, ts); got.Voltage != 0 || got.SOC != 0 {
		t.Fatalf("expected zero snapshot for nil reading, got %+v", got)
	}
}
