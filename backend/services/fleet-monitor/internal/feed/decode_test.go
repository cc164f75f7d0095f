package feed

import (
	"errors"
	"testing"
	"time"
)

var received = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDecodeShapes(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		fallback string
		ids      []string
	}{
		{"single with id", `{"id":"bat-1","voltage":12.4}`, "", []string{"bat-1"}},
		{"single with fallback", `{"voltage":"12.4","status":"Normal"}`, "bat-9", []string{"bat-9"}},
		{"array", `[{"battery_id":"a","soc":50},{"batteryId":"b","soc":60}]`, "", []string{"a", "b"}},
		{"readings envelope", `{"readings":[{"id":"a"},{"id":7}]}`, "", []string{"a", "7"}},
		{"keyed by id", `{"bat-2":{"voltage":13},"bat-1":{"voltage":12}}`, "", []string{"bat-1", "bat-2"}},
		{"nested data", `{"id":"x","data":{"voltage":12}}`, "", []string{"x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			updates, err := Decode([]byte(tc.payload), tc.fallback, received)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(updates) != len(tc.ids) {
				t.Fatalf("expected %d updates, got %d", len(tc.ids), len(updates))
			}
			for i, id := range tc.ids {
				if updates[i].BatteryID != id {
					t.Fatalf("update %d: expected id %s, got %s", i, id, updates[i].BatteryID)
				}
				if !updates[i].ReceivedAt.Equal(received) {
					t.Fatalf("update %d: unexpected receive time", i)
				}
			}
		})
	}
}

func TestDecodeFlattensData(t *testing.T) {
	updates, err := Decode([]byte(`{"id":"x","name":"Rack 1","status":"Overvoltage","data":{"voltage":"15.1","soc":88}}`), "", received)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r := updates[0].Reading
	snap := ParseSnapshot(r, received)
	if snap.Voltage != 15.1 || snap.SOC != 88 {
		t.Fatalf("unexpected values %+v", snap)
	}
	if r.Name() != "Rack 1" || r.Status() != "Overvoltage" {
		t.Fatalf("unexpected name/status %q %q", r.Name(), r.Status())
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte("  "), "", received); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("expected ErrEmptyPayload, got %v", err)
	}
	if _, err := Decode([]byte(`{"voltage":`), "", received); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := Decode([]byte(`{"voltage":12}`), "", received); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if _, err := Decode([]byte(`42`), "bat", received); err == nil {
		t.Fatalf("expected error for scalar payload")
	}
}

func TestTopicBatteryID(t *testing.T) {
	if got := TopicBatteryID("fleet/batteries/bat-7/"); got != "bat-7" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := TopicBatteryID("bat-1"); got != "bat-1" {
		t.Fatalf("unexpected id %q", got)
	}
}
