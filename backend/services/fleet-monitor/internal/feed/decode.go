package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrEmptyPayload is returned for a blank message.
	ErrEmptyPayload = errors.New("feed: empty payload")
	// ErrMissingID is returned when no reading in a payload can be attributed to a battery.
	ErrMissingID = errors.New("feed: reading without battery id")
)

var idKeys = []string{"id", "battery_id", "batteryId"}

// Decode parses a feed message into updates. It accepts a single reading, an array of readings,
// {"readings": [...]}, or an object keyed by battery id. fallbackID names readings that carry no id.
func Decode(payload []byte, fallbackID string, receivedAt time.Time) ([]Update, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("feed: decode payload: %w", err)
	}

	var items []map[string]any
	var keyed map[string]map[string]any
	switch v := doc.(type) {
	case []any:
		items = objects(v)
	case map[string]any:
		if list, ok := v["readings"].([]any); ok {
			items = objects(list)
		} else if byID, ok := asKeyed(v); ok {
			keyed = byID
		} else {
			items = []map[string]any{v}
		}
	default:
		return nil, fmt.Errorf("feed: unsupported payload type %T", doc)
	}

	var out []Update
	if keyed != nil {
		ids := make([]string, 0, len(keyed))
		for id := range keyed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			out = append(out, Update{BatteryID: id, Reading: reading(keyed[id]), ReceivedAt: receivedAt})
		}
		return out, nil
	}

	for _, item := range items {
		id := idOf(item)
		if id == "" {
			id = strings.TrimSpace(fallbackID)
		}
		if id == "" {
			continue
		}
		out = append(out, Update{BatteryID: id, Reading: reading(item), ReceivedAt: receivedAt})
	}
	if len(out) == 0 {
		return nil, ErrMissingID
	}
	return out, nil
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// asKeyed reports whether v looks like {"<id>": {reading}, ...}.
func asKeyed(v map[string]any) (map[string]map[string]any, bool) {
	if len(v) == 0 || idOf(v) != "" {
		return nil, false
	}
	if _, ok := v["data"]; ok {
		return nil, false
	}
	out := make(map[string]map[string]any, len(v))
	for k, item := range v {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out[k] = m
	}
	return out, true
}

func idOf(item map[string]any) string {
	for _, key := range idKeys {
		switch v := item[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// reading flattens an item: values under "data" win, top-level name and status are kept.
func reading(item map[string]any) RawReading {
	raw := RawReading{}
	for k, v := range item {
		raw[k] = v
	}
	if data, ok := item["data"].(map[string]any); ok {
		delete(raw, "data")
		for k, v := range data {
			raw[k] = v
		}
	}
	return raw
}
