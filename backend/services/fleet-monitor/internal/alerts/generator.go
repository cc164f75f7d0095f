package alerts

import (
	"strings"

	"github.com/google/uuid"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
	"batteryfleet/backend/services/fleet-monitor/internal/threshold"
)

var idGenerator = func() string {
	return uuid.NewString()
}

const (
	SourceThreshold = "threshold"
	SourceStatus    = "status"

	normalStatus = "Normal"
)

// Generator turns snapshots into alert records.
type Generator struct {
	statusAlerts bool
}

// NewGenerator returns a generator. statusAlerts enables alerts derived from the feed's status text.
func NewGenerator(statusAlerts bool) *Generator {
	return &Generator{statusAlerts: statusAlerts}
}

// Evaluate emits one alert per monitored kind outside its band. Every crossing reading yields fresh
// records; prior is not used to deduplicate.
func (g *Generator) Evaluate(batteryID string, snap models.MetricSnapshot, prior []models.AlertRecord, cfg models.ThresholdConfig) []models.AlertRecord {
	var out []models.AlertRecord
	for _, kind := range models.MonitoredKinds {
		value, _ := snap.Value(kind)
		res := threshold.Classify(kind, value, cfg)
		if res.Valid {
			continue
		}
		rec := models.AlertRecord{
			ID:        idGenerator(),
			Timestamp: snap.Timestamp,
			BatteryID: batteryID,
			Metric:    kind,
			Value:     value,
			Threshold: res.Bound,
			Direction: res.Direction,
			Source:    SourceThreshold,
		}
		rec.Message = Message(rec)
		out = append(out, rec)
	}
	return out
}

// FromStatus maps a non-normal status string from the feed to a single alert. The metric is guessed from the
// text and the direction is high only for "over..." statuses.
func (g *Generator) FromStatus(batteryID, status string, snap models.MetricSnapshot) (models.AlertRecord, bool) {
	status = strings.TrimSpace(status)
	if !g.statusAlerts || status == "" || status == normalStatus {
		return models.AlertRecord{}, false
	}

	lower := strings.ToLower(status)
	kind := models.MetricTemperature
	switch {
	case strings.Contains(lower, "voltage"):
		kind = models.MetricVoltage
	case strings.Contains(lower, "current"):
		kind = models.MetricCurrent
	}
	dir := models.DirectionLow
	if strings.HasPrefix(lower, "over") {
		dir = models.DirectionHigh
	}
	value, _ := snap.Value(kind)

	rec := models.AlertRecord{
		ID:        idGenerator(),
		Timestamp: snap.Timestamp,
		BatteryID: batteryID,
		Metric:    kind,
		Value:     value,
		Direction: dir,
		Source:    SourceStatus,
	}
	rec.Message = status + ": " + Message(rec)
	return rec, true
}
