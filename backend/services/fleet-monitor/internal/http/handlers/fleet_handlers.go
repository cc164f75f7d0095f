package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
	"batteryfleet/backend/services/fleet-monitor/internal/report"
	"batteryfleet/backend/services/fleet-monitor/internal/service"
)

// FleetHandlers serves the dashboard API.
type FleetHandlers struct {
	monitor *service.Monitor
	logger  *zap.Logger
	now     func() time.Time
}

// NewFleetHandlers returns handlers bound to a monitor.
func NewFleetHandlers(monitor *service.Monitor, logger *zap.Logger) *FleetHandlers {
	return &FleetHandlers{monitor: monitor, logger: logger, now: time.Now}
}

type seriesResponse struct {
	BatteryID string                  `json:"battery_id"`
	Points    []models.MetricSnapshot `json:"points"`
}

type selectionRequest struct {
	BatteryIDs []string `json:"battery_ids"`
}

type timeRangeRequest struct {
	Range string `json:"range"`
}

type preferencesRequest struct {
	DarkMode *bool `json:"dark_mode"`
	Toggle   bool  `json:"toggle"`
}

// Batteries handles GET /api/v1/batteries.
func (h *FleetHandlers) Batteries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"batteries": h.monitor.Store().Batteries()})
}

// History handles GET /api/v1/batteries/{id}/history.
func (h *FleetHandlers) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var since *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = &ts
	}
	points, err := h.monitor.Store().History(id, since)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{BatteryID: id, Points: points})
}

// Chart handles GET /api/v1/batteries/{id}/chart.
func (h *FleetHandlers) Chart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	points, err := h.monitor.Store().Chart(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{BatteryID: id, Points: points})
}

// Hourly handles GET /api/v1/batteries/{id}/hourly.
func (h *FleetHandlers) Hourly(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	points, err := h.monitor.Store().Hourly(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{BatteryID: id, Points: points})
}

// Summary handles GET /api/v1/summary.
func (h *FleetHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Store().Summary())
}

// GetSelection handles GET /api/v1/selection.
func (h *FleetHandlers) GetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, selectionRequest{BatteryIDs: h.monitor.Store().Selection()})
}

// PutSelection handles PUT /api/v1/selection.
func (h *FleetHandlers) PutSelection(w http.ResponseWriter, r *http.Request) {
	var input selectionRequest
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.monitor.SetSelection(input.BatteryIDs); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, selectionRequest{BatteryIDs: h.monitor.Store().Selection()})
}

// GetTimeRange handles GET /api/v1/time-range.
func (h *FleetHandlers) GetTimeRange(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, timeRangeRequest{Range: string(h.monitor.Store().TimeRange())})
}

// PutTimeRange handles PUT /api/v1/time-range.
func (h *FleetHandlers) PutTimeRange(w http.ResponseWriter, r *http.Request) {
	var input timeRangeRequest
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.monitor.SelectTimeRange(models.TimeRange(input.Range)); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, timeRangeRequest{Range: string(h.monitor.Store().TimeRange())})
}

// GetThresholds handles GET /api/v1/thresholds.
func (h *FleetHandlers) GetThresholds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Store().Thresholds())
}

// PutThresholds handles PUT /api/v1/thresholds.
func (h *FleetHandlers) PutThresholds(w http.ResponseWriter, r *http.Request) {
	var input models.ThresholdConfig
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.monitor.SetThresholds(input); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.Store().Thresholds())
}

// GetPreferences handles GET /api/v1/preferences.
func (h *FleetHandlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.monitor.Store().Preferences())
}

// PutPreferences handles PUT /api/v1/preferences. Either dark_mode or toggle must be given.
func (h *FleetHandlers) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var input preferencesRequest
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	switch {
	case input.DarkMode != nil:
		h.monitor.SetDarkMode(*input.DarkMode)
	case input.Toggle:
		h.monitor.ToggleDarkMode()
	default:
		writeError(w, http.StatusBadRequest, "dark_mode or toggle is required")
		return
	}
	writeJSON(w, http.StatusOK, h.monitor.Store().Preferences())
}

// Alerts handles GET /api/v1/alerts.
func (h *FleetHandlers) Alerts(w http.ResponseWriter, r *http.Request) {
	var selectedOnly bool
	switch scope := r.URL.Query().Get("scope"); scope {
	case "", "selected":
		selectedOnly = true
	case "all":
	default:
		writeError(w, http.StatusBadRequest, "scope must be selected or all")
		return
	}
	list := h.monitor.Store().Alerts(selectedOnly)
	if list == nil {
		list = []models.AlertRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": list})
}

// AckAlert handles POST /api/v1/alerts/{id}/ack.
func (h *FleetHandlers) AckAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.monitor.AcknowledgeAlert(id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged", "id": id})
}

// Readings handles GET /api/v1/readings.
func (h *FleetHandlers) Readings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

// ExportCSV handles GET /api/v1/readings/export.csv.
func (h *FleetHandlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rows); err != nil {
		h.logger.Error("failed to write csv export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export readings")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(h.now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// rows returns the table rows filtered by q and ordered by sort/order (newest first by default).
func (h *FleetHandlers) rows(r *http.Request) ([]models.NamedSnapshot, error) {
	q := r.URL.Query()
	rows := report.Filter(h.monitor.Store().Recent(report.RecentPerBattery), q.Get("q"))
	ascending := strings.EqualFold(q.Get("order"), "asc")
	if err := report.Sort(rows, q.Get("sort"), ascending); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.NamedSnapshot{}
	}
	return rows, nil
}
