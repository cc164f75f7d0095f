package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
	"batteryfleet/backend/services/fleet-monitor/internal/report"
	"batteryfleet/backend/services/fleet-monitor/internal/store"
)

const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrUnknownBattery), errors.Is(err, store.ErrAlertNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTimeRange), errors.Is(err, models.ErrInvalidThresholds),
		errors.Is(err, report.ErrUnknownColumn):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
