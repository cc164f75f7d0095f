package repository

import (
	"context"
	"database/sql"
	"time"

	"batteryfleet/backend/services/fleet-monitor/internal/models"
)

// DefaultFetchLimit bounds the rows returned per battery.
const DefaultFetchLimit = 100

// ReadingRepository reads historical readings written by the ingestion pipeline.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// FetchRange returns, per battery, the newest limit readings recorded at or after since, oldest first.
func (r *ReadingRepository) FetchRange(ctx context.Context, batteryIDs []string, since time.Time, limit int) (map[string][]models.MetricSnapshot, error) {
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	out := make(map[string][]models.MetricSnapshot, len(batteryIDs))
	for _, id := range batteryIDs {
		snaps, err := r.fetchOne(ctx, id, since, limit)
		if err != nil {
			return nil, err
		}
		out[id] = snaps
	}
	return out, nil
}

func (r *ReadingRepository) fetchOne(ctx context.Context, batteryID string, since time.Time, limit int) ([]models.MetricSnapshot, error) {
	const query = `
		SELECT recorded_at, voltage, current, power, soc, soh, temperature
		FROM battery_readings
		WHERE battery_id = $1 AND recorded_at >= $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, batteryID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []models.MetricSnapshot
	for rows.Next() {
		var (
			s                                             models.MetricSnapshot
			voltage, current, power, soc, soh, temperature sql.NullFloat64
		)
		if err := rows.Scan(&s.Timestamp, &voltage, &current, &power, &soc, &soh, &temperature); err != nil {
			return nil, err
		}
		s.Voltage = voltage.Float64
		s.Current = current.Float64
		s.Power = power.Float64
		s.SOC = soc.Float64
		s.SOH = soh.Float64
		s.Temperature = temperature.Float64
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(snaps)-1; i < j; i, j = i+1, j-1 {
		snaps[i], snaps[j] = snaps[j], snaps[i]
	}
	return snaps, nil
}
