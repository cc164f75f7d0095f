package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleet_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Feed metrics
	FeedUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_feed_updates_total",
			Help: "Readings merged into the store",
		},
		[]string{"battery_id"},
	)

	BatteriesKnown = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_batteries_known",
			Help: "Batteries seen on the feed since start",
		},
	)

	AlertsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_alerts_raised_total",
			Help: "Alerts generated, by metric and direction",
		},
		[]string{"metric", "direction"},
	)

	// History fetch metrics
	HistoryFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleet_history_fetches_total",
			Help: "History loads by outcome: merged, stale or failed",
		},
		[]string{"outcome"},
	)

	HistoryFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleet_history_fetch_duration_seconds",
			Help:    "Duration of history loads",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Push metrics
	PushClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleet_push_clients",
			Help: "Connected push WebSocket clients",
		},
	)

	PushDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleet_push_dropped_total",
			Help: "Push messages dropped for slow clients",
		},
	)
)

const (
	OutcomeMerged = "merged"
	OutcomeStale  = "stale"
	OutcomeFailed = "failed"
)
