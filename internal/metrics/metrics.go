package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Endpoint lifecycle metrics
	EndpointsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooky_endpoints_created_total",
			Help: "Total number of webhook endpoints created",
		},
	)

	EndpointsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooky_endpoints_deleted_total",
			Help: "Total number of webhook endpoints explicitly deleted",
		},
	)

	EndpointsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooky_endpoints_reaped_total",
			Help: "Total number of expired endpoints removed by the reaper",
		},
	)

	// Capture metrics
	RequestsCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooky_requests_captured_total",
			Help: "Total number of requests captured",
		},
	)

	CapturesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hooky_captures_rejected_total",
			Help: "Total number of rejected capture attempts",
		},
		[]string{"reason"},
	)

	// Live stream metrics
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hooky_live_subscribers",
			Help: "Number of currently attached live-stream subscribers",
		},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hooky_stream_events_dropped_total",
			Help: "Total number of events dropped on slow subscriber channels",
		},
	)
)
