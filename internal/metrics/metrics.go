package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session metrics
	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_session_transitions_total",
			Help: "Countdown state transitions by target state",
		},
		[]string{"state"},
	)

	IntervalsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_intervals_completed_total",
			Help: "Completed countdown intervals by type",
		},
		[]string{"type"},
	)

	// Reminder metrics
	Reminders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_reminders_total",
			Help: "Reminder requests by action (scheduled, fired, cancelled)",
		},
		[]string{"action"},
	)

	// Report metrics
	MinutesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_minutes_recorded_total",
			Help: "Minutes appended to the record store by kind",
		},
		[]string{"kind"},
	)

	RecordFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_record_failures_total",
			Help: "Failures in the record pipeline by stage",
		},
		[]string{"stage"},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_http_requests_total",
			Help: "HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pomodoro_http_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionTransitions,
		IntervalsCompleted,
		Reminders,
		MinutesRecorded,
		RecordFailures,
		HTTPRequests,
		HTTPRequestDuration,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
