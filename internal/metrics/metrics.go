package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	scheduleCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetops",
			Name:      "schedule_created_total",
			Help:      "Count of schedules created by status.",
		},
		[]string{"status"},
	)

	scheduleConflict = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetops",
			Name:      "schedule_conflict_total",
			Help:      "Count of rejected double-booking attempts by resource.",
		},
		[]string{"resource"},
	)

	tripsSynthesized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetops",
			Name:      "trips_synthesized_total",
			Help:      "Count of trips materialized from confirmed schedules.",
		},
	)

	synthesisFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fleetops",
			Name:      "synthesis_failures_total",
			Help:      "Count of per-schedule synthesis failures.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fleetops",
			Name:      "http_requests_total",
			Help:      "Count of API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(scheduleCreated, scheduleConflict, tripsSynthesized, synthesisFailures, httpRequests)
	})
}

func IncScheduleCreated(status string) {
	scheduleCreated.WithLabelValues(status).Inc()
}

func IncScheduleConflict(resource string) {
	scheduleConflict.WithLabelValues(resource).Inc()
}

func IncTripsSynthesized() {
	tripsSynthesized.Inc()
}

func IncSynthesisFailure() {
	synthesisFailures.Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
