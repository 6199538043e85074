// Package metrics exposes Prometheus collectors for the booking service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "availability_checks_total",
			Help:      "Count of availability evaluations by result.",
		},
		[]string{"result"},
	)

	reservationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "reservations_created_total",
			Help:      "Count of booking attempts by result.",
		},
		[]string{"result"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tablebook",
			Name:      "reservation_status_changes_total",
			Help:      "Count of reservation status changes by target status.",
		},
		[]string{"status"},
	)

	lockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tablebook",
			Name:      "write_lock_wait_seconds",
			Help:      "Time spent waiting for the per-table write lock.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, availabilityChecks, reservationsCreated, statusChanges, lockWait)
	})
}

func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

// Recorder feeds engine and ledger callbacks into the collectors.
type Recorder struct{}

func (Recorder) AvailabilityChecked(result string) {
	availabilityChecks.WithLabelValues(result).Inc()
}

func (Recorder) ReservationCreated(result string) {
	reservationsCreated.WithLabelValues(result).Inc()
}

func (Recorder) StatusChanged(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

func (Recorder) ObserveLockWait(d time.Duration) {
	lockWait.Observe(d.Seconds())
}
